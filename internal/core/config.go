package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/barysiuk/kitrow/internal/core/platform"
)

const (
	userConfigDirName  = ".kitrow"
	userConfigFileName = "config.json"
)

// Config is the per-user configuration stored in ~/.kitrow/config.json.
type Config struct {
	Settings Settings `json:"settings"`
}

// Settings holds user preferences.
type Settings struct {
	// Platforms are installed for when none are given on the command line
	// and none are detected in the workspace.
	Platforms []string `json:"platforms,omitempty"`
	// CacheDir overrides the default bundle cache location.
	CacheDir string `json:"cacheDir,omitempty"`
	// CloneURLOverrides rewrites repository URLs before git sees them,
	// e.g. to fetch a public HTTPS URL through an SSH alias.
	CloneURLOverrides map[string]string `json:"cloneURLOverrides,omitempty"`
}

// ConfigManager handles reading and writing the user configuration.
type ConfigManager struct {
	configDir string
	mu        sync.RWMutex
}

// NewConfigManager creates a ConfigManager using the default config path (~/.kitrow/).
func NewConfigManager() (*ConfigManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &ConfigManager{configDir: filepath.Join(home, userConfigDirName)}, nil
}

// NewConfigManagerWithDir creates a ConfigManager using a custom config directory.
func NewConfigManagerWithDir(dir string) *ConfigManager {
	return &ConfigManager{configDir: dir}
}

// ConfigPath returns the full path to the config file.
func (cm *ConfigManager) ConfigPath() string {
	return filepath.Join(cm.configDir, userConfigFileName)
}

// Load reads the config from disk. Returns an empty config if the file doesn't exist.
func (cm *ConfigManager) Load() (*Config, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.load()
}

func (cm *ConfigManager) load() (*Config, error) {
	data, err := os.ReadFile(cm.ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseFailed, cm.ConfigPath(), err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (cm *ConfigManager) Save(cfg *Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.save(cfg)
}

// Update loads the config, applies fn and saves the result. Nothing is
// written when fn fails.
func (cm *ConfigManager) Update(fn func(*Config) error) (*Config, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	if err := cm.save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cm *ConfigManager) save(cfg *Config) error {
	if err := os.MkdirAll(cm.configDir, 0o755); err != nil {
		return fmt.Errorf("%w: creating config directory: %v", ErrFileWriteFailed, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return writeFileAtomic(cm.ConfigPath(), append(data, '\n'), 0o644)
}

// Setting keys accepted by Set and Unset.
const (
	SettingPlatforms = "platforms"
	SettingCacheDir  = "cache-dir"
)

// Set changes one setting. Platforms are a comma-separated list of known
// platform IDs.
func (s *Settings) Set(key, value string) error {
	switch key {
	case SettingPlatforms:
		var ids []string
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if _, err := platform.Default().ByNames(ids); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		s.Platforms = ids
	case SettingCacheDir:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s needs a directory", ErrConfigInvalid, key)
		}
		s.CacheDir = value
	default:
		return fmt.Errorf("%w: unknown setting %q; available: %s, %s",
			ErrConfigInvalid, key, SettingPlatforms, SettingCacheDir)
	}
	return nil
}

// Unset clears one setting.
func (s *Settings) Unset(key string) error {
	switch key {
	case SettingPlatforms:
		s.Platforms = nil
	case SettingCacheDir:
		s.CacheDir = ""
	default:
		return fmt.Errorf("%w: unknown setting %q; available: %s, %s",
			ErrConfigInvalid, key, SettingPlatforms, SettingCacheDir)
	}
	return nil
}

// SetCloneURL routes url through cloneURL, or drops the override when
// cloneURL is empty.
func (s *Settings) SetCloneURL(url, cloneURL string) {
	if cloneURL == "" {
		delete(s.CloneURLOverrides, url)
		if len(s.CloneURLOverrides) == 0 {
			s.CloneURLOverrides = nil
		}
		return
	}
	if s.CloneURLOverrides == nil {
		s.CloneURLOverrides = make(map[string]string)
	}
	s.CloneURLOverrides[url] = cloneURL
}

// OverrideURLs returns the overridden repository URLs, sorted.
func (s Settings) OverrideURLs() []string {
	urls := make([]string, 0, len(s.CloneURLOverrides))
	for u := range s.CloneURLOverrides {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Apply folds the settings into env: the cache directory when no
// environment variable set one, and URL overrides on the exec git client.
func (s Settings) Apply(env Env) Env {
	if s.CacheDir != "" && os.Getenv(EnvCacheDir) == "" {
		env.CacheDir = expandPath(s.CacheDir)
	}
	if _, ok := env.Git.(*ExecGit); ok && len(s.CloneURLOverrides) > 0 {
		env.Git = &ExecGit{URLOverrides: s.CloneURLOverrides}
	}
	return env
}
