package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Environment variables read by NewEnv.
const (
	EnvWorkspace = "KITROW_WORKSPACE"
	EnvCacheDir  = "KITROW_CACHE_DIR"
)

// Env carries process-level settings into core constructors instead of
// package globals.
type Env struct {
	// WorkspaceDir forces the workspace root, bypassing the upward search.
	WorkspaceDir string
	// WorkDir is where the upward search for a git root starts.
	WorkDir string
	// CacheDir is the root of the bundle cache.
	CacheDir string
	// Git performs remote operations.
	Git GitClient
}

// NewEnv builds an Env from the process environment and the current directory.
func NewEnv() (Env, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Env{}, fmt.Errorf("getting current directory: %w", err)
	}
	cacheDir, err := DefaultCacheDir()
	if err != nil {
		return Env{}, err
	}
	return Env{
		WorkspaceDir: os.Getenv(EnvWorkspace),
		WorkDir:      wd,
		CacheDir:     cacheDir,
		Git:          NewExecGit(),
	}, nil
}

// DefaultCacheDir returns $KITROW_CACHE_DIR, $XDG_CACHE_HOME/kitrow or
// ~/.cache/kitrow, in that order.
func DefaultCacheDir() (string, error) {
	if d := os.Getenv(EnvCacheDir); d != "" {
		return expandPath(d), nil
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "kitrow"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "kitrow"), nil
}

// Workspace is a git-rooted tree with a .kitrow config directory.
type Workspace struct {
	Root      string
	ConfigDir string

	Manifest *Manifest
	Lockfile *Lockfile
	Index    *IndexConfig

	initialized bool
}

// FindWorkspaceRoot walks up from start to the nearest directory holding .git.
func FindWorkspaceRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrWorkspaceNotFound, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no git repository found above %s (set %s to override)",
				ErrWorkspaceNotFound, start, EnvWorkspace)
		}
		dir = parent
	}
}

// OpenWorkspace locates the workspace for env and loads its config files.
// Missing files load as empty defaults; nothing is written.
func OpenWorkspace(env Env) (*Workspace, error) {
	var root string
	if env.WorkspaceDir != "" {
		abs, err := filepath.Abs(expandPath(env.WorkspaceDir))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWorkspaceNotFound, err)
		}
		if !dirExists(abs) {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrWorkspaceNotFound, abs)
		}
		root = abs
	} else {
		start := env.WorkDir
		if start == "" {
			start = "."
		}
		r, err := FindWorkspaceRoot(start)
		if err != nil {
			return nil, err
		}
		root = r
	}

	ws := &Workspace{Root: root, ConfigDir: filepath.Join(root, configDirName)}
	if err := ws.Load(); err != nil {
		return nil, err
	}
	return ws, nil
}

// Load (re)reads the manifest, lockfile and index from disk.
func (w *Workspace) Load() error {
	data, err := os.ReadFile(w.ManifestPath())
	switch {
	case err == nil:
		m, err := ParseManifest(data)
		if err != nil {
			return fmt.Errorf("%s: %w", w.ManifestPath(), err)
		}
		w.Manifest = m
		w.initialized = true
	case os.IsNotExist(err):
		w.Manifest = &Manifest{Name: deriveWorkspaceName(w.Root)}
		w.initialized = false
	default:
		return fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
	}

	lf, err := ReadLockfile(w.LockfilePath())
	if err != nil {
		return fmt.Errorf("%s: %w", w.LockfilePath(), err)
	}
	if lf == nil {
		lf = NewLockfile(w.Manifest.Name)
	}
	lf.Name = w.Manifest.Name
	w.Lockfile = lf

	idx, err := ReadIndexConfig(w.IndexPath())
	if err != nil {
		return fmt.Errorf("%s: %w", w.IndexPath(), err)
	}
	if idx == nil {
		idx = NewIndexConfig(w.Manifest.Name)
	}
	idx.Name = w.Manifest.Name
	w.Index = idx
	return nil
}

// Init writes the config files of a new workspace, named name or the
// derived default when name is empty. It reports false and changes nothing
// when a manifest already exists.
func (w *Workspace) Init(ctx context.Context, name string) (bool, error) {
	if w.initialized {
		return false, nil
	}
	guard, err := w.Lock()
	if err != nil {
		return false, err
	}
	defer func() { _ = guard.Release() }()

	tx := NewTransaction(ctx, w)
	defer tx.Rollback()
	guard.track(tx)
	if name != "" {
		w.Manifest.Name = name
	}
	if err := w.Save(tx); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Name is the workspace's canonical bundle name.
func (w *Workspace) Name() string { return w.Manifest.Name }

// Initialized reports whether a manifest exists on disk.
func (w *Workspace) Initialized() bool { return w.initialized }

// ManifestPath returns the path of kitrow.yaml.
func (w *Workspace) ManifestPath() string { return filepath.Join(w.ConfigDir, manifestFileName) }

// LockfilePath returns the path of kitrow.lock.
func (w *Workspace) LockfilePath() string { return filepath.Join(w.ConfigDir, lockfileFileName) }

// IndexPath returns the path of kitrow.index.yaml.
func (w *Workspace) IndexPath() string { return filepath.Join(w.ConfigDir, indexFileName) }

// SelfPath is the directory holding the workspace's own bundle resources.
func (w *Workspace) SelfPath() string { return w.ConfigDir }

func (w *Workspace) configFiles() []string {
	return []string{w.ManifestPath(), w.LockfilePath(), w.IndexPath()}
}

// Rel returns p relative to the workspace root with forward slashes.
func (w *Workspace) Rel(p string) string {
	rel, err := filepath.Rel(w.Root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// SaveManifest writes kitrow.yaml, creating the config directory if needed.
func (w *Workspace) SaveManifest(tx *Transaction) error {
	data, err := w.Manifest.Marshal()
	if err != nil {
		return err
	}
	if err := w.writeConfig(tx, w.ManifestPath(), data); err != nil {
		return err
	}
	w.initialized = true
	return nil
}

// Save writes the manifest, lockfile and index. The lockfile is
// reorganized and the index re-derived to lockfile order first.
func (w *Workspace) Save(tx *Transaction) error {
	w.Lockfile.Name = w.Name()
	w.Index.Name = w.Name()
	w.Lockfile.Reorganize(w.Name())
	w.Index.ReorderToLockfile(w.Lockfile)

	if err := w.SaveManifest(tx); err != nil {
		return err
	}
	lockData, err := w.Lockfile.ToJSON()
	if err != nil {
		return err
	}
	if err := w.writeConfig(tx, w.LockfilePath(), lockData); err != nil {
		return err
	}
	idxData, err := w.Index.Marshal()
	if err != nil {
		return err
	}
	return w.writeConfig(tx, w.IndexPath(), idxData)
}

func (w *Workspace) writeConfig(tx *Transaction, path string, data []byte) error {
	if err := ensureDir(filepath.Dir(path), tx); err != nil {
		return err
	}
	existed := fileExists(path)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	if !existed && tx != nil {
		tx.TrackFile(path)
	}
	return nil
}

// deriveWorkspaceName returns "@owner/repo" from the origin remote, or the
// root directory's base name.
func deriveWorkspaceName(root string) string {
	out, err := exec.Command("git", "-C", root, "remote", "get-url", "origin").Output()
	if err == nil {
		if owner, repo, ok := repoSlug(strings.TrimSpace(string(out))); ok {
			return "@" + owner + "/" + repo
		}
	}
	return filepath.Base(root)
}
