package cmd

import (
	"fmt"

	"github.com/barysiuk/kitrow/internal/core"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	env      core.Env
	config   *core.ConfigManager
	settings core.Settings
	cache    *core.CacheStore
}

// newDeps creates shared dependencies. Called lazily by commands that need them.
func newDeps() (*deps, error) {
	env, err := core.NewEnv()
	if err != nil {
		return nil, err
	}
	config, err := core.NewConfigManager()
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	env = cfg.Settings.Apply(env)

	return &deps{
		env:      env,
		config:   config,
		settings: cfg.Settings,
		cache:    core.NewCacheStore(env.CacheDir, env.Git),
	}, nil
}

// workspace opens the workspace the command runs in.
func (d *deps) workspace() (*core.Workspace, error) {
	return core.OpenWorkspace(d.env)
}
