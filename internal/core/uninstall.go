package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/barysiuk/kitrow/internal/logging"
)

// UninstallOptions configures Uninstall.
type UninstallOptions struct {
	// All removes every bundle in the lockfile; names are ignored.
	All bool
}

// UninstallResult lists what was removed, per bundle.
type UninstallResult struct {
	Bundles []RemovedBundle
}

// RemovedBundle is one uninstalled bundle.
type RemovedBundle struct {
	Name string
	// Files are the workspace-relative paths deleted from disk.
	Files []string
}

// Uninstall removes bundles from the workspace: their installed files
// that no other bundle provides, and their lockfile, index and manifest
// entries. Each bundle is attempted independently. If any fails, the
// returned *UninstallError lists every failure and nothing is changed.
func Uninstall(ctx context.Context, ws *Workspace, names []string, opts UninstallOptions) (*UninstallResult, error) {
	log := logging.FromContext(ctx)
	if opts.All {
		names = ws.Lockfile.Names()
	}
	if len(names) == 0 {
		return &UninstallResult{}, nil
	}

	guard, err := ws.Lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = guard.Release() }()

	tx := NewTransaction(ctx, ws)
	defer tx.Rollback()
	guard.track(tx)
	if err := tx.BackupConfigs(); err != nil {
		return nil, err
	}

	result := &UninstallResult{}
	failed := &UninstallError{}
	for _, name := range names {
		if _, ok := ws.Lockfile.Find(name); !ok {
			failed.add(name, fmt.Errorf("%w: %q is not installed", ErrBundleNotFound, name))
			continue
		}
		removed, err := removeInstalled(ws, name, tx)
		if err != nil {
			failed.add(name, err)
			continue
		}
		ws.Lockfile.RemoveBundle(name)
		ws.Manifest.RemoveDependency(name)
		log.Debug("uninstalled bundle", "name", name, "files", len(removed))
		result.Bundles = append(result.Bundles, RemovedBundle{Name: name, Files: removed})
	}

	if len(failed.Failures) > 0 {
		tx.Rollback()
		if err := ws.Load(); err != nil {
			log.Warn("reloading workspace after rollback", "error", err)
		}
		return nil, failed
	}

	if err := ws.Save(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// removeInstalled drops bundle name from the index and deletes each of
// its installed paths that no remaining bundle provides. Deleted files are
// backed up in tx and emptied parent directories are pruned.
func removeInstalled(ws *Workspace, name string, tx *Transaction) ([]string, error) {
	entry, ok := ws.Index.Find(name)
	if !ok {
		return nil, nil
	}
	paths := entry.InstalledPaths()
	ws.Index.Remove(name)

	var removed []string
	for _, rel := range paths {
		if _, claimed := ws.Index.Owner(rel); claimed {
			continue
		}
		p := filepath.Join(ws.Root, filepath.FromSlash(rel))
		if !fileExists(p) {
			continue
		}
		if err := tx.BackupFile(p); err != nil {
			return nil, err
		}
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("%w: removing %s: %v", ErrIO, rel, err)
		}
		removeEmptyParents(filepath.Dir(p), ws.Root)
		removed = append(removed, rel)
	}
	return removed, nil
}
