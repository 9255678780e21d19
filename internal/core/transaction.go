package core

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/barysiuk/kitrow/internal/logging"
)

// Transaction guards one install or uninstall. It snapshots files before
// they change and records every file and directory it creates. Unless
// Commit is called, Rollback undoes all of it:
//
//	tx := NewTransaction(ctx, ws)
//	defer tx.Rollback()
//	if err := tx.BackupConfigs(); err != nil { return err }
//	... mutate, calling TrackFile / TrackDir / BackupFile ...
//	return tx.Commit()
type Transaction struct {
	configFiles []string
	backups     []fileBackup
	backedUp    map[string]bool
	created     map[string]bool
	files       []string
	dirs        []string
	done        bool
	log         *slog.Logger
}

type fileBackup struct {
	path string
	data []byte
	mode fs.FileMode
}

// NewTransaction starts a transaction for ws. Nothing is captured until
// BackupConfigs or BackupFile is called.
func NewTransaction(ctx context.Context, ws *Workspace) *Transaction {
	return &Transaction{
		configFiles: ws.configFiles(),
		backedUp:    make(map[string]bool),
		created:     make(map[string]bool),
		log:         logging.FromContext(ctx),
	}
}

// BackupConfigs snapshots the manifest, lockfile and index that currently exist.
func (tx *Transaction) BackupConfigs() error {
	for _, p := range tx.configFiles {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := tx.BackupFile(p); err != nil {
			return err
		}
	}
	return nil
}

// BackupFile snapshots path so Rollback can restore it byte-for-byte.
// Only the first snapshot of a path is kept. Files this transaction
// created are never snapshotted; Rollback deletes them instead.
func (tx *Transaction) BackupFile(path string) error {
	if tx.backedUp[path] || tx.created[path] {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: backing up %s: %v", ErrFileReadFailed, path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: backing up %s: %v", ErrFileReadFailed, path, err)
	}
	tx.backups = append(tx.backups, fileBackup{path: path, data: data, mode: info.Mode().Perm()})
	tx.backedUp[path] = true
	return nil
}

// TrackFile records a file created by the operation.
func (tx *Transaction) TrackFile(path string) {
	if tx.created[path] || tx.backedUp[path] {
		return
	}
	tx.created[path] = true
	tx.files = append(tx.files, path)
}

// TrackDir records a directory created by the operation.
func (tx *Transaction) TrackDir(path string) { tx.dirs = append(tx.dirs, path) }

// Commit keeps every change. Later Rollback calls do nothing.
func (tx *Transaction) Commit() error {
	tx.done = true
	tx.backups = nil
	tx.files = nil
	tx.dirs = nil
	return nil
}

// Rollback undoes an uncommitted transaction: it deletes created files,
// removes created directories that are left empty (deepest first,
// dotfiles do not count as content) and restores every snapshot. Failures
// are logged and never returned, so the error that triggered the rollback
// is the one the caller sees. Rollback is a no-op after Commit or a
// previous Rollback.
func (tx *Transaction) Rollback() {
	if tx.done {
		return
	}
	tx.done = true

	for i := len(tx.files) - 1; i >= 0; i-- {
		p := tx.files[i]
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			tx.log.Warn("rollback: removing file", "path", p, "error", err)
		}
	}

	dirs := append([]string(nil), tx.dirs...)
	sort.SliceStable(dirs, func(i, j int) bool { return depth(dirs[i]) > depth(dirs[j]) })
	for _, d := range dirs {
		empty, err := emptyIgnoringDotfiles(d)
		if err != nil {
			if !os.IsNotExist(err) {
				tx.log.Warn("rollback: reading directory", "path", d, "error", err)
			}
			continue
		}
		if !empty {
			tx.log.Debug("rollback: keeping non-empty directory", "path", d)
			continue
		}
		if err := os.RemoveAll(d); err != nil {
			tx.log.Warn("rollback: removing directory", "path", d, "error", err)
		}
	}

	for _, b := range tx.backups {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			tx.log.Warn("rollback: restoring file", "path", b.path, "error", err)
			continue
		}
		if err := os.WriteFile(b.path, b.data, b.mode); err != nil {
			tx.log.Warn("rollback: restoring file", "path", b.path, "error", err)
		}
	}
}

func depth(p string) int {
	return strings.Count(filepath.ToSlash(filepath.Clean(p)), "/")
}

func emptyIgnoringDotfiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			return false, nil
		}
	}
	return true, nil
}
