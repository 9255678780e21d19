package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WorkspaceLock is an advisory lock on a workspace's config directory.
// It serializes kitrow processes working on the same workspace.
type WorkspaceLock struct {
	fl *flock.Flock
	// createdDir is the config directory when taking the lock created it.
	createdDir string
}

// Lock blocks until the workspace lock is available.
func (w *Workspace) Lock() (*WorkspaceLock, error) {
	fl, created, err := w.newFlock()
	if err != nil {
		return nil, err
	}
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkspaceLockFailed, fl.Path(), err)
	}
	return &WorkspaceLock{fl: fl, createdDir: created}, nil
}

// TryLock acquires the workspace lock without waiting. It returns
// ErrWorkspaceLocked when another holder has it.
func (w *Workspace) TryLock() (*WorkspaceLock, error) {
	fl, created, err := w.newFlock()
	if err != nil {
		return nil, err
	}
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkspaceLockFailed, fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another kitrow process is working in %s", ErrWorkspaceLocked, w.Root)
	}
	return &WorkspaceLock{fl: fl, createdDir: created}, nil
}

// track hands a config directory created by the lock to tx, so a rolled
// back first install leaves no .kitrow behind.
func (l *WorkspaceLock) track(tx *Transaction) {
	if l.createdDir != "" {
		tx.TrackDir(l.createdDir)
	}
}

// Release unlocks and closes the backing file. Safe to call more than once.
func (l *WorkspaceLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if err != nil {
		return fmt.Errorf("%w: releasing lock: %v", ErrWorkspaceLockFailed, err)
	}
	return nil
}

func (w *Workspace) newFlock() (*flock.Flock, string, error) {
	var created string
	if !dirExists(w.ConfigDir) {
		created = w.ConfigDir
	}
	if err := os.MkdirAll(w.ConfigDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("%w: creating %s: %v", ErrWorkspaceLockFailed, w.ConfigDir, err)
	}
	return flock.New(filepath.Join(w.ConfigDir, lockGuardFileName)), created, nil
}
