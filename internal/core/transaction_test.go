package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barysiuk/kitrow/internal/logging"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	ws, err := OpenWorkspace(Env{WorkspaceDir: root})
	require.NoError(t, err)
	return ws
}

func seedConfigs(t *testing.T, ws *Workspace) map[string][]byte {
	t.Helper()
	require.NoError(t, os.MkdirAll(ws.ConfigDir, 0o755))
	original := map[string][]byte{
		ws.ManifestPath(): []byte("name: ws\n"),
		ws.LockfilePath(): []byte("{\"name\":\"ws\",\"bundles\":[]}\n"),
		ws.IndexPath():    []byte("name: ws\n\nbundles: []\n"),
	}
	for p, data := range original {
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return original
}

func TestTransaction_RollbackRemovesTrackedAndRestoresConfigs(t *testing.T) {
	ws := newTestWorkspace(t)
	original := seedConfigs(t, ws)

	tx := NewTransaction(context.Background(), ws)
	require.NoError(t, tx.BackupConfigs())

	dirs := []string{
		filepath.Join(ws.Root, ".claude"),
		filepath.Join(ws.Root, ".claude", "commands"),
		filepath.Join(ws.Root, ".cursor"),
	}
	for _, d := range dirs {
		require.NoError(t, os.Mkdir(d, 0o755))
		tx.TrackDir(d)
	}
	files := []string{
		filepath.Join(ws.Root, ".claude", "commands", "a.md"),
		filepath.Join(ws.Root, ".claude", "commands", "b.md"),
		filepath.Join(ws.Root, "CLAUDE.md"),
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
		tx.TrackFile(f)
	}
	for p := range original {
		require.NoError(t, os.WriteFile(p, []byte("half-written"), 0o644))
	}

	tx.Rollback()

	for _, f := range files {
		assert.NoFileExists(t, f)
	}
	for _, d := range dirs {
		assert.NoDirExists(t, d)
	}
	for p, data := range original {
		got, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, data, got, p)
	}
}

func TestTransaction_CommitKeepsEverything(t *testing.T) {
	ws := newTestWorkspace(t)
	seedConfigs(t, ws)

	tx := NewTransaction(context.Background(), ws)
	require.NoError(t, tx.BackupConfigs())

	d := filepath.Join(ws.Root, ".claude")
	require.NoError(t, os.Mkdir(d, 0o755))
	tx.TrackDir(d)
	f := filepath.Join(d, "CLAUDE.md")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	tx.TrackFile(f)
	require.NoError(t, os.WriteFile(ws.ManifestPath(), []byte("name: changed\n"), 0o644))

	require.NoError(t, tx.Commit())
	tx.Rollback()

	assert.FileExists(t, f)
	got, err := os.ReadFile(ws.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, "name: changed\n", string(got))
}

func TestTransaction_RollbackKeepsNonEmptyDirs(t *testing.T) {
	ws := newTestWorkspace(t)
	tx := NewTransaction(context.Background(), ws)

	d := filepath.Join(ws.Root, "shared")
	require.NoError(t, os.Mkdir(d, 0o755))
	tx.TrackDir(d)
	foreign := filepath.Join(d, "user-notes.md")
	require.NoError(t, os.WriteFile(foreign, []byte("mine"), 0o644))

	hidden := filepath.Join(ws.Root, "hidden")
	require.NoError(t, os.Mkdir(hidden, 0o755))
	tx.TrackDir(hidden)
	require.NoError(t, os.WriteFile(filepath.Join(hidden, ".lock"), nil, 0o644))

	tx.Rollback()

	assert.FileExists(t, foreign)
	assert.NoDirExists(t, hidden)
}

func TestTransaction_BackupFileRestoresDeletedFile(t *testing.T) {
	ws := newTestWorkspace(t)
	f := filepath.Join(ws.Root, "AGENTS.md")
	require.NoError(t, os.WriteFile(f, []byte("keep me"), 0o600))

	tx := NewTransaction(context.Background(), ws)
	require.NoError(t, tx.BackupFile(f))
	require.NoError(t, tx.BackupFile(f))
	require.NoError(t, os.Remove(f))

	tx.Rollback()

	got, err := os.ReadFile(f)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
	info, err := os.Stat(f)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTransaction_RollbackRemovesCreatedFileOverwrittenLater(t *testing.T) {
	ws := newTestWorkspace(t)
	f := filepath.Join(ws.Root, "new.md")

	tx := NewTransaction(context.Background(), ws)
	require.NoError(t, os.WriteFile(f, []byte("first"), 0o644))
	tx.TrackFile(f)
	require.NoError(t, tx.BackupFile(f))
	require.NoError(t, os.WriteFile(f, []byte("second"), 0o644))

	tx.Rollback()

	assert.NoFileExists(t, f)
}

func TestTransaction_RollbackRestoresFileRemovedThenRecreated(t *testing.T) {
	ws := newTestWorkspace(t)
	f := filepath.Join(ws.Root, "AGENTS.md")
	require.NoError(t, os.WriteFile(f, []byte("original"), 0o644))

	tx := NewTransaction(context.Background(), ws)
	require.NoError(t, tx.BackupFile(f))
	require.NoError(t, os.Remove(f))
	require.NoError(t, os.WriteFile(f, []byte("replacement"), 0o644))
	tx.TrackFile(f)

	tx.Rollback()

	got, err := os.ReadFile(f)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestTransaction_BackupConfigsSkipsMissing(t *testing.T) {
	ws := newTestWorkspace(t)
	tx := NewTransaction(context.Background(), ws)
	require.NoError(t, tx.BackupConfigs())
	assert.Empty(t, tx.backups)
}

func TestTransaction_RollbackLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, false))
	ws := newTestWorkspace(t)
	tx := NewTransaction(ctx, ws)

	blocker := filepath.Join(ws.Root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))
	tx.backups = append(tx.backups, fileBackup{path: filepath.Join(blocker, "child.md"), data: []byte("x"), mode: 0o644})

	tx.Rollback()
	assert.Contains(t, buf.String(), "rollback: restoring file")
}
