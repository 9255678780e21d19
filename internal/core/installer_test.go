package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barysiuk/kitrow/internal/core/platform"
)

func testPlatforms(t *testing.T, ids ...string) []*platform.Platform {
	t.Helper()
	ps, err := platform.Default().ByNames(ids)
	require.NoError(t, err)
	return ps
}

func dirBundle(t *testing.T, name string, files map[string]string) *ResolvedBundle {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	return &ResolvedBundle{Name: name, Path: dir, Source: BundleSource{Kind: SourceDirectory, Path: dir}}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestInstaller_InstallBundle(t *testing.T) {
	ws := newTestWorkspace(t)
	b := dirBundle(t, "kit", map[string]string{
		"commands/review.md":  "# review",
		"rules/style.md":      "be terse",
		"skills/pdf/SKILL.md": "---\nname: pdf\n---\n",
		"AGENTS.md":           "# agents",
	})
	tx := NewTransaction(context.Background(), ws)

	plan, err := NewInstaller(ws).InstallBundle(context.Background(), b, testPlatforms(t, "claude", "cursor"), ws.Index, tx, false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, []string{"AGENTS.md", "commands/review.md", "rules/style.md", "skills/pdf/SKILL.md"}, plan.Files)
	assert.Equal(t, []string{".claude/commands/review.md", ".cursor/commands/review.md"}, plan.Enabled["commands/review.md"])
	assert.Equal(t, []string{".claude/rules/style.md", ".cursor/rules/style.md", ".cursor/rules/style.mdc"}, plan.Enabled["rules/style.md"])
	assert.Equal(t, []string{"AGENTS.md", "CLAUDE.md"}, plan.Enabled["AGENTS.md"])

	assert.Equal(t, "# review", readFile(t, filepath.Join(ws.Root, ".claude", "commands", "review.md")))
	assert.Equal(t, "be terse", readFile(t, filepath.Join(ws.Root, ".cursor", "rules", "style.mdc")))
	assert.FileExists(t, filepath.Join(ws.Root, ".claude", "skills", "pdf", "SKILL.md"))
	assert.FileExists(t, filepath.Join(ws.Root, "CLAUDE.md"))

	entry, ok := ws.Index.Find("kit")
	require.True(t, ok)
	assert.Equal(t, plan.Enabled, entry.Enabled)
	for _, c := range plan.Copies {
		assert.Equal(t, ActionCreate, c.Action, c.Target)
	}
}

func TestInstaller_ReinstallIsUnchanged(t *testing.T) {
	ws := newTestWorkspace(t)
	b := dirBundle(t, "kit", map[string]string{"commands/a.md": "a"})
	in := NewInstaller(ws)
	platforms := testPlatforms(t, "claude")

	_, err := in.InstallBundle(context.Background(), b, platforms, ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)
	plan, err := in.InstallBundle(context.Background(), b, platforms, ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)

	require.Len(t, plan.Copies, 1)
	assert.Equal(t, ActionUnchanged, plan.Copies[0].Action)

	writeFiles(t, b.Path, map[string]string{"commands/a.md": "changed"})
	plan, err = in.InstallBundle(context.Background(), b, platforms, ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)
	assert.Equal(t, ActionOverwrite, plan.Copies[0].Action)
	assert.Equal(t, "changed", readFile(t, filepath.Join(ws.Root, ".claude", "commands", "a.md")))
}

func TestInstaller_RemovesStalePaths(t *testing.T) {
	ws := newTestWorkspace(t)
	b := dirBundle(t, "kit", map[string]string{
		"commands/a.md":        "a",
		"commands/nested/b.md": "b",
	})
	in := NewInstaller(ws)
	platforms := testPlatforms(t, "claude")

	_, err := in.InstallBundle(context.Background(), b, platforms, ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)
	stale := filepath.Join(ws.Root, ".claude", "commands", "nested", "b.md")
	require.FileExists(t, stale)

	require.NoError(t, os.RemoveAll(filepath.Join(b.Path, "commands", "nested")))
	plan, err := in.InstallBundle(context.Background(), b, platforms, ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)

	assert.Equal(t, []string{".claude/commands/nested/b.md"}, plan.Removed)
	assert.NoFileExists(t, stale)
	assert.NoDirExists(t, filepath.Dir(stale))
	entry, _ := ws.Index.Find("kit")
	assert.Equal(t, []string{".claude/commands/a.md"}, entry.InstalledPaths())
}

func TestInstaller_ConvertsJSONC(t *testing.T) {
	ws := newTestWorkspace(t)
	b := dirBundle(t, "kit", map[string]string{
		"mcp.jsonc": "{\n  // servers\n  \"mcpServers\": {\"db\": {\"command\": \"db-mcp\",},},\n}\n",
	})

	_, err := NewInstaller(ws).InstallBundle(context.Background(), b, testPlatforms(t, "claude"), ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)

	got := readFile(t, filepath.Join(ws.Root, ".mcp.json"))
	assert.NotContains(t, got, "//")
	assert.JSONEq(t, `{"mcpServers":{"db":{"command":"db-mcp"}}}`, got)
}

func TestInstaller_DryRunWritesNothing(t *testing.T) {
	ws := newTestWorkspace(t)
	b := dirBundle(t, "kit", map[string]string{"commands/a.md": "a"})

	plan, err := NewInstaller(ws).InstallBundle(context.Background(), b, testPlatforms(t, "claude"), ws.Index, NewTransaction(context.Background(), ws), true)
	require.NoError(t, err)

	require.Len(t, plan.Copies, 1)
	assert.Equal(t, ".claude/commands/a.md", plan.Copies[0].Target)
	assert.NoDirExists(t, filepath.Join(ws.Root, ".claude"))
	_, ok := ws.Index.Find("kit")
	assert.False(t, ok)
}

func TestInstaller_LaterBundleTakesOverPath(t *testing.T) {
	ws := newTestWorkspace(t)
	a := dirBundle(t, "@acme/kit", map[string]string{"commands/x.md": "from git"})
	a.Source = BundleSource{Kind: SourceGit, Git: GitSource{URL: "https://github.com/acme/kit.git"}}
	a.Commit = testCommit
	b := dirBundle(t, "local", map[string]string{"commands/x.md": "from dir"})
	in := NewInstaller(ws)
	platforms := testPlatforms(t, "claude")

	tx := NewTransaction(context.Background(), ws)
	_, err := in.InstallBundle(context.Background(), a, platforms, ws.Index, tx, false)
	require.NoError(t, err)
	plan, err := in.InstallBundle(context.Background(), b, platforms, ws.Index, tx, false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, ActionOverwrite, plan.Copies[0].Action)
	assert.Equal(t, "from dir", readFile(t, filepath.Join(ws.Root, ".claude", "commands", "x.md")))
	owner, ok := ws.Index.Owner(".claude/commands/x.md")
	require.True(t, ok)
	assert.Equal(t, "local", owner)
	entry, ok := ws.Index.Find("@acme/kit")
	require.True(t, ok)
	assert.Empty(t, entry.Enabled)

	// Installing the first bundle again makes it the provider again.
	_, err = in.InstallBundle(context.Background(), a, platforms, ws.Index, NewTransaction(context.Background(), ws), false)
	require.NoError(t, err)
	assert.Equal(t, "from git", readFile(t, filepath.Join(ws.Root, ".claude", "commands", "x.md")))
	owner, _ = ws.Index.Owner(".claude/commands/x.md")
	assert.Equal(t, "@acme/kit", owner)
	local, _ := ws.Index.Find("local")
	assert.Empty(t, local.Enabled)
}

func TestInstaller_RollbackRemovesFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFiles(t, ws.Root, map[string]string{".claude/commands/keep.md": "user file"})
	b := dirBundle(t, "kit", map[string]string{
		"commands/keep.md": "bundle version",
		"commands/new.md":  "new",
	})

	tx := NewTransaction(context.Background(), ws)
	_, err := NewInstaller(ws).InstallBundle(context.Background(), b, testPlatforms(t, "claude", "gemini"), ws.Index, tx, false)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(ws.Root, ".gemini", "commands", "new.md"))
	tx.Rollback()

	assert.Equal(t, "user file", readFile(t, filepath.Join(ws.Root, ".claude", "commands", "keep.md")))
	assert.NoFileExists(t, filepath.Join(ws.Root, ".claude", "commands", "new.md"))
	assert.NoDirExists(t, filepath.Join(ws.Root, ".gemini"))
}
