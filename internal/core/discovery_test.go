package core

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resourcePaths(rs []Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Path
	}
	return out
}

func TestDiscover_Categories(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"kitrow.yaml":               "name: b\n",
		"README.md":                 "not a resource",
		"commands/review.md":        "r",
		"commands/nested/deploy.md": "d",
		"rules/style.md":            "s",
		"agents/helper.md":          "a",
		"hooks/pre.json":            "{}",
		"mcp_servers/db.json":       "{}",
		"root/.editorconfig":        "root = true",
		"AGENTS.md":                 "# agents",
		"mcp.jsonc":                 "{}",
	})

	got, err := Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"commands/nested/deploy.md",
		"commands/review.md",
		"rules/style.md",
		"agents/helper.md",
		"hooks/pre.json",
		"mcp_servers/db.json",
		"root/.editorconfig",
		"AGENTS.md",
		"mcp.jsonc",
	}, resourcePaths(got))

	for _, r := range got {
		switch r.Path {
		case "AGENTS.md", "mcp.jsonc", "root/.editorconfig":
			assert.Equal(t, CategoryRoot, r.Category, r.Path)
		}
		assert.Equal(t, filepath.Join(dir, filepath.FromSlash(r.Path)), r.AbsPath)
	}
}

func TestDiscover_EmptyBundle(t *testing.T) {
	got, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscover_SkillsLeafFilter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"skills/a/SKILL.md":      "---\nname: a\n---\n",
		"skills/a/notes.md":      "ancestor content",
		"skills/a/b/SKILL.md":    "---\nname: b\n---\n",
		"skills/a/b/run.py":      "print()",
		"skills/a/b/lib/util.py": "x = 1",
		"skills/loose.zip":       "zip",
		"skills/c/SKILL.md":      "---\nname: c\n---\n",
		"skills/d/orphan.md":     "no marker",
	})

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"skills/a/b/SKILL.md",
		"skills/a/b/lib/util.py",
		"skills/a/b/run.py",
		"skills/c/SKILL.md",
	}, resourcePaths(got))
}

// Every kept skill file must sit under a leaf marker directory, whatever
// the shape of the tree.
func TestFilterSkills_RandomTrees(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		var rs []Resource
		markers := map[string]bool{}
		for i := 0; i < 12; i++ {
			depth := 1 + rng.Intn(3)
			segs := []string{"skills"}
			for d := 0; d < depth; d++ {
				segs = append(segs, fmt.Sprintf("s%d", rng.Intn(3)))
			}
			dirPath := strings.Join(segs, "/")
			name := "file.md"
			if rng.Intn(2) == 0 {
				name = skillMarkerFile
				markers[dirPath] = true
			}
			rs = append(rs, Resource{Category: CategorySkills, Path: dirPath + "/" + name})
		}
		rs = append(rs, Resource{Category: CategorySkills, Path: "skills/bare.md"})

		for _, r := range filterSkills(rs) {
			owner := nearestMarker(r.Path, markers)
			require.NotEmpty(t, owner, "kept %s without a marker", r.Path)
			for m := range markers {
				require.False(t, strings.HasPrefix(m, owner+"/"),
					"kept %s although %s is nested under %s", r.Path, m, owner)
			}
		}
	}
}

func TestDiscoverSkills(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"skills/pdf/SKILL.md":    "---\nname: pdf\ndescription: Work with PDFs\nmetadata:\n  version: \"1.0\"\n---\n# PDF\n",
		"skills/broken/SKILL.md": "no frontmatter",
	})

	got, err := DiscoverSkills(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "skills/broken", got[0].Dir)
	assert.Nil(t, got[0].Metadata)
	assert.Equal(t, "skills/pdf", got[1].Dir)
	require.NotNil(t, got[1].Metadata)
	assert.Equal(t, "Work with PDFs", got[1].Metadata.Description)
	assert.Equal(t, "1.0", got[1].Metadata.Metadata.Version)
}

func TestParseSkillFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"ok.md":           "---\nname: ok\n---\nbody\n",
		"none.md":         "# title\n",
		"noname.md":       "---\ndescription: x\n---\n",
		"unterminated.md": "---\nname: x\n",
	})

	meta, err := ParseSkillFrontmatter(filepath.Join(dir, "ok.md"))
	require.NoError(t, err)
	assert.Equal(t, "ok", meta.Name)

	for _, name := range []string{"none.md", "noname.md", "unterminated.md"} {
		_, err := ParseSkillFrontmatter(filepath.Join(dir, name))
		assert.ErrorIs(t, err, ErrConfigInvalid, name)
	}
	_, err = ParseSkillFrontmatter(filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, ErrFileReadFailed)
}
