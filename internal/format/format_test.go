package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barysiuk/kitrow/internal/core"
)

func sampleBundles() []core.BundleInfo {
	skill := core.Skill{Dir: "skills/pdf", Metadata: &core.SkillMetadata{Name: "pdf", Description: "Read PDFs"}}
	return []core.BundleInfo{
		{
			Name:        "@acme/tools",
			Type:        "git",
			Source:      "https://github.com/acme/tools.git",
			Ref:         "main",
			Commit:      "0123456789abcdef0123456789abcdef01234567",
			Hash:        "blake3:abc",
			Version:     "1.2.0",
			Description: "Tools for **Acme** projects.",
			Declared:    true,
			Files:       []string{"commands/a.md"},
			Installed:   map[string][]string{"commands/a.md": {".claude/commands/a.md", ".cursor/commands/a.md"}},
			Skills:      []core.Skill{skill},
		},
		{
			Name:   "local",
			Type:   "dir",
			Source: "bundles/local",
			Hash:   "blake3:def",
			Files:  []string{},
		},
	}
}

func TestNew(t *testing.T) {
	for _, name := range append(Names, "") {
		f, err := New(name, 0)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := New("xml", 0)
	assert.Error(t, err)
}

func TestSimpleFormatter_List(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SimpleFormatter{Width: 80}).FormatList(&buf, sampleBundles()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "@acme/tools  git    2  https://github.com/acme/tools.git@0123456"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "local        dir    0  bundles/local"), lines[1])
}

func TestSimpleFormatter_Truncates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SimpleFormatter{Width: 20}).FormatList(&buf, sampleBundles()[:1]))
	line := strings.TrimRight(buf.String(), "\n")
	assert.LessOrEqual(t, len([]rune(line)), 20)
	assert.True(t, strings.HasSuffix(line, "…"))
}

func TestSimpleFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SimpleFormatter{Width: 80}).FormatList(&buf, nil))
	assert.Equal(t, "No bundles installed.\n", buf.String())
}

func TestSimpleFormatter_Bundle(t *testing.T) {
	b := sampleBundles()[0]
	var buf bytes.Buffer
	require.NoError(t, (&SimpleFormatter{Width: 80}).FormatBundle(&buf, &b))

	out := buf.String()
	assert.Contains(t, out, "Name:        @acme/tools\n")
	assert.Contains(t, out, "Ref:         main\n")
	assert.Contains(t, out, "  skills/pdf - Read PDFs\n")
	assert.Contains(t, out, "  commands/a.md\n    -> .claude/commands/a.md\n    -> .cursor/commands/a.md\n")
	assert.NotContains(t, out, "License:")
}

func TestDetailedFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&DetailedFormatter{Width: 80}).FormatList(&buf, sampleBundles()))

	out := buf.String()
	assert.Contains(t, out, "@acme/tools")
	assert.Contains(t, out, "v1.2.0")
	assert.Contains(t, out, "Tools for")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "installed (2)")
	assert.Contains(t, out, ".cursor/commands/a.md")
	assert.Contains(t, out, "Read PDFs")
	assert.Contains(t, out, "bundles/local")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).FormatList(&buf, sampleBundles()))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "@acme/tools", got[0]["name"])
	assert.Equal(t, true, got[0]["declared"])
	assert.NotContains(t, got[1], "commit")

	buf.Reset()
	require.NoError(t, (&JSONFormatter{}).FormatList(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
