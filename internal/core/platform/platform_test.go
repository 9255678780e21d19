package platform

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestBuiltinRegistry(t *testing.T) {
	all := Default().All()
	got := IDs(all)
	sort.Strings(got)
	want := []string{"claude", "codex", "copilot", "cursor", "gemini", "opencode", "windsurf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("builtin IDs = %v, want %v", got, want)
	}
}

func TestByNames_Unknown(t *testing.T) {
	_, err := Default().ByNames([]string{"claude", "nope"})
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
	if !strings.Contains(err.Error(), `unknown platform "nope"`) || !strings.Contains(err.Error(), "cursor") {
		t.Errorf("error = %q", err)
	}
}

func TestPaths(t *testing.T) {
	reg := Default()
	tests := []struct {
		platform, rel, category string
		want                    []string
	}{
		{"claude", "commands/review.md", "commands", []string{".claude/commands/review.md"}},
		{"claude", "commands/git/commit.md", "commands", []string{".claude/commands/git/commit.md"}},
		{"claude", "skills/pdf/SKILL.md", "skills", []string{".claude/skills/pdf/SKILL.md"}},
		{"claude", "AGENTS.md", "root", []string{"CLAUDE.md"}},
		{"claude", "mcp.jsonc", "root", []string{".mcp.json"}},
		{"claude", "mcp_servers/db.json", "mcp_servers", []string{".claude/mcp_servers/db.json"}},
		{"claude", "root/.editorconfig", "root", []string{".editorconfig"}},
		{"claude", "root/docs/guide.md", "root", []string{"docs/guide.md"}},
		{"cursor", "rules/style.md", "rules", []string{".cursor/rules/style.md", ".cursor/rules/style.mdc"}},
		{"cursor", "rules/nested/style.md", "rules", []string{".cursor/rules/style.md"}},
		{"copilot", "commands/git/commit.md", "commands", []string{".github/prompts/git/commit.prompt.md"}},
		{"copilot", "rules/go.md", "rules", []string{".github/instructions/go.instructions.md"}},
		{"copilot", "mcp.jsonc", "root", []string{".vscode/mcp.json"}},
		{"opencode", "mcp.jsonc", "root", []string{".opencode/mcp.jsonc"}},
		{"codex", "skills/pdf/run.py", "skills", []string{".agents/skills/pdf/run.py"}},
		{"windsurf", "commands/deploy.md", "commands", []string{".windsurf/workflows/deploy.md"}},
	}
	for _, tt := range tests {
		p, ok := reg.ByName(tt.platform)
		if !ok {
			t.Fatalf("platform %q not registered", tt.platform)
		}
		got := p.Paths(tt.rel, tt.category)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s.Paths(%q) = %v, want %v", tt.platform, tt.rel, got, tt.want)
		}
	}
}

func TestPaths_AllMatchingRulesApply(t *testing.T) {
	p := &Platform{
		ID:  "multi",
		Dir: ".multi",
		Rules: []Rule{
			{Glob: "commands/*.md", Template: ".multi/commands/*.md"},
			{Glob: "commands/**/*", Template: ".multi/prompts/{name}.txt"},
			{Glob: "commands/*.md", Template: ".multi/commands/*.md"},
		},
	}
	if err := p.compile(); err != nil {
		t.Fatal(err)
	}
	got := p.Paths("commands/a.md", "commands")
	want := []string{".multi/commands/a.md", ".multi/prompts/a.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}

func TestTransform_FansOutAndDedupes(t *testing.T) {
	reg := Default()
	platforms, err := reg.ByNames([]string{"cursor", "codex", "opencode"})
	if err != nil {
		t.Fatal(err)
	}
	got := Transform("AGENTS.md", "root", platforms)
	if len(got) != 1 || got[0].Path != "AGENTS.md" || got[0].Platform != "cursor" {
		t.Errorf("Transform(AGENTS.md) = %+v, want one shared AGENTS.md", got)
	}

	got = Transform("commands/a.md", "commands", platforms)
	var paths []string
	for _, tg := range got {
		paths = append(paths, tg.Path)
	}
	want := []string{".cursor/commands/a.md", ".codex/prompts/a.md", ".opencode/command/a.md"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("Transform(commands/a.md) = %v, want %v", paths, want)
	}
}

func TestCompileGlob(t *testing.T) {
	tests := []struct {
		glob, path string
		match      bool
	}{
		{"commands/*.md", "commands/a.md", true},
		{"commands/*.md", "commands/x/a.md", false},
		{"commands/**/*.md", "commands/a.md", true},
		{"commands/**/*.md", "commands/x/y/a.md", true},
		{"rules/?.md", "rules/a.md", true},
		{"rules/?.md", "rules/ab.md", false},
		{"a.b", "axb", false},
	}
	for _, tt := range tests {
		re, err := compileGlob(tt.glob)
		if err != nil {
			t.Fatalf("compileGlob(%q): %v", tt.glob, err)
		}
		if got := re.MatchString(tt.path); got != tt.match {
			t.Errorf("%q matches %q = %v, want %v", tt.glob, tt.path, got, tt.match)
		}
	}
}

func TestDetect(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".cursor"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "GEMINI.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := IDs(Default().Detect(root))
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"cursor", "gemini"}) {
		t.Errorf("Detect() = %v", got)
	}
}

func TestLoadFile_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "platforms.yaml")
	data := `platforms:
  - id: claude
    name: Claude (custom)
    dir: .claude
    rules:
      - glob: "commands/**/*"
        template: ".claude/custom/**/*"
  - id: zed
    dir: .zed
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	extra, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	reg := Default().With(extra)

	claude, _ := reg.ByName("claude")
	if got := claude.Paths("commands/a.md", "commands"); !reflect.DeepEqual(got, []string{".claude/custom/a.md"}) {
		t.Errorf("overridden claude Paths() = %v", got)
	}
	zed, ok := reg.ByName("zed")
	if !ok {
		t.Fatal("zed not added")
	}
	if zed.Name != "zed" {
		t.Errorf("Name = %q, want id fallback", zed.Name)
	}
	if got := zed.Paths("rules/a.md", "rules"); !reflect.DeepEqual(got, []string{".zed/rules/a.md"}) {
		t.Errorf("zed Paths() = %v", got)
	}

	if orig, _ := Default().ByName("claude"); orig.Name != "Claude Code" {
		t.Error("With() must not modify the default registry")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	got, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil || got != nil {
		t.Errorf("LoadFile(missing) = %v, %v", got, err)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("platforms:\n  - id: x\n")); err == nil {
		t.Error("expected error for platform without dir")
	}
}
