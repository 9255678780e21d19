package core

import (
	"errors"
	"testing"
)

func TestParseSource_OwnerRepo(t *testing.T) {
	src, err := ParseSource("vercel-labs/agent-bundles")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if src.Kind != SourceGit {
		t.Fatalf("Kind = %v, want git", src.Kind)
	}
	if src.Git.URL != "https://github.com/vercel-labs/agent-bundles.git" {
		t.Errorf("URL = %q", src.Git.URL)
	}
	if src.Git.Ref != "" || src.Git.Subdir != "" {
		t.Errorf("Ref/Subdir = %q/%q, want empty", src.Git.Ref, src.Git.Subdir)
	}
}

func TestParseSource_GitHubPrefixWithFragment(t *testing.T) {
	tests := []struct {
		input  string
		ref    string
		subdir string
	}{
		{"github:acme/kit#v1.2.0", "v1.2.0", ""},
		{"github:acme/kit#bundles/review", "", "bundles/review"},
		{"acme/kit#main", "main", ""},
		{"acme/kit#plugins/lint/", "", "plugins/lint"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			src, err := ParseSource(tt.input)
			if err != nil {
				t.Fatalf("ParseSource(%q) error: %v", tt.input, err)
			}
			if src.Git.URL != "https://github.com/acme/kit.git" {
				t.Errorf("URL = %q", src.Git.URL)
			}
			if src.Git.Ref != tt.ref {
				t.Errorf("Ref = %q, want %q", src.Git.Ref, tt.ref)
			}
			if src.Git.Subdir != tt.subdir {
				t.Errorf("Subdir = %q, want %q", src.Git.Subdir, tt.subdir)
			}
		})
	}
}

func TestParseSource_FileURL(t *testing.T) {
	src, err := ParseSource("file:///srv/bundles/review")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if src.Kind != SourceDirectory || src.Path != "/srv/bundles/review" {
		t.Errorf("got %+v, want directory /srv/bundles/review", src)
	}

	src, err = ParseSource("file:///srv/repo#develop")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if src.Kind != SourceGit || src.Git.URL != "file:///srv/repo" || src.Git.Ref != "develop" {
		t.Errorf("got %+v, want git file:///srv/repo ref develop", src)
	}

	src, err = ParseSource("file:///srv/repo#bundles/a")
	if err != nil {
		t.Fatalf("ParseSource() error: %v", err)
	}
	if src.Kind != SourceGit || src.Git.Subdir != "bundles/a" || src.Git.Ref != "" {
		t.Errorf("got %+v, want git subdir bundles/a", src)
	}
}

func TestParseSource_LocalPaths(t *testing.T) {
	for _, input := range []string{"./bundles/a", "../shared", "/abs/path", `C:\bundles\a`, "d:/bundles", "."} {
		src, err := ParseSource(input)
		if err != nil {
			t.Fatalf("ParseSource(%q) error: %v", input, err)
		}
		if src.Kind != SourceDirectory {
			t.Errorf("ParseSource(%q).Kind = %v, want dir", input, src.Kind)
		}
		if src.Path != input {
			t.Errorf("ParseSource(%q).Path = %q", input, src.Path)
		}
	}
}

func TestParseSource_VerbatimURLs(t *testing.T) {
	for _, input := range []string{
		"https://gitlab.com/team/bundles.git",
		"git@github.com:acme/kit.git",
		"ssh://git@example.com/acme/kit.git",
	} {
		src, err := ParseSource(input)
		if err != nil {
			t.Fatalf("ParseSource(%q) error: %v", input, err)
		}
		if src.Kind != SourceGit || src.Git.URL != input {
			t.Errorf("ParseSource(%q) = %+v, want verbatim git URL", input, src)
		}
	}
}

func TestParseSource_Errors(t *testing.T) {
	if _, err := ParseSource("   "); !errors.Is(err, ErrInvalidSourceURL) {
		t.Errorf("empty input: err = %v, want ErrInvalidSourceURL", err)
	}
	for _, input := range []string{"just-a-name", "a/b/c", "ftp://host/repo", "github:only-owner"} {
		if _, err := ParseSource(input); !errors.Is(err, ErrSourceParseFailed) {
			t.Errorf("ParseSource(%q): err = %v, want ErrSourceParseFailed", input, err)
		}
	}
}

func TestRepoSlug(t *testing.T) {
	tests := []struct {
		url, owner, repo string
		ok               bool
	}{
		{"https://github.com/acme/kit.git", "acme", "kit", true},
		{"git@github.com:acme/kit.git", "acme", "kit", true},
		{"file:///tmp/work/acme/kit", "acme", "kit", true},
		{"https://example.com", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := repoSlug(tt.url)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("repoSlug(%q) = %q, %q, %v; want %q, %q, %v",
				tt.url, owner, repo, ok, tt.owner, tt.repo, tt.ok)
		}
	}
}

func TestBundleSource_String(t *testing.T) {
	src, _ := ParseSource("acme/kit#bundles/a")
	if got := src.String(); got != "https://github.com/acme/kit.git#bundles/a" {
		t.Errorf("String() = %q", got)
	}
}
