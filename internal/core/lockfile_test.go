package core

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func gitEntry(name string) LockedBundle {
	return LockedBundle{
		Name: name,
		Source: LockedSource{
			Type:   lockSourceGit,
			URL:    "https://github.com/acme/" + name + ".git",
			Ref:    "main",
			Commit: strings.Repeat("a", 40),
			Hash:   HashPrefix + "00",
		},
	}
}

func dirEntry(name string) LockedBundle {
	return LockedBundle{
		Name:   name,
		Source: LockedSource{Type: lockSourceDir, Path: "bundles/" + name, Hash: HashPrefix + "11"},
	}
}

func names(lf *Lockfile) string { return strings.Join(lf.Names(), ",") }

func TestLockfile_AddBundleOrdering(t *testing.T) {
	lf := NewLockfile("ws")
	lf.AddBundle(gitEntry("g1"))
	lf.AddBundle(dirEntry("d1"))
	lf.AddBundle(gitEntry("g2"))
	lf.AddBundle(dirEntry("d2"))
	lf.AddBundle(gitEntry("g3"))

	if got, want := names(lf), "g1,g2,g3,d1,d2"; got != want {
		t.Errorf("order = %s, want %s", got, want)
	}

	// Replacing keeps the slot.
	replaced := gitEntry("g2")
	replaced.Source.Commit = strings.Repeat("b", 40)
	lf.AddBundle(replaced)
	if got, want := names(lf), "g1,g2,g3,d1,d2"; got != want {
		t.Errorf("order after replace = %s, want %s", got, want)
	}
	if b, _ := lf.Find("g2"); b.Source.Commit != strings.Repeat("b", 40) {
		t.Errorf("g2 commit not replaced: %q", b.Source.Commit)
	}
}

func TestLockfile_ReorganizeWorkspaceLast(t *testing.T) {
	lf := NewLockfile("ws")
	self := dirEntry("ws")
	self.Source.Path = ".kitrow"
	lf.Bundles = []LockedBundle{dirEntry("d1"), self, gitEntry("g1"), dirEntry("d2"), gitEntry("g2")}

	lf.Reorganize("ws")
	if got, want := names(lf), "g1,g2,d1,d2,ws"; got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

// Any interleaving of adds followed by Reorganize yields git < dir < self.
func TestLockfile_OrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		lf := NewLockfile("ws")
		var gitOrder []string
		n := rng.Intn(12)
		for i := 0; i < n; i++ {
			switch rng.Intn(3) {
			case 0:
				name := fmt.Sprintf("g%d", i)
				gitOrder = append(gitOrder, name)
				lf.AddBundle(gitEntry(name))
			case 1:
				lf.AddBundle(dirEntry(fmt.Sprintf("d%d", i)))
			default:
				lf.AddBundle(dirEntry("ws"))
			}
		}
		lf.Reorganize("ws")

		seenDir, seenSelf := false, false
		var gotGit []string
		for _, b := range lf.Bundles {
			switch {
			case b.Name == "ws":
				seenSelf = true
			case b.IsGit():
				if seenDir || seenSelf {
					t.Fatalf("round %d: git entry %s after dir/self: %s", round, b.Name, names(lf))
				}
				gotGit = append(gotGit, b.Name)
			default:
				if seenSelf {
					t.Fatalf("round %d: dir entry %s after self: %s", round, b.Name, names(lf))
				}
				seenDir = true
			}
		}
		if !reflect.DeepEqual(gotGit, gitOrder) {
			t.Fatalf("round %d: git order = %v, want %v", round, gotGit, gitOrder)
		}
	}
}

func TestLockfile_ReorderFromManifest(t *testing.T) {
	lf := NewLockfile("ws")
	lf.Bundles = []LockedBundle{gitEntry("g1"), gitEntry("g2"), dirEntry("d1"), dirEntry("d2"), dirEntry("ws"), dirEntry("extra")}

	lf.ReorderFromManifest([]BundleDependency{
		{Name: "d2", Path: "./d2"},
		{Name: "ws", Path: "."},
		{Name: "g2", Git: "acme/g2"},
		{Name: "d1", Path: "./d1"},
		{Name: "g1", Git: "acme/g1"},
	}, "ws")

	if got, want := names(lf), "g2,g1,d2,d1,extra,ws"; got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestLockfile_EqualsIsOrderSensitive(t *testing.T) {
	a := NewLockfile("ws")
	a.AddBundle(gitEntry("g1"))
	a.AddBundle(gitEntry("g2"))

	b := a.Clone()
	if !a.Equals(b) {
		t.Fatal("clone should be equal")
	}

	b.Bundles[0], b.Bundles[1] = b.Bundles[1], b.Bundles[0]
	if a.Equals(b) {
		t.Error("swapped order should not be equal")
	}

	c := a.Clone()
	c.Bundles[1].Source.Commit = strings.Repeat("c", 40)
	if a.Equals(c) {
		t.Error("different commit should not be equal")
	}

	d := a.Clone()
	d.Bundles[1].Files = []string{"commands/x.md"}
	if !a.Equals(d) {
		t.Error("file lists are not part of equality")
	}
}

func TestLockfile_JSONRoundTripSortsFiles(t *testing.T) {
	lf := NewLockfile("ws")
	b := dirEntry("local")
	b.Files = []string{"commands/zebra.md", "agents/alpha.md"}
	lf.AddBundle(gitEntry("remote"))
	lf.AddBundle(b)

	data, err := lf.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	s := string(data)
	if strings.Index(s, "agents/alpha.md") > strings.Index(s, "commands/zebra.md") {
		t.Errorf("files not sorted:\n%s", s)
	}
	if !strings.HasSuffix(s, "}\n") {
		t.Error("expected trailing newline")
	}

	back, err := LockfileFromJSON(data)
	if err != nil {
		t.Fatalf("LockfileFromJSON() error: %v", err)
	}
	if !lf.Equals(back) {
		t.Errorf("round trip not equal:\n%s", s)
	}
	// Caller's slice is left untouched.
	if b.Files[0] != "commands/zebra.md" {
		t.Error("ToJSON mutated the caller's file list")
	}
}

func TestLockfileFromJSON_DirPathDefaultsToDot(t *testing.T) {
	lf, err := LockfileFromJSON([]byte(`{"name":"ws","bundles":[{"name":"self","source":{"type":"dir","hash":"blake3:ab"},"files":[]}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lf.Bundles[0].Source.Path; got != "." {
		t.Errorf("path = %q, want \".\"", got)
	}
}

func TestLockfileFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"syntax", `{"name":`, ErrConfigParseFailed},
		{"absolute", `{"name":"ws","bundles":[{"name":"a","source":{"type":"dir","path":"/home/me/a","hash":"blake3:ab"}}]}`, ErrBundleValidationFailed},
		{"drive", `{"name":"ws","bundles":[{"name":"a","source":{"type":"dir","path":"C:/a","hash":"blake3:ab"}}]}`, ErrBundleValidationFailed},
		{"prefix", `{"name":"ws","bundles":[{"name":"a","source":{"type":"dir","path":"a","hash":"ab"}}]}`, ErrConfigInvalid},
		{"type", `{"name":"ws","bundles":[{"name":"a","source":{"type":"svn","hash":"blake3:ab"}}]}`, ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LockfileFromJSON([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadLockfile_NotExists(t *testing.T) {
	lf, err := ReadLockfile(filepath.Join(t.TempDir(), lockfileFileName))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lf != nil {
		t.Fatalf("expected nil lockfile, got %+v", lf)
	}
}

func TestNewLockedBundle_Directory(t *testing.T) {
	root := t.TempDir()
	bundleDir := filepath.Join(root, "bundles", "kit")
	if err := os.MkdirAll(filepath.Join(bundleDir, "commands"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundleDir, "commands", "a.md"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	rb := &ResolvedBundle{
		Name:     "kit",
		Path:     bundleDir,
		Source:   BundleSource{Kind: SourceDirectory, Path: "./bundles/kit"},
		Manifest: &Manifest{Name: "kit", Description: "Kit", License: "MIT"},
	}
	lb, err := newLockedBundle(root, rb, []string{"commands/a.md"})
	if err != nil {
		t.Fatalf("newLockedBundle() error: %v", err)
	}
	if lb.Source.Type != lockSourceDir || lb.Source.Path != "bundles/kit" {
		t.Errorf("source = %+v", lb.Source)
	}
	if !strings.HasPrefix(lb.Source.Hash, HashPrefix) {
		t.Errorf("hash = %q", lb.Source.Hash)
	}
	if lb.Description != "Kit" || lb.License != "MIT" {
		t.Errorf("metadata not copied: %+v", lb)
	}
}
