package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Lockfile is the resolved, hash-pinned record of installed bundles.
//
// Entry order is significant: git entries keep their relative order and
// precede every directory entry, and the workspace's own entry, if any, is
// last. Mutators restore that order; Reorganize repairs it after bulk edits.
type Lockfile struct {
	Name    string         `json:"name"`
	Bundles []LockedBundle `json:"bundles"`
}

// LockedBundle is one lockfile entry.
type LockedBundle struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Version     string       `json:"version,omitempty"`
	Author      string       `json:"author,omitempty"`
	License     string       `json:"license,omitempty"`
	Homepage    string       `json:"homepage,omitempty"`
	Source      LockedSource `json:"source"`
	Files       []string     `json:"files"`
}

// LockedSource pins where a bundle came from. For "dir" sources Path is
// relative to the workspace root; for "git" sources it is the subdirectory
// inside the repository.
type LockedSource struct {
	Type   string `json:"type"`
	Path   string `json:"path,omitempty"`
	URL    string `json:"url,omitempty"`
	Ref    string `json:"ref,omitempty"`
	Commit string `json:"commit,omitempty"`
	Hash   string `json:"hash"`
}

const (
	lockSourceDir = "dir"
	lockSourceGit = "git"
)

// IsGit reports whether the entry was fetched from git.
func (b LockedBundle) IsGit() bool { return b.Source.Type == lockSourceGit }

func lockedName(b LockedBundle) string { return b.Name }

func classifyLocked(b LockedBundle) EntryClass {
	if b.IsGit() {
		return ClassGit
	}
	return ClassDir
}

// NewLockfile returns an empty lockfile for the named workspace.
func NewLockfile(name string) *Lockfile {
	return &Lockfile{Name: name, Bundles: []LockedBundle{}}
}

// Find returns the entry named name.
func (lf *Lockfile) Find(name string) (LockedBundle, bool) {
	for _, b := range lf.Bundles {
		if b.Name == name {
			return b, true
		}
	}
	return LockedBundle{}, false
}

// Names returns entry names in lockfile order.
func (lf *Lockfile) Names() []string {
	names := make([]string, len(lf.Bundles))
	for i, b := range lf.Bundles {
		names[i] = b.Name
	}
	return names
}

// AddBundle inserts or replaces an entry. An existing entry with the same
// name is replaced in place. A new directory entry is appended; a new git
// entry is inserted before the first directory entry so it lands at the
// tail of the git block.
func (lf *Lockfile) AddBundle(b LockedBundle) {
	for i := range lf.Bundles {
		if lf.Bundles[i].Name == b.Name {
			lf.Bundles[i] = b
			return
		}
	}
	if !b.IsGit() {
		lf.Bundles = append(lf.Bundles, b)
		return
	}
	at := len(lf.Bundles)
	for i, existing := range lf.Bundles {
		if !existing.IsGit() {
			at = i
			break
		}
	}
	lf.Bundles = slices.Insert(lf.Bundles, at, b)
}

// RemoveBundle drops the entry named name. It reports whether one was removed.
func (lf *Lockfile) RemoveBundle(name string) bool {
	for i, b := range lf.Bundles {
		if b.Name == name {
			lf.Bundles = slices.Delete(lf.Bundles, i, i+1)
			return true
		}
	}
	return false
}

// Reorganize restores git < dir < workspace ordering while keeping the
// relative order inside each block.
func (lf *Lockfile) Reorganize(workspaceName string) {
	lf.Bundles = Reorder(lf.Bundles, lockedName, classifyLocked, workspaceName)
}

// ReorderFromManifest arranges entries in the order the manifest declares
// them. Entries the manifest does not mention keep their relative order
// after the declared ones. Block ordering is then re-applied, so manifest
// order wins inside each block and the workspace entry stays last.
func (lf *Lockfile) ReorderFromManifest(deps []BundleDependency, workspaceName string) {
	order := make([]string, len(deps))
	for i, d := range deps {
		order[i] = d.Name
	}
	lf.Bundles = orderBy(lf.Bundles, lockedName, order)
	lf.Reorganize(workspaceName)
}

// Equals reports whether both lockfiles hold the same entries in the same
// order with the same sources. It backs the frozen-install check.
func (lf *Lockfile) Equals(other *Lockfile) bool {
	if lf == nil || other == nil {
		return lf == other
	}
	if len(lf.Bundles) != len(other.Bundles) {
		return false
	}
	for i := range lf.Bundles {
		a, b := lf.Bundles[i], other.Bundles[i]
		if a.Name != b.Name || a.Source != b.Source {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (lf *Lockfile) Clone() *Lockfile {
	out := &Lockfile{Name: lf.Name, Bundles: make([]LockedBundle, len(lf.Bundles))}
	for i, b := range lf.Bundles {
		b.Files = slices.Clone(b.Files)
		out.Bundles[i] = b
	}
	return out
}

// Validate checks the persisted invariants of every entry.
func (lf *Lockfile) Validate() error {
	for _, b := range lf.Bundles {
		if b.Name == "" {
			return fmt.Errorf("%w: lockfile entry without a name", ErrConfigInvalid)
		}
		if !strings.HasPrefix(b.Source.Hash, HashPrefix) {
			return fmt.Errorf("%w: lockfile entry %q: hash %q lacks %q prefix",
				ErrConfigInvalid, b.Name, b.Source.Hash, HashPrefix)
		}
		switch b.Source.Type {
		case lockSourceDir:
			if isAbsolutePath(b.Source.Path) {
				return fmt.Errorf("%w: lockfile entry %q has non-portable absolute path %q",
					ErrBundleValidationFailed, b.Name, b.Source.Path)
			}
		case lockSourceGit:
			if b.Source.URL == "" || b.Source.Commit == "" {
				return fmt.Errorf("%w: git entry %q needs url and commit", ErrConfigInvalid, b.Name)
			}
		default:
			return fmt.Errorf("%w: lockfile entry %q has unknown source type %q",
				ErrConfigInvalid, b.Name, b.Source.Type)
		}
	}
	return nil
}

// ToJSON encodes the lockfile as indented JSON with a trailing newline.
// Each entry's file list is sorted.
func (lf *Lockfile) ToJSON() ([]byte, error) {
	if err := lf.Validate(); err != nil {
		return nil, err
	}
	out := lf.Clone()
	for i := range out.Bundles {
		if out.Bundles[i].Files == nil {
			out.Bundles[i].Files = []string{}
		}
		sort.Strings(out.Bundles[i].Files)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling lockfile: %w", err)
	}
	return append(data, '\n'), nil
}

// LockfileFromJSON decodes and validates lockfile JSON. A directory source
// without a path reads as ".".
func LockfileFromJSON(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("%w: lockfile: %v", ErrConfigParseFailed, err)
	}
	if lf.Bundles == nil {
		lf.Bundles = []LockedBundle{}
	}
	for i := range lf.Bundles {
		if lf.Bundles[i].Source.Type == lockSourceDir && lf.Bundles[i].Source.Path == "" {
			lf.Bundles[i].Source.Path = "."
		}
	}
	if err := lf.Validate(); err != nil {
		return nil, err
	}
	return &lf, nil
}

// ReadLockfile reads and parses the lockfile at path.
// Returns nil, nil if the file does not exist.
func ReadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
	}
	return LockfileFromJSON(data)
}

// newLockedBundle builds the lockfile entry for a resolved bundle.
// files are bundle-relative resource paths.
func newLockedBundle(workspaceRoot string, rb *ResolvedBundle, files []string) (LockedBundle, error) {
	hash, err := HashDir(rb.Path)
	if err != nil {
		return LockedBundle{}, err
	}
	lb := LockedBundle{Name: rb.Name, Files: slices.Clone(files)}
	if m := rb.Manifest; m != nil {
		lb.Description = m.Description
		lb.Version = m.Version
		lb.Author = m.Author
		lb.License = m.License
		lb.Homepage = m.Homepage
	}

	switch rb.Source.Kind {
	case SourceGit:
		lb.Source = LockedSource{
			Type:   lockSourceGit,
			URL:    rb.Source.Git.URL,
			Ref:    rb.Ref,
			Commit: rb.Commit,
			Path:   rb.Source.Git.Subdir,
			Hash:   hash,
		}
	case SourceDirectory:
		rel, err := filepath.Rel(workspaceRoot, rb.Path)
		if err != nil {
			return LockedBundle{}, fmt.Errorf("%w: bundle %q at %s cannot be expressed relative to the workspace: %v",
				ErrBundleValidationFailed, rb.Name, rb.Path, err)
		}
		lb.Source = LockedSource{Type: lockSourceDir, Path: filepath.ToSlash(rel), Hash: hash}
	default:
		return LockedBundle{}, fmt.Errorf("%w: bundle %q has unknown source kind", ErrBundleValidationFailed, rb.Name)
	}
	return lb, nil
}

// isAbsolutePath treats both POSIX and drive-letter paths as absolute on
// every platform, since lockfiles travel between machines.
func isAbsolutePath(p string) bool {
	return path.IsAbs(p) || filepath.IsAbs(p) || drivePathPattern.MatchString(p)
}
