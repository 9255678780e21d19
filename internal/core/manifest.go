package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the user-authored kitrow.yaml. The same schema describes a
// workspace and a publishable bundle.
type Manifest struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Version     string             `yaml:"version,omitempty"`
	Author      string             `yaml:"author,omitempty"`
	License     string             `yaml:"license,omitempty"`
	Homepage    string             `yaml:"homepage,omitempty"`
	Bundles     []BundleDependency `yaml:"bundles,omitempty"`
}

// BundleDependency is one manifest entry. Exactly one of Path or Git is set.
type BundleDependency struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path,omitempty"`
	Git    string `yaml:"git,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
	Subdir string `yaml:"subdir,omitempty"`
}

// Validate checks that the dependency names exactly one source.
func (d BundleDependency) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: dependency without a name", ErrBundleValidationFailed)
	case d.Path != "" && d.Git != "":
		return fmt.Errorf("%w: dependency %q sets both path and git", ErrBundleValidationFailed, d.Name)
	case d.Path == "" && d.Git == "":
		return fmt.Errorf("%w: dependency %q needs either path or git", ErrBundleValidationFailed, d.Name)
	case d.Path != "" && (d.Ref != "" || d.Subdir != ""):
		return fmt.Errorf("%w: dependency %q: ref and subdir only apply to git", ErrBundleValidationFailed, d.Name)
	}
	return nil
}

// Source converts the dependency into a BundleSource. Relative paths are
// returned unchanged; the resolver anchors them.
func (d BundleDependency) Source() (BundleSource, error) {
	if err := d.Validate(); err != nil {
		return BundleSource{}, err
	}
	if d.Path != "" {
		return BundleSource{Kind: SourceDirectory, Path: d.Path}, nil
	}
	if strings.HasPrefix(d.Git, "file://") {
		// A file:// URL without a fragment parses as a directory; here it
		// names a repository.
		return BundleSource{Kind: SourceGit, Git: GitSource{URL: d.Git, Ref: d.Ref, Subdir: d.Subdir}}, nil
	}
	src, err := ParseSource(d.Git)
	if err != nil {
		return BundleSource{}, fmt.Errorf("dependency %q: %w", d.Name, err)
	}
	if src.Kind != SourceGit {
		return BundleSource{}, fmt.Errorf("%w: dependency %q: git field %q is not a git URL",
			ErrBundleValidationFailed, d.Name, d.Git)
	}
	if d.Ref != "" {
		src.Git.Ref = d.Ref
	}
	if d.Subdir != "" {
		src.Git.Subdir = d.Subdir
	}
	return src, nil
}

// Dependency returns the entry named name, if declared.
func (m *Manifest) Dependency(name string) (BundleDependency, bool) {
	for _, d := range m.Bundles {
		if d.Name == name {
			return d, true
		}
	}
	return BundleDependency{}, false
}

// AddDependency appends d unless a dependency with the same name exists.
// It reports whether the manifest changed.
func (m *Manifest) AddDependency(d BundleDependency) bool {
	if _, ok := m.Dependency(d.Name); ok {
		return false
	}
	m.Bundles = append(m.Bundles, d)
	return true
}

// RemoveDependency drops the entry named name. It reports whether one was removed.
func (m *Manifest) RemoveDependency(name string) bool {
	for i, d := range m.Bundles {
		if d.Name == name {
			m.Bundles = append(m.Bundles[:i], m.Bundles[i+1:]...)
			return true
		}
	}
	return false
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrConfigParseFailed, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: manifest has no name", ErrConfigInvalid)
	}
	for _, d := range m.Bundles {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// Marshal encodes the manifest as YAML with two-space indentation.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadBundleManifest reads kitrow.yaml from a bundle directory.
// Returns nil, nil when the bundle has no manifest.
func LoadBundleManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, manifestFileName), err)
	}
	return m, nil
}
