package core

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndexConfig records which installed paths each bundle produced, keyed by
// the bundle-relative source file. Entry order mirrors the lockfile.
type IndexConfig struct {
	Name    string        `yaml:"name"`
	Bundles []IndexBundle `yaml:"bundles"`
}

// IndexBundle is the enabled-map of one bundle.
type IndexBundle struct {
	Name    string              `yaml:"name"`
	Enabled map[string][]string `yaml:"enabled"`
}

func indexName(b IndexBundle) string { return b.Name }

// NewIndexConfig returns an empty index for the named workspace.
func NewIndexConfig(name string) *IndexConfig {
	return &IndexConfig{Name: name, Bundles: []IndexBundle{}}
}

// Find returns the entry named name.
func (c *IndexConfig) Find(name string) (*IndexBundle, bool) {
	for i := range c.Bundles {
		if c.Bundles[i].Name == name {
			return &c.Bundles[i], true
		}
	}
	return nil, false
}

// Upsert replaces the enabled-map of bundle name, appending a new entry if
// it does not exist yet. Before recording, it claims every path in enabled
// away from other bundles: an earlier bundle loses its entry for the same
// source file and any installed path the new map also lists.
func (c *IndexConfig) Upsert(name string, enabled map[string][]string) {
	claimed := make(map[string]bool)
	for _, targets := range enabled {
		for _, t := range targets {
			claimed[t] = true
		}
	}
	for i := range c.Bundles {
		other := &c.Bundles[i]
		if other.Name == name {
			continue
		}
		for src, targets := range other.Enabled {
			if _, ok := enabled[src]; ok {
				delete(other.Enabled, src)
				continue
			}
			kept := slices.DeleteFunc(slices.Clone(targets), func(t string) bool { return claimed[t] })
			if len(kept) == 0 {
				delete(other.Enabled, src)
			} else {
				other.Enabled[src] = kept
			}
		}
	}

	normalized := make(map[string][]string, len(enabled))
	for src, targets := range enabled {
		normalized[src] = sortedUnique(targets)
	}
	if b, ok := c.Find(name); ok {
		b.Enabled = normalized
		return
	}
	c.Bundles = append(c.Bundles, IndexBundle{Name: name, Enabled: normalized})
}

// Remove drops the entry named name. It reports whether one was removed.
func (c *IndexConfig) Remove(name string) bool {
	for i := range c.Bundles {
		if c.Bundles[i].Name == name {
			c.Bundles = slices.Delete(c.Bundles, i, i+1)
			return true
		}
	}
	return false
}

// Owner returns the bundle currently recorded as providing installed path target.
func (c *IndexConfig) Owner(target string) (string, bool) {
	for _, b := range c.Bundles {
		for _, targets := range b.Enabled {
			if slices.Contains(targets, target) {
				return b.Name, true
			}
		}
	}
	return "", false
}

// InstalledPaths returns every installed path of bundle name, sorted.
func (b *IndexBundle) InstalledPaths() []string {
	var out []string
	for _, targets := range b.Enabled {
		out = append(out, targets...)
	}
	return sortedUnique(out)
}

// ReorderToLockfile arranges entries in lockfile order. Entries the
// lockfile does not know keep their relative order before the workspace's
// own entry, which always stays last.
func (c *IndexConfig) ReorderToLockfile(lf *Lockfile) {
	c.Bundles = orderBy(c.Bundles, indexName, lf.Names())
	classify := func(b IndexBundle) EntryClass {
		if lb, ok := lf.Find(b.Name); ok {
			return classifyLocked(lb)
		}
		return ClassDir
	}
	c.Bundles = Reorder(c.Bundles, indexName, classify, lf.Name)
}

// Marshal encodes the index as YAML. Enabled keys and path lists are
// sorted, and a blank line follows the name line and separates bundle entries.
func (c *IndexConfig) Marshal() ([]byte, error) {
	out := IndexConfig{Name: c.Name, Bundles: make([]IndexBundle, len(c.Bundles))}
	for i, b := range c.Bundles {
		enabled := make(map[string][]string, len(b.Enabled))
		for k, v := range b.Enabled {
			enabled[k] = sortedUnique(v)
		}
		out.Bundles[i] = IndexBundle{Name: b.Name, Enabled: enabled}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("marshaling index: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling index: %w", err)
	}
	return spaceIndexYAML(buf.Bytes()), nil
}

// spaceIndexYAML inserts the blank lines of the index file layout.
func spaceIndexYAML(data []byte) []byte {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var b strings.Builder
	entryIndent := ""
	entries := 0
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		indent := line[:len(line)-len(trimmed)]
		if strings.HasPrefix(trimmed, "- name: ") && (entryIndent == "" || indent == entryIndent) {
			entryIndent = indent
			if entries > 0 {
				b.WriteString("\n")
			}
			entries++
		}
		b.WriteString(line)
		b.WriteString("\n")
		if i == 0 && strings.HasPrefix(line, "name:") {
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

// ParseIndexConfig decodes index YAML.
func ParseIndexConfig(data []byte) (*IndexConfig, error) {
	var c IndexConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: index: %v", ErrConfigParseFailed, err)
	}
	if c.Bundles == nil {
		c.Bundles = []IndexBundle{}
	}
	for i := range c.Bundles {
		if c.Bundles[i].Name == "" {
			return nil, fmt.Errorf("%w: index entry without a name", ErrConfigInvalid)
		}
		if c.Bundles[i].Enabled == nil {
			c.Bundles[i].Enabled = map[string][]string{}
		}
	}
	return &c, nil
}

// ReadIndexConfig reads the index at path. Returns nil, nil if the file does not exist.
func ReadIndexConfig(path string) (*IndexConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
	}
	return ParseIndexConfig(data)
}

func sortedUnique(in []string) []string {
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}
