package core

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// skillMarkerFile marks a directory under skills/ as a skill.
const skillMarkerFile = "SKILL.md"

// SkillMetadata is the YAML frontmatter of a SKILL.md file.
type SkillMetadata struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Metadata    struct {
		Author  string `yaml:"author" json:"author,omitempty"`
		Version string `yaml:"version" json:"version,omitempty"`
	} `yaml:"metadata" json:"metadata"`
}

// Skill is a leaf skill directory found in a bundle.
type Skill struct {
	// Dir is bundle-relative with forward slashes, e.g. "skills/pdf".
	Dir      string         `json:"dir"`
	Metadata *SkillMetadata `json:"metadata,omitempty"`
}

// Discover walks a bundle directory and returns its resource files, tagged
// by category, in category then path order. Files under skills/ are
// reduced to those of leaf skill directories.
func Discover(dir string) ([]Resource, error) {
	var out []Resource
	for _, cat := range categoryDirs {
		catDir := filepath.Join(dir, string(cat))
		if !dirExists(catDir) {
			continue
		}
		var found []Resource
		err := filepath.WalkDir(catDir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			found = append(found, Resource{Category: cat, Path: filepath.ToSlash(rel), AbsPath: p})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %v", ErrFileReadFailed, catDir, err)
		}
		if cat == CategorySkills {
			found = filterSkills(found)
		}
		out = append(out, found...)
	}

	for _, name := range rootFiles {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			out = append(out, Resource{Category: CategoryRoot, Path: name, AbsPath: p})
		}
	}
	return out, nil
}

// filterSkills keeps only files that belong to a leaf skill directory: the
// nearest ancestor directory carrying a SKILL.md must not itself contain a
// deeper skill directory. Bare files directly under skills/ never qualify.
func filterSkills(resources []Resource) []Resource {
	markers := make(map[string]bool)
	for _, r := range resources {
		if path.Base(r.Path) == skillMarkerFile {
			if d := path.Dir(r.Path); d != string(CategorySkills) {
				markers[d] = true
			}
		}
	}

	nonLeaf := make(map[string]bool)
	for m := range markers {
		for d := path.Dir(m); d != "." && d != string(CategorySkills); d = path.Dir(d) {
			if markers[d] {
				nonLeaf[d] = true
			}
		}
	}

	var kept []Resource
	for _, r := range resources {
		owner := nearestMarker(r.Path, markers)
		if owner != "" && !nonLeaf[owner] {
			kept = append(kept, r)
		}
	}
	return kept
}

func nearestMarker(p string, markers map[string]bool) string {
	for d := path.Dir(p); d != "." && d != string(CategorySkills); d = path.Dir(d) {
		if markers[d] {
			return d
		}
	}
	return ""
}

// DiscoverSkills returns the leaf skills of a bundle with their parsed
// frontmatter, sorted by directory. Skills whose SKILL.md cannot be parsed
// are returned without metadata.
func DiscoverSkills(dir string) ([]Skill, error) {
	resources, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	var skills []Skill
	for _, r := range resources {
		if r.Category != CategorySkills || path.Base(r.Path) != skillMarkerFile {
			continue
		}
		meta, err := ParseSkillFrontmatter(r.AbsPath)
		if err != nil {
			meta = nil
		}
		skills = append(skills, Skill{Dir: path.Dir(r.Path), Metadata: meta})
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Dir < skills[j].Dir })
	return skills, nil
}

// ParseSkillFrontmatter reads the YAML frontmatter of a SKILL.md file.
func ParseSkillFrontmatter(p string) (*SkillMetadata, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileReadFailed, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: empty file: %s", ErrConfigInvalid, p)
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		return nil, fmt.Errorf("%w: no frontmatter in %s", ErrConfigInvalid, p)
	}

	var frontmatter strings.Builder
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		frontmatter.WriteString(line)
		frontmatter.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFileReadFailed, p, err)
	}
	if !closed {
		return nil, fmt.Errorf("%w: unterminated frontmatter in %s", ErrConfigInvalid, p)
	}

	var meta SkillMetadata
	if err := yaml.Unmarshal([]byte(frontmatter.String()), &meta); err != nil {
		return nil, fmt.Errorf("%w: frontmatter in %s: %v", ErrConfigParseFailed, p, err)
	}
	if meta.Name == "" {
		return nil, fmt.Errorf("%w: %s has no name", ErrConfigInvalid, p)
	}
	return &meta, nil
}
