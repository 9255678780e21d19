// Package platform defines the AI tools kitrow installs bundles for.
//
// A Platform is data, not code: a directory, the files that signal its use
// in a workspace, and an ordered list of glob → template rules that map a
// bundle-relative resource path to workspace-relative install paths.
// Builtin platforms register themselves from init; a workspace may add or
// override definitions with a platforms.yaml file.
package platform

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Rule maps bundle paths matching Glob to the path produced by Template.
//
// Glob syntax: "**/" matches zero or more directories, "*" matches within
// one path segment, "?" matches one character. Each "**/" and "*" captures
// what it matched. In Template, "**/" and "*" tokens are replaced by the
// captures left to right, and "{name}" by the source file name without its
// extension.
type Rule struct {
	Glob     string `yaml:"glob"`
	Template string `yaml:"template"`

	re *regexp.Regexp
}

// Platform is one target AI tool.
type Platform struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Dir     string   `yaml:"dir"`
	Signals []string `yaml:"signals,omitempty"` // paths whose presence marks the platform as in use
	Rules   []Rule   `yaml:"rules,omitempty"`
	// LegacyRuleExt, when set, gives every rules/*.md resource an extra
	// install path in Dir/rules with this extension.
	LegacyRuleExt string `yaml:"legacyRuleExt,omitempty"`
}

// Target is one install location produced by Transform.
type Target struct {
	Platform string
	// Path is workspace-relative with forward slashes.
	Path string
}

var legacyRulePattern = regexp.MustCompile(`^rules/[^/]+\.md$`)

func (p *Platform) compile() error {
	if p.ID == "" {
		return fmt.Errorf("platform without an id")
	}
	if p.Dir == "" {
		return fmt.Errorf("platform %q has no dir", p.ID)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	for i := range p.Rules {
		re, err := compileGlob(p.Rules[i].Glob)
		if err != nil {
			return fmt.Errorf("platform %q: rule %q: %w", p.ID, p.Rules[i].Glob, err)
		}
		p.Rules[i].re = re
	}
	return nil
}

// Paths returns every workspace-relative install path of the resource at
// relPath (bundle-relative) in category. All matching rules apply, in rule
// order. When none matches, the resource goes to Dir/<category>/<file>, or
// Dir/<file> for root resources.
func (p *Platform) Paths(relPath, category string) []string {
	rel := strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), "./")
	stem := fileStem(rel)

	var out []string
	for _, r := range p.Rules {
		if r.re == nil {
			continue
		}
		m := r.re.FindStringSubmatch(rel)
		if m == nil {
			continue
		}
		out = appendUnique(out, expandTemplate(r.Template, m[1:], stem))
	}
	if len(out) == 0 {
		if category == "root" {
			out = append(out, path.Join(p.Dir, path.Base(rel)))
		} else {
			out = append(out, path.Join(p.Dir, category, path.Base(rel)))
		}
	}
	if p.LegacyRuleExt != "" && legacyRulePattern.MatchString(rel) {
		out = appendUnique(out, path.Join(p.Dir, "rules", stem+p.LegacyRuleExt))
	}
	return out
}

// Transform fans a resource out to every platform, dropping duplicate paths
// shared by several platforms.
func Transform(relPath, category string, platforms []*Platform) []Target {
	var out []Target
	seen := make(map[string]bool)
	for _, p := range platforms {
		for _, dst := range p.Paths(relPath, category) {
			if seen[dst] {
				continue
			}
			seen[dst] = true
			out = append(out, Target{Platform: p.ID, Path: dst})
		}
	}
	return out
}

func compileGlob(glob string) (*regexp.Regexp, error) {
	if glob == "" {
		return nil, fmt.Errorf("empty glob")
	}
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); {
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			b.WriteString(`((?:.*/)?)`)
			i += 3
		case strings.HasPrefix(glob[i:], "**"):
			b.WriteString(`(.*)`)
			i += 2
		case glob[i] == '*':
			b.WriteString(`([^/]*)`)
			i++
		case glob[i] == '?':
			b.WriteString(`[^/]`)
			i++
		default:
			b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
			i++
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func expandTemplate(tmpl string, captures []string, stem string) string {
	var b strings.Builder
	next := func() string {
		if len(captures) == 0 {
			return ""
		}
		c := captures[0]
		captures = captures[1:]
		return c
	}
	for i := 0; i < len(tmpl); {
		switch {
		case strings.HasPrefix(tmpl[i:], "{name}"):
			b.WriteString(stem)
			i += len("{name}")
		case strings.HasPrefix(tmpl[i:], "**/"):
			b.WriteString(next())
			i += 3
		case strings.HasPrefix(tmpl[i:], "**"):
			b.WriteString(next())
			i += 2
		case tmpl[i] == '*':
			b.WriteString(next())
			i++
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}
	return path.Clean(b.String())
}

func fileStem(rel string) string {
	base := path.Base(rel)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
