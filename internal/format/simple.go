package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/barysiuk/kitrow/internal/core"
)

// SimpleFormatter prints one aligned line per bundle.
type SimpleFormatter struct {
	Width int
}

func (f *SimpleFormatter) FormatList(w io.Writer, bundles []core.BundleInfo) error {
	if len(bundles) == 0 {
		_, err := fmt.Fprintln(w, "No bundles installed.")
		return err
	}
	nameW := 0
	for _, b := range bundles {
		nameW = max(nameW, ansi.StringWidth(b.Name))
	}
	for _, b := range bundles {
		name := b.Name + strings.Repeat(" ", nameW-ansi.StringWidth(b.Name))
		line := fmt.Sprintf("%s  %-3s  %3d  %s", name, b.Type, installedCount(b), sourceLabel(b))
		if _, err := fmt.Fprintln(w, ansi.Truncate(line, f.Width, "…")); err != nil {
			return err
		}
	}
	return nil
}

func (f *SimpleFormatter) FormatBundle(w io.Writer, b *core.BundleInfo) error {
	var sb strings.Builder
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "%-12s %s\n", k+":", v)
		}
	}
	field("Name", b.Name)
	field("Type", b.Type)
	field("Source", b.Source)
	field("Subdir", b.Subdir)
	field("Ref", b.Ref)
	field("Commit", b.Commit)
	field("Version", b.Version)
	field("Author", b.Author)
	field("License", b.License)
	field("Homepage", b.Homepage)
	field("Hash", b.Hash)
	field("Description", b.Description)

	if len(b.Skills) > 0 {
		sb.WriteString("Skills:\n")
		for _, s := range b.Skills {
			line := "  " + s.Dir
			if s.Metadata != nil && s.Metadata.Description != "" {
				line += " - " + s.Metadata.Description
			}
			sb.WriteString(ansi.Truncate(line, f.Width, "…") + "\n")
		}
	}
	if len(b.Files) > 0 {
		sb.WriteString("Files:\n")
		for _, file := range b.Files {
			sb.WriteString("  " + file + "\n")
			for _, p := range b.Installed[file] {
				sb.WriteString("    -> " + p + "\n")
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
