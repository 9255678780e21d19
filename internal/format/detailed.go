package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/barysiuk/kitrow/internal/core"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	selfBadge  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("(workspace)")
)

// DetailedFormatter prints a block per bundle with metadata, installed
// paths and a rendered description.
type DetailedFormatter struct {
	Width int
}

func (f *DetailedFormatter) FormatList(w io.Writer, bundles []core.BundleInfo) error {
	if len(bundles) == 0 {
		_, err := fmt.Fprintln(w, "No bundles installed.")
		return err
	}
	for i := range bundles {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := f.FormatBundle(w, &bundles[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *DetailedFormatter) FormatBundle(w io.Writer, b *core.BundleInfo) error {
	var sb strings.Builder
	header := titleStyle.Render(b.Name)
	if b.Version != "" {
		header += " " + labelStyle.Render("v"+b.Version)
	}
	if b.Self {
		header += " " + selfBadge
	}
	sb.WriteString(header + "\n")

	row := func(k, v string) {
		if v != "" {
			sb.WriteString("  " + labelStyle.Render(fmt.Sprintf("%-9s", k)) + " " + v + "\n")
		}
	}
	row("source", sourceLabel(*b))
	row("ref", b.Ref)
	row("author", b.Author)
	row("license", b.License)
	row("homepage", b.Homepage)
	row("hash", b.Hash)

	if b.Description != "" {
		desc, err := renderMarkdown(b.Description, f.Width-2)
		if err != nil {
			return err
		}
		sb.WriteString(desc)
	}

	if len(b.Skills) > 0 {
		sb.WriteString("  " + labelStyle.Render("skills") + "\n")
		for _, s := range b.Skills {
			name := s.Dir
			if s.Metadata != nil {
				name = s.Metadata.Name
			}
			sb.WriteString("    " + name)
			if s.Metadata != nil && s.Metadata.Description != "" {
				sb.WriteString(" " + labelStyle.Render(s.Metadata.Description))
			}
			sb.WriteString("\n")
		}
	}

	if len(b.Installed) > 0 {
		sb.WriteString("  " + labelStyle.Render(fmt.Sprintf("installed (%d)", installedCount(*b))) + "\n")
		for _, file := range sortedKeys(b.Installed) {
			sb.WriteString("    " + file + "\n")
			for _, p := range b.Installed[file] {
				sb.WriteString("      " + pathStyle.Render(p) + "\n")
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// renderMarkdown renders text without terminal escapes so output stays
// stable when piped.
func renderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("rendering description: %w", err)
	}
	return out, nil
}
