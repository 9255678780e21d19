// Package format renders bundle information for the list and show
// commands. Each output mode is one core.BundleFormatter.
package format

import (
	"fmt"
	"strings"

	"github.com/barysiuk/kitrow/internal/core"
)

// Output modes accepted by New.
const (
	Simple   = "simple"
	Detailed = "detailed"
	JSON     = "json"
)

// Names lists the output modes.
var Names = []string{Simple, Detailed, JSON}

// New returns the formatter for mode. width bounds line length for the
// text modes; zero means 80 columns.
func New(mode string, width int) (core.BundleFormatter, error) {
	if width <= 0 {
		width = 80
	}
	switch mode {
	case Simple, "":
		return &SimpleFormatter{Width: width}, nil
	case Detailed:
		return &DetailedFormatter{Width: width}, nil
	case JSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want one of: %s)", mode, strings.Join(Names, ", "))
	}
}

// sourceLabel renders where a bundle came from in one short string.
func sourceLabel(b core.BundleInfo) string {
	if b.Type != "git" {
		return b.Source
	}
	s := b.Source
	if b.Subdir != "" {
		s += "#" + b.Subdir
	}
	if b.Commit != "" {
		s += "@" + shortCommit(b.Commit)
	}
	return s
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

func installedCount(b core.BundleInfo) int {
	n := 0
	for _, paths := range b.Installed {
		n += len(paths)
	}
	return n
}
