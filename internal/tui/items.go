package tui

import (
	"fmt"
	"io"

	"github.com/barysiuk/kitrow/internal/core"
)

// Choice is one row of a picker.
type Choice struct {
	Title       string
	Description string
}

// bundleChoices converts resolved bundles to picker rows.
func bundleChoices(bundles []*core.ResolvedBundle) []Choice {
	out := make([]Choice, len(bundles))
	for i, b := range bundles {
		c := Choice{Title: b.Name}
		if b.Manifest != nil && b.Manifest.Description != "" {
			c.Description = b.Manifest.Description
		} else if b.Source.Git.Subdir != "" {
			c.Description = b.Source.Git.Subdir
		}
		out[i] = c
	}
	return out
}

// BundleSelector returns a core.SelectFunc that lets the user choose among
// the bundles a single source provides.
func BundleSelector(in io.Reader, out io.Writer) core.SelectFunc {
	return func(source string, candidates []*core.ResolvedBundle) ([]*core.ResolvedBundle, error) {
		title := fmt.Sprintf("%s provides %d bundles. Select the ones to install:", source, len(candidates))
		idx, err := Pick(in, out, title, bundleChoices(candidates))
		if err != nil {
			return nil, err
		}
		picked := make([]*core.ResolvedBundle, 0, len(idx))
		for _, i := range idx {
			picked = append(picked, candidates[i])
		}
		return picked, nil
	}
}
