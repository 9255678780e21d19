package format

import (
	"encoding/json"
	"io"

	"github.com/barysiuk/kitrow/internal/core"
)

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) FormatList(w io.Writer, bundles []core.BundleInfo) error {
	if bundles == nil {
		bundles = []core.BundleInfo{}
	}
	return encode(w, bundles)
}

func (f *JSONFormatter) FormatBundle(w io.Writer, b *core.BundleInfo) error {
	return encode(w, b)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
