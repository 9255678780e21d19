package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var builtins []*Platform

// Register adds a builtin platform. It panics on an invalid definition, so
// mistakes surface at program start.
func Register(p *Platform) {
	if err := p.compile(); err != nil {
		panic(err)
	}
	builtins = append(builtins, p)
}

// Registry is an ordered set of platforms.
type Registry struct {
	platforms []*Platform
}

// Default returns a registry holding the builtin platforms.
func Default() *Registry {
	return &Registry{platforms: append([]*Platform(nil), builtins...)}
}

// With returns a copy of r in which extra replaces platforms with the same
// ID and the remaining ones are appended.
func (r *Registry) With(extra []*Platform) *Registry {
	out := &Registry{platforms: append([]*Platform(nil), r.platforms...)}
	for _, p := range extra {
		replaced := false
		for i, existing := range out.platforms {
			if existing.ID == p.ID {
				out.platforms[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out.platforms = append(out.platforms, p)
		}
	}
	return out
}

// All returns every platform in registration order.
func (r *Registry) All() []*Platform { return r.platforms }

// ByName returns the platform with the given ID.
func (r *Registry) ByName(id string) (*Platform, bool) {
	for _, p := range r.platforms {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// ByNames resolves platform IDs, failing on the first unknown one.
func (r *Registry) ByNames(ids []string) ([]*Platform, error) {
	result := make([]*Platform, 0, len(ids))
	for _, id := range ids {
		p, ok := r.ByName(id)
		if !ok {
			return nil, fmt.Errorf("unknown platform %q; available: %s",
				id, strings.Join(IDs(r.platforms), ", "))
		}
		result = append(result, p)
	}
	return result, nil
}

// Detect returns the platforms in use in the workspace at root.
func (r *Registry) Detect(root string) []*Platform {
	var detected []*Platform
	for _, p := range r.platforms {
		if p.ActiveIn(root) {
			detected = append(detected, p)
		}
	}
	return detected
}

// ActiveIn reports whether any signal file or directory exists in root.
// A platform without signals is detected by its directory.
func (p *Platform) ActiveIn(root string) bool {
	signals := p.Signals
	if len(signals) == 0 {
		signals = []string{p.Dir}
	}
	for _, rel := range signals {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
			return true
		}
	}
	return false
}

// IDs returns the IDs of the given platforms.
func IDs(platforms []*Platform) []string {
	ids := make([]string, len(platforms))
	for i, p := range platforms {
		ids[i] = p.ID
	}
	return ids
}
