package core

import (
	"fmt"
	"io"
)

// BundleInfo is the read-only view of an installed bundle used by list
// and show.
type BundleInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	Ref         string `json:"ref,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Subdir      string `json:"subdir,omitempty"`
	Hash        string `json:"hash"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Author      string `json:"author,omitempty"`
	License     string `json:"license,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
	// Declared is true for bundles listed in the workspace manifest.
	Declared bool `json:"declared"`
	// Self marks the workspace's own bundle.
	Self  bool     `json:"self,omitempty"`
	Files []string `json:"files"`
	// Installed maps bundle-relative files to their installed paths.
	Installed map[string][]string `json:"installed,omitempty"`
	// Skills is filled by ShowBundle when the bundle content is available.
	Skills []Skill `json:"skills,omitempty"`
}

// BundleFormatter renders bundle information. Implementations live at the
// CLI boundary, one per output mode.
type BundleFormatter interface {
	FormatList(w io.Writer, bundles []BundleInfo) error
	FormatBundle(w io.Writer, bundle *BundleInfo) error
}

// ListBundles returns every locked bundle in lockfile order.
func ListBundles(ws *Workspace) []BundleInfo {
	out := make([]BundleInfo, 0, len(ws.Lockfile.Bundles))
	for _, lb := range ws.Lockfile.Bundles {
		out = append(out, bundleInfo(ws, lb))
	}
	return out
}

// ShowBundle returns the details of bundle name, including the skills it
// ships when its content is on disk or in cache.
func ShowBundle(ws *Workspace, cache *CacheStore, name string) (*BundleInfo, error) {
	lb, ok := ws.Lockfile.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not installed", ErrBundleNotFound, name)
	}
	info := bundleInfo(ws, lb)
	dir, found, err := locateBundle(ws, cache, lb)
	if err != nil {
		return nil, err
	}
	if found {
		skills, err := DiscoverSkills(dir)
		if err != nil {
			return nil, err
		}
		info.Skills = skills
	}
	return &info, nil
}

func bundleInfo(ws *Workspace, lb LockedBundle) BundleInfo {
	info := BundleInfo{
		Name:        lb.Name,
		Type:        lb.Source.Type,
		Hash:        lb.Source.Hash,
		Description: lb.Description,
		Version:     lb.Version,
		Author:      lb.Author,
		License:     lb.License,
		Homepage:    lb.Homepage,
		Self:        lb.Name == ws.Name(),
		Files:       append([]string{}, lb.Files...),
	}
	if lb.IsGit() {
		info.Source = lb.Source.URL
		info.Ref = lb.Source.Ref
		info.Commit = lb.Source.Commit
		info.Subdir = lb.Source.Path
	} else {
		info.Source = lb.Source.Path
	}
	_, info.Declared = ws.Manifest.Dependency(lb.Name)
	if entry, ok := ws.Index.Find(lb.Name); ok && len(entry.Enabled) > 0 {
		info.Installed = make(map[string][]string, len(entry.Enabled))
		for k, v := range entry.Enabled {
			info.Installed[k] = append([]string(nil), v...)
		}
	}
	return info
}
