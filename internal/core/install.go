package core

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/barysiuk/kitrow/internal/core/platform"
	"github.com/barysiuk/kitrow/internal/logging"
)

// platformsFileName holds workspace platform definitions inside the config
// directory.
const platformsFileName = "platforms.yaml"

// InstallOptions configures Install.
type InstallOptions struct {
	// Sources to add. Empty means a full sync of the manifest.
	Sources []string
	// WorkDir anchors relative directory sources. Defaults to the workspace root.
	WorkDir string
	// Platforms are explicit platform IDs. Empty means detect.
	Platforms []string
	// DefaultPlatforms apply when none are given or detected.
	DefaultPlatforms []string
	DryRun           bool
	// Frozen fails instead of changing the lockfile or manifest.
	Frozen bool
	// Update re-resolves git refs instead of reusing locked commits.
	Update bool
	// Select picks among several bundles found at one source.
	Select SelectFunc
}

// InstallResult summarizes an install.
type InstallResult struct {
	Platforms []string
	Bundles   []*BundlePlan
	// Pruned names lockfile entries dropped by a full sync.
	Pruned []string
	DryRun bool
}

// LoadPlatforms returns the builtin platforms merged with the workspace's
// platforms.yaml, if present.
func LoadPlatforms(ws *Workspace) (*platform.Registry, error) {
	extra, err := platform.LoadFile(filepath.Join(ws.ConfigDir, platformsFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return platform.Default().With(extra), nil
}

// SelectPlatforms picks the install targets: the explicit IDs, else the
// platforms detected in the workspace, else the configured defaults.
func SelectPlatforms(reg *platform.Registry, root string, explicit, defaults []string) ([]*platform.Platform, error) {
	if len(explicit) > 0 {
		ps, err := reg.ByNames(explicit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		return ps, nil
	}
	if detected := reg.Detect(root); len(detected) > 0 {
		return detected, nil
	}
	if len(defaults) > 0 {
		ps, err := reg.ByNames(defaults)
		if err != nil {
			return nil, fmt.Errorf("%w: default platforms: %v", ErrConfigInvalid, err)
		}
		return ps, nil
	}
	return nil, fmt.Errorf("%w: pass --platform or configure default platforms (known: %s)",
		ErrNoPlatformsDetected, strings.Join(platform.IDs(reg.All()), ", "))
}

// Install resolves the requested sources, or everything the manifest
// declares, and installs them for the selected platforms. The manifest,
// lockfile and index are updated under one transaction: any failure leaves
// the workspace as it was.
func Install(ctx context.Context, ws *Workspace, cache *CacheStore, opts InstallOptions) (_ *InstallResult, err error) {
	log := logging.FromContext(ctx)

	reg, err := LoadPlatforms(ws)
	if err != nil {
		return nil, err
	}
	platforms, err := SelectPlatforms(reg, ws.Root, opts.Platforms, opts.DefaultPlatforms)
	if err != nil {
		return nil, err
	}

	full := len(opts.Sources) == 0
	reqs, err := installRequests(ws, opts.Sources)
	if err != nil {
		return nil, err
	}
	workDir := opts.WorkDir
	if full {
		workDir = ws.Root
	}
	resolver := NewResolver(cache, ws, ResolveOptions{Update: opts.Update, WorkDir: workDir, Select: opts.Select})
	res, err := resolver.Resolve(ctx, reqs)
	if err != nil {
		return nil, err
	}

	manifest := cloneManifest(ws.Manifest)
	if !full {
		addToManifest(manifest, ws, res)
	}
	manifestChanged, err := manifestDiffers(ws, manifest)
	if err != nil {
		return nil, err
	}

	result := &InstallResult{Platforms: platform.IDs(platforms), DryRun: opts.DryRun}
	if full {
		for _, name := range ws.Lockfile.Names() {
			if _, ok := res.Find(name); !ok {
				result.Pruned = append(result.Pruned, name)
			}
		}
	}

	if opts.Frozen {
		if manifestChanged {
			return nil, fmt.Errorf("%w: the manifest would change", ErrLockfileOutdated)
		}
		want, err := computeLock(ws, manifest, res, result.Pruned)
		if err != nil {
			return nil, err
		}
		if !want.Equals(ws.Lockfile) {
			return nil, fmt.Errorf("%w: run install without --frozen to update %s",
				ErrLockfileOutdated, ws.Rel(ws.LockfilePath()))
		}
	}

	if opts.DryRun {
		index := cloneIndex(ws.Index)
		in := NewInstaller(ws)
		for _, rb := range res.Bundles {
			plan, err := in.InstallBundle(ctx, rb, platforms, index, nil, true)
			if err != nil {
				return nil, err
			}
			result.Bundles = append(result.Bundles, plan)
		}
		return result, nil
	}

	guard, err := ws.Lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = guard.Release() }()

	tx := NewTransaction(ctx, ws)
	defer tx.Rollback()
	guard.track(tx)
	defer func() {
		if err == nil {
			return
		}
		tx.Rollback()
		if lerr := ws.Load(); lerr != nil {
			log.Warn("reloading workspace after rollback", "error", lerr)
		}
	}()
	if err := tx.BackupConfigs(); err != nil {
		return nil, err
	}

	// The self bundle's hash covers the manifest, so it is written first.
	if manifestChanged || !ws.Initialized() {
		ws.Manifest = manifest
		if err := ws.SaveManifest(tx); err != nil {
			return nil, err
		}
	}
	lock, err := computeLock(ws, ws.Manifest, res, result.Pruned)
	if err != nil {
		return nil, err
	}

	for _, name := range result.Pruned {
		removed, err := removeInstalled(ws, name, tx)
		if err != nil {
			return nil, fmt.Errorf("pruning %q: %w", name, err)
		}
		log.Debug("pruned bundle", "name", name, "files", len(removed))
	}

	in := NewInstaller(ws)
	for _, rb := range res.Bundles {
		plan, err := in.InstallBundle(ctx, rb, platforms, ws.Index, tx, false)
		if err != nil {
			return nil, err
		}
		result.Bundles = append(result.Bundles, plan)
	}

	ws.Lockfile = lock
	if err := ws.Save(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// installRequests turns sources into resolver requests. Without sources
// it requests every manifest dependency under its declared name, plus the
// workspace's own bundle when it has resources.
func installRequests(ws *Workspace, sources []string) ([]Request, error) {
	var reqs []Request
	if len(sources) > 0 {
		for _, s := range sources {
			src, err := ParseSource(s)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, Request{Source: src})
		}
		return reqs, nil
	}

	for _, dep := range ws.Manifest.Bundles {
		src, err := dep.Source()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, Request{Source: src, Name: dep.Name})
	}
	resources, err := Discover(ws.SelfPath())
	if err != nil {
		return nil, err
	}
	if len(resources) > 0 {
		reqs = append(reqs, Request{Source: BundleSource{Kind: SourceDirectory, Path: ws.SelfPath()}})
	}
	return reqs, nil
}

// addToManifest declares each directly requested bundle in m. Directory
// bundles inside the workspace are recorded with a "./"-relative path.
func addToManifest(m *Manifest, ws *Workspace, res *Resolution) {
	for _, rb := range res.Bundles {
		if rb.DependencyOf != "" || rb.Name == ws.Name() {
			continue
		}
		dep := BundleDependency{Name: rb.Name}
		switch rb.Source.Kind {
		case SourceDirectory:
			dep.Path = manifestPath(ws.Root, rb.Path)
		case SourceGit:
			dep.Git = rb.Source.Git.URL
			dep.Ref = rb.Source.Git.Ref
			dep.Subdir = rb.Source.Git.Subdir
		}
		m.AddDependency(dep)
	}
}

func manifestPath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return rel
	}
	return "./" + rel
}

// computeLock derives the lockfile an install of res produces.
func computeLock(ws *Workspace, m *Manifest, res *Resolution, pruned []string) (*Lockfile, error) {
	lf := ws.Lockfile.Clone()
	lf.Name = m.Name
	for _, name := range pruned {
		lf.RemoveBundle(name)
	}
	for _, rb := range res.Bundles {
		resources, err := Discover(rb.Path)
		if err != nil {
			return nil, fmt.Errorf("bundle %q: %w", rb.Name, err)
		}
		files := make([]string, len(resources))
		for i, r := range resources {
			files[i] = r.Path
		}
		lb, err := newLockedBundle(ws.Root, rb, files)
		if err != nil {
			return nil, err
		}
		lf.AddBundle(lb)
	}
	lf.Reorganize(m.Name)
	lf.ReorderFromManifest(m.Bundles, m.Name)
	return lf, nil
}

func manifestDiffers(ws *Workspace, m *Manifest) (bool, error) {
	before, err := ws.Manifest.Marshal()
	if err != nil {
		return false, err
	}
	after, err := m.Marshal()
	if err != nil {
		return false, err
	}
	return !bytes.Equal(before, after), nil
}

func cloneManifest(m *Manifest) *Manifest {
	out := *m
	out.Bundles = append([]BundleDependency(nil), m.Bundles...)
	return &out
}

func cloneIndex(c *IndexConfig) *IndexConfig {
	out := &IndexConfig{Name: c.Name, Bundles: make([]IndexBundle, len(c.Bundles))}
	for i, b := range c.Bundles {
		enabled := make(map[string][]string, len(b.Enabled))
		for k, v := range b.Enabled {
			enabled[k] = append([]string(nil), v...)
		}
		out.Bundles[i] = IndexBundle{Name: b.Name, Enabled: enabled}
	}
	return out
}
