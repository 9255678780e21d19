package core

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/barysiuk/kitrow/internal/logging"
)

// Request asks the resolver for the bundle(s) at Source. Name, when set,
// is the name the bundle is declared under and takes precedence over the
// name the bundle gives itself.
type Request struct {
	Source BundleSource
	Name   string
}

// SelectFunc picks which of several bundles found at one source to keep.
type SelectFunc func(source string, candidates []*ResolvedBundle) ([]*ResolvedBundle, error)

// ResolveOptions tunes a Resolver.
type ResolveOptions struct {
	// Update ignores commits pinned in the lockfile and re-resolves refs.
	Update bool
	// WorkDir anchors relative directory sources of top-level requests.
	// Defaults to the workspace root.
	WorkDir string
	// Select is consulted when a top-level source yields several bundles.
	// Nil keeps all of them.
	Select SelectFunc
}

// Resolution is a validated set of bundles.
type Resolution struct {
	// Bundles are in dependency order: every bundle follows the bundles it
	// depends on. Unrelated bundles keep the order they were requested in.
	Bundles []*ResolvedBundle
	// Graph maps each bundle name to the dependency names it declares.
	Graph map[string][]string
}

// Find returns the bundle named name.
func (r *Resolution) Find(name string) (*ResolvedBundle, bool) {
	for _, b := range r.Bundles {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Names returns bundle names in resolution order.
func (r *Resolution) Names() []string {
	names := make([]string, len(r.Bundles))
	for i, b := range r.Bundles {
		names[i] = b.Name
	}
	return names
}

// Resolver turns bundle sources into ResolvedBundles, following each
// bundle's own manifest dependencies.
type Resolver struct {
	cache *CacheStore
	ws    *Workspace
	opts  ResolveOptions
}

// NewResolver returns a resolver fetching git sources through cache. ws
// supplies the workspace name, declared aliases and locked commits.
func NewResolver(cache *CacheStore, ws *Workspace, opts ResolveOptions) *Resolver {
	if opts.WorkDir == "" {
		opts.WorkDir = ws.Root
	}
	return &Resolver{cache: cache, ws: ws, opts: opts}
}

// ResolveStrings parses each source string and resolves the result.
func (r *Resolver) ResolveStrings(ctx context.Context, sources []string) (*Resolution, error) {
	reqs := make([]Request, 0, len(sources))
	for _, s := range sources {
		src, err := ParseSource(s)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, Request{Source: src})
	}
	return r.Resolve(ctx, reqs)
}

type resolveState struct {
	byName map[string]*ResolvedBundle
	order  []*ResolvedBundle
	graph  map[string][]string
}

func (s *resolveState) add(b *ResolvedBundle) bool {
	if _, ok := s.byName[b.Name]; ok {
		return false
	}
	s.byName[b.Name] = b
	s.order = append(s.order, b)
	return true
}

// Resolve resolves reqs and, recursively, every dependency their
// manifests declare. Bundles are merged by name: the first bundle resolved
// under a name wins. The result is validated: every declared dependency
// must be present and the graph must be acyclic.
func (r *Resolver) Resolve(ctx context.Context, reqs []Request) (*Resolution, error) {
	log := logging.FromContext(ctx)
	st := &resolveState{byName: map[string]*ResolvedBundle{}, graph: map[string][]string{}}

	for _, req := range reqs {
		bundles, err := r.resolveSource(ctx, req.Source, req.Name, r.opts.WorkDir)
		if err != nil {
			return nil, err
		}
		if len(bundles) > 1 && req.Name == "" && r.opts.Select != nil {
			bundles, err = r.opts.Select(req.Source.String(), bundles)
			if err != nil {
				return nil, err
			}
		}
		for _, b := range bundles {
			if !st.add(b) {
				log.Debug("bundle already resolved", "name", b.Name)
			}
		}
	}

	// st.order grows while dependencies are discovered.
	for i := 0; i < len(st.order); i++ {
		parent := st.order[i]
		if parent.Manifest == nil {
			continue
		}
		for _, dep := range parent.Manifest.Bundles {
			if alias, ok := r.dependencyAlias(parent, dep); ok {
				dep.Name = alias
			}
			st.graph[parent.Name] = append(st.graph[parent.Name], dep.Name)
			if _, ok := st.byName[dep.Name]; ok {
				continue
			}
			b, err := r.resolveDependency(ctx, parent, dep)
			if err != nil {
				return nil, err
			}
			if b == nil {
				continue
			}
			b.DependencyOf = parent.Name
			st.add(b)
		}
	}

	if err := validateGraph(st.graph, st.byName); err != nil {
		return nil, err
	}
	sorted, err := topoSort(st.order, st.graph)
	if err != nil {
		return nil, err
	}
	return &Resolution{Bundles: sorted, Graph: st.graph}, nil
}

// resolveDependency resolves one manifest entry of parent. It returns nil
// when the source holds no bundle under the declared name; validation then
// reports the dependency as missing.
func (r *Resolver) resolveDependency(ctx context.Context, parent *ResolvedBundle, dep BundleDependency) (*ResolvedBundle, error) {
	src, err := dep.Source()
	if err != nil {
		return nil, fmt.Errorf("bundle %q: %w", parent.Name, err)
	}

	anchor := parent.Path
	if r.isSelf(parent) {
		anchor = r.ws.Root
	}
	if src.Kind == SourceDirectory && parent.IsGit() && !filepath.IsAbs(expandPath(src.Path)) {
		src, err = siblingInRepo(parent, src.Path)
		if err != nil {
			return nil, err
		}
	}

	bundles, err := r.resolveSource(ctx, src, dep.Name, anchor)
	if err != nil {
		return nil, fmt.Errorf("dependency %q of %q: %w", dep.Name, parent.Name, err)
	}
	for _, b := range bundles {
		if b.Name == dep.Name {
			return b, nil
		}
	}
	return nil, nil
}

// siblingInRepo turns a relative path dependency of a git bundle into a
// source in the same repository at the same commit.
func siblingInRepo(parent *ResolvedBundle, rel string) (BundleSource, error) {
	sub := path.Clean(path.Join(parent.Source.Git.Subdir, filepath.ToSlash(rel)))
	if sub == ".." || strings.HasPrefix(sub, "../") {
		return BundleSource{}, fmt.Errorf("%w: dependency path %q of %q escapes its repository",
			ErrBundleValidationFailed, rel, parent.Name)
	}
	if sub == "." {
		sub = ""
	}
	return BundleSource{Kind: SourceGit, Git: GitSource{
		URL:    parent.Source.Git.URL,
		Ref:    parent.Ref,
		Subdir: sub,
		Commit: parent.Commit,
	}}, nil
}

// resolveSource materializes src. A directory source resolves to its
// path, anchored at anchor when relative. A git source goes through the
// cache; a catalog repository may yield several bundles, of which only the
// one matching name is kept when name is set.
func (r *Resolver) resolveSource(ctx context.Context, src BundleSource, name, anchor string) ([]*ResolvedBundle, error) {
	switch src.Kind {
	case SourceDirectory:
		p := expandPath(src.Path)
		if !filepath.IsAbs(p) {
			p = filepath.Join(anchor, p)
		}
		p = filepath.Clean(p)
		if !dirExists(p) {
			return nil, fmt.Errorf("%w: directory %s", ErrBundleNotFound, p)
		}
		m, err := LoadBundleManifest(p)
		if err != nil {
			return nil, err
		}
		rb := &ResolvedBundle{
			Path:     p,
			Source:   BundleSource{Kind: SourceDirectory, Path: p},
			Manifest: m,
		}
		rb.Name = r.nameFor(rb, name, "")
		return []*ResolvedBundle{rb}, nil

	case SourceGit:
		g := src.Git
		if g.Commit == "" && !r.opts.Update {
			if locked, ok := r.lockedSource(g); ok {
				logging.FromContext(ctx).Debug("using locked commit", "url", g.URL, "commit", locked.Commit)
				g.Commit = locked.Commit
				if g.Ref == "" {
					g.Ref = locked.Ref
				}
			}
		}
		cached, err := r.cache.Fetch(ctx, g)
		if err != nil {
			return nil, err
		}
		var out []*ResolvedBundle
		for _, cb := range cached {
			ref := cb.Ref
			if ref == "" {
				ref = g.Ref
			}
			rb := &ResolvedBundle{
				Path: cb.Path,
				Source: BundleSource{Kind: SourceGit, Git: GitSource{
					URL:    g.URL,
					Ref:    g.Ref,
					Subdir: g.Subdir,
					Commit: cb.Commit,
				}},
				Commit:   cb.Commit,
				Ref:      ref,
				Manifest: cb.Manifest,
			}
			if name != "" && len(cached) > 1 {
				if !matchesName(cb, name) {
					continue
				}
			}
			rb.Name = r.nameFor(rb, name, cb.Plugin)
			out = append(out, rb)
		}
		if len(cached) > 0 && len(out) == 0 {
			return nil, fmt.Errorf("%w: %q not found in %s", ErrBundleNotFound, name, g.URL)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown source kind", ErrSourceParseFailed)
	}
}

func matchesName(cb CachedBundle, name string) bool {
	if cb.Plugin == name {
		return true
	}
	return cb.Manifest != nil && cb.Manifest.Name == name
}

// lockedSource finds a lockfile entry fetched from the same repository,
// subdirectory and ref.
func (r *Resolver) lockedSource(g GitSource) (LockedSource, bool) {
	for _, lb := range r.ws.Lockfile.Bundles {
		s := lb.Source
		if !lb.IsGit() || s.URL != g.URL || s.Path != g.Subdir {
			continue
		}
		if g.Ref != "" && s.Ref != g.Ref {
			continue
		}
		return s, true
	}
	return LockedSource{}, false
}

func (r *Resolver) isSelf(b *ResolvedBundle) bool {
	return b.Source.Kind == SourceDirectory && samePath(b.Path, r.ws.SelfPath())
}

// nameFor picks a bundle's name. In order: the workspace name for the
// workspace's own directory, the requested name, the declared name of a
// workspace dependency with the same path, the bundle's manifest name,
// then a name derived from the source.
func (r *Resolver) nameFor(b *ResolvedBundle, requested, plugin string) string {
	if r.isSelf(b) {
		return r.ws.Name()
	}
	if requested != "" {
		return requested
	}
	if b.Source.Kind == SourceDirectory {
		if alias, ok := r.workspaceAlias(b.Path); ok {
			return alias
		}
	}
	if b.Manifest != nil && b.Manifest.Name != "" {
		return b.Manifest.Name
	}
	if plugin != "" {
		return plugin
	}
	switch b.Source.Kind {
	case SourceGit:
		if owner, repo, ok := repoSlug(b.Source.Git.URL); ok {
			name := "@" + owner + "/" + repo
			if b.Source.Git.Subdir != "" {
				name += "/" + b.Source.Git.Subdir
			}
			return name
		}
		return b.Source.Git.URL
	default:
		return filepath.Base(b.Path)
	}
}

// workspaceAlias returns the name under which the workspace manifest
// declares the directory dir.
func (r *Resolver) workspaceAlias(dir string) (string, bool) {
	for _, dep := range r.ws.Manifest.Bundles {
		if dep.Path == "" {
			continue
		}
		p := expandPath(dep.Path)
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.ws.Root, p)
		}
		if samePath(p, dir) {
			return dep.Name, true
		}
	}
	return "", false
}

// dependencyAlias reports the workspace name of a path dependency of a
// directory bundle, so a directory the workspace already declares is
// resolved once under the workspace's name.
func (r *Resolver) dependencyAlias(parent *ResolvedBundle, dep BundleDependency) (string, bool) {
	if dep.Path == "" || parent.IsGit() {
		return "", false
	}
	anchor := parent.Path
	if r.isSelf(parent) {
		anchor = r.ws.Root
	}
	p := expandPath(dep.Path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(anchor, p)
	}
	return r.workspaceAlias(p)
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// validateGraph checks that every declared dependency was resolved.
func validateGraph(graph map[string][]string, resolved map[string]*ResolvedBundle) error {
	parents := make([]string, 0, len(graph))
	for name := range graph {
		parents = append(parents, name)
	}
	sort.Strings(parents)

	for _, parent := range parents {
		for _, dep := range graph[parent] {
			if _, ok := resolved[dep]; ok {
				continue
			}
			names := make([]string, 0, len(resolved))
			for n := range resolved {
				names = append(names, n)
			}
			sort.Strings(names)
			return &DependencyError{Bundle: parent, Missing: dep, Resolved: names}
		}
	}
	return nil
}

// topoSort orders bundles so dependencies come first. Among bundles whose
// dependencies are satisfied, the earliest in order goes next.
func topoSort(order []*ResolvedBundle, graph map[string][]string) ([]*ResolvedBundle, error) {
	placed := make(map[string]bool, len(order))
	out := make([]*ResolvedBundle, 0, len(order))
	for len(out) < len(order) {
		progressed := false
		for _, b := range order {
			if placed[b.Name] {
				continue
			}
			ready := true
			for _, dep := range graph[b.Name] {
				if !placed[dep] && dep != b.Name {
					ready = false
					break
				}
			}
			if ready {
				placed[b.Name] = true
				out = append(out, b)
				progressed = true
				break
			}
		}
		if !progressed {
			var cycle []string
			for _, b := range order {
				if !placed[b.Name] {
					cycle = append(cycle, b.Name)
				}
			}
			return nil, fmt.Errorf("%w: dependency cycle between %s",
				ErrBundleValidationFailed, strings.Join(cycle, ", "))
		}
	}
	return out, nil
}
