package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/barysiuk/kitrow/internal/logging"
)

const (
	cacheBundlesDir = "bundles"
	cacheRepoDir    = "repo"
	cachePluginsDir = "plugins"
)

// CacheStore materializes git sources on disk, keyed by repository URL and
// exact commit. A commit is fetched at most once; later lookups for the
// same key are served from disk.
type CacheStore struct {
	root string
	git  GitClient
}

// CachedBundle is one bundle directory served from the cache. A single
// repository checkout yields several when it carries a marketplace catalog.
type CachedBundle struct {
	Path     string
	Commit   string
	Ref      string
	Plugin   string // marketplace plugin name, empty for plain bundles
	Manifest *Manifest
}

// CacheEntry describes one cached commit.
type CacheEntry struct {
	Key    string
	Commit string
	Path   string
}

// NewCacheStore returns a cache rooted at root that fetches through git.
func NewCacheStore(root string, git GitClient) *CacheStore {
	return &CacheStore{root: root, git: git}
}

// Root returns the cache directory.
func (c *CacheStore) Root() string { return c.root }

// CacheKey derives the on-disk key of a repository commit: the URL without
// its scheme, ":" and "/" replaced by "-", a trailing ".git" dropped, then
// "/<commit>".
func CacheKey(url, commit string) string {
	key := url
	if _, rest, ok := strings.Cut(key, "://"); ok {
		key = rest
	}
	key = strings.NewReplacer(":", "-", "/", "-").Replace(key)
	key = strings.TrimSuffix(key, ".git")
	return key + "/" + commit
}

func (c *CacheStore) commitDir(url, commit string) string {
	return filepath.Join(c.root, cacheBundlesDir, filepath.FromSlash(CacheKey(url, commit)))
}

// Fetch returns the bundles found at src, fetching the commit on a cache
// miss. An unpinned source has its ref (or the default branch) resolved to
// a commit first; the resolved commit is always reported.
func (c *CacheStore) Fetch(ctx context.Context, src GitSource) ([]CachedBundle, error) {
	log := logging.FromContext(ctx)
	commit, ref := src.Commit, src.Ref
	if commit == "" {
		resolved, resolvedRef, err := c.git.ResolveRef(ctx, src.URL, src.Ref)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", describeGit(src), err)
		}
		commit, ref = resolved, resolvedRef
	}

	base := c.commitDir(src.URL, commit)
	repo := filepath.Join(base, cacheRepoDir)
	if dirExists(repo) {
		log.Debug("cache hit", "url", src.URL, "commit", commit)
	} else {
		log.Debug("cache miss, fetching", "url", src.URL, "commit", commit)
		if err := c.fetchInto(ctx, src.URL, commit, base); err != nil {
			return nil, err
		}
	}
	return c.bundlesAt(src.URL, commit, ref, src.Subdir)
}

// Cached returns the bundles at src without touching the network. ok is
// false when the pinned commit is not in the cache.
func (c *CacheStore) Cached(src GitSource) (bundles []CachedBundle, ok bool, err error) {
	if src.Commit == "" || !dirExists(filepath.Join(c.commitDir(src.URL, src.Commit), cacheRepoDir)) {
		return nil, false, nil
	}
	bundles, err = c.bundlesAt(src.URL, src.Commit, src.Ref, src.Subdir)
	return bundles, err == nil, err
}

func (c *CacheStore) fetchInto(ctx context.Context, url, commit, base string) error {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrCacheOperationFailed, base, err)
	}
	tmp, err := os.MkdirTemp(base, ".fetch-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	dest := filepath.Join(tmp, cacheRepoDir)
	if err := c.git.Checkout(ctx, url, commit, dest); err != nil {
		return fmt.Errorf("fetching %s at %s: %w", url, shortCommit(commit), err)
	}
	if err := os.RemoveAll(filepath.Join(dest, ".git")); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	if err := os.Rename(dest, filepath.Join(base, cacheRepoDir)); err != nil {
		// Another process may have populated the same commit meanwhile.
		if dirExists(filepath.Join(base, cacheRepoDir)) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	return nil
}

func (c *CacheStore) bundlesAt(url, commit, ref, subdir string) ([]CachedBundle, error) {
	base := c.commitDir(url, commit)
	repo := filepath.Join(base, cacheRepoDir)
	content := repo
	if subdir != "" {
		content = filepath.Join(repo, filepath.FromSlash(subdir))
		if !within(repo, content) {
			return nil, fmt.Errorf("%w: subdirectory %q escapes the repository", ErrBundleValidationFailed, subdir)
		}
	}
	if !dirExists(content) {
		return nil, fmt.Errorf("%w: %q not found in %s at %s", ErrBundleNotFound, subdir, url, shortCommit(commit))
	}

	if !isBundleDir(content) {
		catalog, err := readMarketplace(content)
		if err != nil {
			return nil, err
		}
		if catalog != nil {
			pluginsRoot := filepath.Join(base, cachePluginsDir)
			if subdir != "" {
				pluginsRoot = filepath.Join(pluginsRoot, sanitizeName(subdir))
			}
			return synthesizePlugins(catalog, content, pluginsRoot, url, commit, ref)
		}
	}

	m, err := LoadBundleManifest(content)
	if err != nil {
		return nil, err
	}
	return []CachedBundle{{Path: content, Commit: commit, Ref: ref, Manifest: m}}, nil
}

// List returns every cached commit, sorted by key.
func (c *CacheStore) List() ([]CacheEntry, error) {
	root := filepath.Join(c.root, cacheBundlesDir)
	repos, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	var out []CacheEntry
	for _, r := range repos {
		if !r.IsDir() {
			continue
		}
		commits, err := os.ReadDir(filepath.Join(root, r.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
		}
		for _, cm := range commits {
			if !cm.IsDir() || strings.HasPrefix(cm.Name(), ".") {
				continue
			}
			out = append(out, CacheEntry{
				Key:    r.Name() + "/" + cm.Name(),
				Commit: cm.Name(),
				Path:   filepath.Join(root, r.Name(), cm.Name()),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Clean removes every cached bundle.
func (c *CacheStore) Clean() error {
	if err := os.RemoveAll(filepath.Join(c.root, cacheBundlesDir)); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	return nil
}

// isBundleDir reports whether dir looks like a bundle: it has a manifest,
// a category directory or a root resource file.
func isBundleDir(dir string) bool {
	if fileExists(filepath.Join(dir, manifestFileName)) {
		return true
	}
	for _, cat := range categoryDirs {
		if dirExists(filepath.Join(dir, string(cat))) {
			return true
		}
	}
	for _, f := range rootFiles {
		if fileExists(filepath.Join(dir, f)) {
			return true
		}
	}
	return false
}

func describeGit(src GitSource) string {
	s := src.URL
	if src.Ref != "" {
		s += "#" + src.Ref
	}
	return s
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
