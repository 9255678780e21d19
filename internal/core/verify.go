package core

import (
	"os"
	"path/filepath"
)

// VerifyStatus is the outcome of checking one bundle.
type VerifyStatus string

const (
	VerifyOK VerifyStatus = "ok"
	// VerifyModified means the bundle content no longer matches its locked hash.
	VerifyModified VerifyStatus = "modified"
	// VerifyIncomplete means the content matches but installed files are gone.
	VerifyIncomplete VerifyStatus = "incomplete"
	// VerifyMissing means a directory bundle no longer exists.
	VerifyMissing VerifyStatus = "missing"
	// VerifyUncached means a git bundle's locked commit is not in the cache.
	VerifyUncached VerifyStatus = "uncached"
)

// VerifyResult reports on one lockfile entry.
type VerifyResult struct {
	Name     string
	Status   VerifyStatus
	Expected string
	Actual   string
	// MissingFiles are installed paths recorded in the index but absent on disk.
	MissingFiles []string
}

// OK reports whether the bundle is intact.
func (r VerifyResult) OK() bool { return r.Status == VerifyOK }

// Verify recomputes the hash of every locked bundle and checks that the
// paths recorded in the index still exist. Git bundles are checked against
// the cached checkout of their locked commit; nothing is fetched.
func Verify(ws *Workspace, cache *CacheStore) ([]VerifyResult, error) {
	results := make([]VerifyResult, 0, len(ws.Lockfile.Bundles))
	for _, lb := range ws.Lockfile.Bundles {
		r := VerifyResult{Name: lb.Name, Expected: lb.Source.Hash}

		dir, found, err := locateBundle(ws, cache, lb)
		if err != nil {
			return nil, err
		}
		switch {
		case !found && lb.IsGit():
			r.Status = VerifyUncached
		case !found:
			r.Status = VerifyMissing
		default:
			actual, err := HashDir(dir)
			if err != nil {
				return nil, err
			}
			r.Actual = actual
			r.Status = VerifyOK
			if actual != lb.Source.Hash {
				r.Status = VerifyModified
			}
		}

		if entry, ok := ws.Index.Find(lb.Name); ok {
			for _, rel := range entry.InstalledPaths() {
				if _, err := os.Stat(filepath.Join(ws.Root, filepath.FromSlash(rel))); err != nil {
					r.MissingFiles = append(r.MissingFiles, rel)
				}
			}
		}
		if r.Status == VerifyOK && len(r.MissingFiles) > 0 {
			r.Status = VerifyIncomplete
		}
		results = append(results, r)
	}
	return results, nil
}

// locateBundle returns the directory holding a locked bundle's content:
// the workspace-relative path of a directory bundle, or the cached
// checkout of a git bundle's locked commit.
func locateBundle(ws *Workspace, cache *CacheStore, lb LockedBundle) (string, bool, error) {
	if !lb.IsGit() {
		dir := filepath.Join(ws.Root, filepath.FromSlash(lb.Source.Path))
		return dir, dirExists(dir), nil
	}
	if cache == nil {
		return "", false, nil
	}
	cached, ok, err := cache.Cached(GitSource{
		URL:    lb.Source.URL,
		Ref:    lb.Source.Ref,
		Subdir: lb.Source.Path,
		Commit: lb.Source.Commit,
	})
	if err != nil || !ok {
		return "", false, err
	}
	if len(cached) == 1 {
		return cached[0].Path, true, nil
	}
	for _, cb := range cached {
		if matchesName(cb, lb.Name) {
			return cb.Path, true, nil
		}
	}
	return "", false, nil
}
