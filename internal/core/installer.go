package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/tailscale/hujson"

	"github.com/barysiuk/kitrow/internal/core/platform"
	"github.com/barysiuk/kitrow/internal/logging"
)

// Installer copies bundle resources into platform locations inside a
// workspace.
type Installer struct {
	root string
}

// NewInstaller returns an installer writing below the workspace root.
func NewInstaller(ws *Workspace) *Installer {
	return &Installer{root: ws.Root}
}

// FileAction describes what installing one file does.
type FileAction string

const (
	ActionCreate    FileAction = "create"
	ActionOverwrite FileAction = "overwrite"
	ActionUnchanged FileAction = "unchanged"
	ActionRemove    FileAction = "remove"
)

// FileCopy is one planned write.
type FileCopy struct {
	Resource string // bundle-relative source path
	Source   string // absolute source file
	Target   string // workspace-relative destination
	Platform string
	Action   FileAction
}

// BundlePlan is the outcome, or in dry-run mode the intent, of installing
// one bundle.
type BundlePlan struct {
	Bundle string
	// Files are the bundle-relative resources, sorted.
	Files []string
	// Enabled maps each resource to its sorted install paths.
	Enabled map[string][]string
	Copies  []FileCopy
	// Removed lists install paths of a previous install that are gone now.
	Removed []string
}

// InstallBundle runs the install pipeline for one bundle: it discovers the
// bundle's resources, maps each to its install paths on every platform,
// records the bundle as provider of those paths in index and copies the
// files. Paths the bundle provided before but no longer does are removed.
//
// Every write is reported to tx. The first copy or directory failure
// aborts the bundle. In dry-run mode nothing is written and index is left
// untouched; the returned plan says what would happen.
func (in *Installer) InstallBundle(ctx context.Context, b *ResolvedBundle, platforms []*platform.Platform,
	index *IndexConfig, tx *Transaction, dryRun bool,
) (*BundlePlan, error) {
	log := logging.FromContext(ctx)

	resources, err := Discover(b.Path)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: %w", b.Name, err)
	}

	plan := &BundlePlan{Bundle: b.Name, Enabled: map[string][]string{}}
	claimedBy := make(map[string]int) // target -> index into plan.Copies
	for _, r := range resources {
		plan.Files = append(plan.Files, r.Path)
		for _, t := range platform.Transform(r.Path, string(r.Category), platforms) {
			if prev, ok := claimedBy[t.Path]; ok {
				// A later resource of the same bundle mapping to the same
				// path replaces the earlier one.
				earlier := plan.Copies[prev].Resource
				plan.Enabled[earlier] = removeString(plan.Enabled[earlier], t.Path)
				if len(plan.Enabled[earlier]) == 0 {
					delete(plan.Enabled, earlier)
				}
				plan.Copies[prev].Action = ""
			}
			claimedBy[t.Path] = len(plan.Copies)
			plan.Copies = append(plan.Copies, FileCopy{
				Resource: r.Path,
				Source:   r.AbsPath,
				Target:   t.Path,
				Platform: t.Platform,
				Action:   ActionCreate,
			})
			plan.Enabled[r.Path] = append(plan.Enabled[r.Path], t.Path)
		}
	}
	plan.Copies = dropSuperseded(plan.Copies)
	for k, v := range plan.Enabled {
		plan.Enabled[k] = sortedUnique(v)
	}
	sort.Strings(plan.Files)

	if prev, ok := index.Find(b.Name); ok {
		for _, p := range prev.InstalledPaths() {
			if _, still := claimedBy[p]; still {
				continue
			}
			if owner, ok := index.Owner(p); ok && owner != b.Name {
				continue
			}
			plan.Removed = append(plan.Removed, p)
		}
	}

	for i := range plan.Copies {
		c := &plan.Copies[i]
		data, err := resourceBytes(c.Source, c.Target)
		if err != nil {
			return nil, fmt.Errorf("bundle %q: %w", b.Name, err)
		}
		dst := in.abs(c.Target)
		if existing, err := os.ReadFile(dst); err == nil {
			c.Action = ActionOverwrite
			if xxhash.Sum64(existing) == xxhash.Sum64(data) && bytes.Equal(existing, data) {
				c.Action = ActionUnchanged
			}
		}
		if dryRun || c.Action == ActionUnchanged {
			continue
		}
		if err := in.write(dst, data, c.Action, tx); err != nil {
			return nil, fmt.Errorf("bundle %q: installing %s: %w", b.Name, c.Target, err)
		}
		log.Debug("installed file", "bundle", b.Name, "target", c.Target, "action", c.Action)
	}

	if dryRun {
		return plan, nil
	}

	for _, p := range plan.Removed {
		if err := in.remove(p, tx); err != nil {
			return nil, fmt.Errorf("bundle %q: %w", b.Name, err)
		}
	}
	index.Upsert(b.Name, plan.Enabled)
	return plan, nil
}

func (in *Installer) abs(rel string) string {
	return filepath.Join(in.root, filepath.FromSlash(rel))
}

func (in *Installer) write(dst string, data []byte, action FileAction, tx *Transaction) error {
	if err := ensureDir(filepath.Dir(dst), tx); err != nil {
		return err
	}
	if action == ActionOverwrite {
		if err := tx.BackupFile(dst); err != nil {
			return err
		}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileWriteFailed, err)
	}
	if action == ActionCreate {
		tx.TrackFile(dst)
	}
	return nil
}

// remove deletes an installed file, keeping a backup in tx, and prunes the
// directories it leaves empty.
func (in *Installer) remove(rel string, tx *Transaction) error {
	dst := in.abs(rel)
	if !fileExists(dst) {
		return nil
	}
	if err := tx.BackupFile(dst); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil {
		return fmt.Errorf("%w: removing %s: %v", ErrIO, rel, err)
	}
	removeEmptyParents(filepath.Dir(dst), in.root)
	return nil
}

// resourceBytes returns what gets written for a resource. A .jsonc
// resource installed as .json is converted to standard JSON.
func resourceBytes(src, target string) ([]byte, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileReadFailed, err)
	}
	if strings.HasSuffix(src, ".jsonc") && strings.HasSuffix(target, ".json") {
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseFailed, src, err)
		}
		return std, nil
	}
	return data, nil
}

func dropSuperseded(copies []FileCopy) []FileCopy {
	out := copies[:0]
	for _, c := range copies {
		if c.Action != "" {
			out = append(out, c)
		}
	}
	return out
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
