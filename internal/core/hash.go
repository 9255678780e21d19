package core

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
)

// HashPrefix is prepended to every content hash.
const HashPrefix = "blake3:"

// hashExcluded lists file names that never contribute to a directory hash.
// Installing a bundle rewrites these inside the workspace config directory,
// so including them would make the workspace's own hash unstable.
var hashExcluded = map[string]bool{
	lockfileFileName:  true,
	indexFileName:     true,
	lockGuardFileName: true,
}

// HashFile returns the prefixed BLAKE3 hash of a single file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileReadFailed, path, err)
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileReadFailed, path, err)
	}
	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// HashDir returns the prefixed BLAKE3 hash of every regular file below
// root. Files are visited in sorted forward-slash path order, and each
// contributes its relative path and its content, so the result does not
// depend on filesystem enumeration order.
func HashDir(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || hashExcluded[d.Name()] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: walking %s: %v", ErrFileReadFailed, root, err)
	}
	sort.Strings(paths)

	h := blake3.New()
	for _, rel := range paths {
		_, _ = h.Write([]byte(rel))
		_, _ = h.Write([]byte{0})
		if err := hashInto(h, filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
		_, _ = h.Write([]byte{0})
	}
	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

func hashInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileReadFailed, path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileReadFailed, path, err)
	}
	return nil
}
