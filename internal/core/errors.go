package core

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// Error classes returned by core operations. Call sites wrap these with
// fmt.Errorf("%w: ...") so callers can classify failures with errors.Is.
var (
	// ErrSourceParseFailed is returned when a source string matches no known form.
	ErrSourceParseFailed = zerr.New("source parse failed")

	// ErrInvalidSourceURL is returned for empty source input.
	ErrInvalidSourceURL = zerr.New("invalid source url")

	// ErrBundleNotFound is returned when a bundle directory or lockfile entry is missing.
	ErrBundleNotFound = zerr.New("bundle not found")

	// ErrBundleValidationFailed covers missing dependencies, dependency cycles,
	// malformed dependency declarations and non-portable lockfile paths.
	ErrBundleValidationFailed = zerr.New("bundle validation failed")

	// ErrConfigReadFailed is returned when a persisted config file cannot be read.
	ErrConfigReadFailed = zerr.New("config read failed")

	// ErrConfigParseFailed is returned when a persisted config file is not valid JSON/YAML.
	ErrConfigParseFailed = zerr.New("config parse failed")

	// ErrConfigInvalid is returned when a config file parses but violates its schema.
	ErrConfigInvalid = zerr.New("config invalid")

	ErrFileReadFailed  = zerr.New("file read failed")
	ErrFileWriteFailed = zerr.New("file write failed")
	ErrIO              = zerr.New("io error")

	// ErrWorkspaceNotFound is returned when no git repository root can be found.
	ErrWorkspaceNotFound = zerr.New("workspace not found")

	// ErrWorkspaceLocked is returned by a non-blocking lock attempt when
	// another process holds the workspace lock.
	ErrWorkspaceLocked = zerr.New("workspace locked")

	// ErrWorkspaceLockFailed is returned when the lock file cannot be acquired at all.
	ErrWorkspaceLockFailed = zerr.New("workspace lock failed")

	// ErrLockfileOutdated is returned in frozen mode when installing would change the lockfile.
	ErrLockfileOutdated = zerr.New("lockfile outdated")

	// ErrNoPlatformsDetected is returned when no target platform is given,
	// detected in the workspace, or configured as a default.
	ErrNoPlatformsDetected = zerr.New("no platforms detected")

	// ErrCacheOperationFailed is returned when fetching or materializing a cached source fails.
	ErrCacheOperationFailed = zerr.New("cache operation failed")
)

// DependencyError reports a dependency name that a bundle declares but
// that is absent from the resolved set.
type DependencyError struct {
	Bundle   string
	Missing  string
	Resolved []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("bundle %q depends on %q, which was not resolved (resolved: %s)",
		e.Bundle, e.Missing, strings.Join(e.Resolved, ", "))
}

func (e *DependencyError) Unwrap() error { return ErrBundleValidationFailed }

// UninstallError collects per-bundle failures of a multi-bundle uninstall.
type UninstallError struct {
	Failures map[string]error
	order    []string
}

func (e *UninstallError) add(name string, err error) {
	if e.Failures == nil {
		e.Failures = make(map[string]error)
	}
	if _, ok := e.Failures[name]; !ok {
		e.order = append(e.order, name)
	}
	e.Failures[name] = err
}

func (e *UninstallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to uninstall %d bundle(s):", len(e.order))
	for _, name := range e.order {
		fmt.Fprintf(&b, "\n  %s: %v", name, e.Failures[name])
	}
	return b.String()
}

// Unwrap exposes each per-bundle failure to errors.Is / errors.As.
func (e *UninstallError) Unwrap() []error {
	errs := make([]error, 0, len(e.order))
	for _, name := range e.order {
		errs = append(errs, e.Failures[name])
	}
	return errs
}
