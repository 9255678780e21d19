package core

import (
	"errors"
	"fmt"
	"strings"
)

// FetchErrorKind classifies why a git remote operation failed.
type FetchErrorKind int

const (
	FetchErrUnknown FetchErrorKind = iota
	FetchErrAuth
	FetchErrRepoNotFound
	FetchErrRefNotFound
	FetchErrNetwork
	FetchErrSSHKey
	FetchErrHostKey
)

// String returns a human-readable label for the error kind.
func (k FetchErrorKind) String() string {
	switch k {
	case FetchErrAuth:
		return "authentication required"
	case FetchErrRepoNotFound:
		return "repository not found"
	case FetchErrRefNotFound:
		return "ref not found"
	case FetchErrNetwork:
		return "network error"
	case FetchErrSSHKey:
		return "ssh key error"
	case FetchErrHostKey:
		return "ssh host key error"
	default:
		return "unknown error"
	}
}

// FetchError is returned when git cannot reach or read a bundle repository.
// It wraps the raw git output with a classification and actionable hints.
type FetchError struct {
	Kind      FetchErrorKind
	URL       string
	Command   string
	RawOutput string
	Hints     []string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Command, e.Kind, e.firstLine())
}

// Unwrap classifies every fetch failure as a cache failure.
func (e *FetchError) Unwrap() error { return ErrCacheOperationFailed }

func (e *FetchError) firstLine() string {
	for _, line := range strings.Split(e.RawOutput, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "Cloning into") && !strings.HasPrefix(line, "hint:") {
			return line
		}
	}
	return "git failed"
}

// AsFetchError returns the *FetchError wrapped in err, if any.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// classifyGitFailure turns git output into a FetchError.
func classifyGitFailure(url string, args []string, output string) *FetchError {
	kind := classifyOutput(output)
	return &FetchError{
		Kind:      kind,
		URL:       url,
		Command:   "git " + strings.Join(args, " "),
		RawOutput: strings.TrimSpace(output),
		Hints:     hintsForError(kind, url),
	}
}

func classifyOutput(output string) FetchErrorKind {
	lower := strings.ToLower(output)

	switch {
	case strings.Contains(lower, "permission denied (publickey)") ||
		strings.Contains(lower, "no such identity") ||
		strings.Contains(lower, "load key"):
		return FetchErrSSHKey

	case strings.Contains(lower, "host key verification failed"):
		return FetchErrHostKey

	case strings.Contains(lower, "could not read username") ||
		strings.Contains(lower, "could not read password") ||
		strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "403"):
		return FetchErrAuth

	case strings.Contains(lower, "couldn't find remote ref") ||
		strings.Contains(lower, "not our ref") ||
		strings.Contains(lower, "reference is not a tree") ||
		strings.Contains(lower, "unknown revision"):
		return FetchErrRefNotFound

	case strings.Contains(lower, "repository not found") ||
		strings.Contains(lower, "does not appear to be a git repository") ||
		strings.Contains(lower, "not found"):
		return FetchErrRepoNotFound

	case strings.Contains(lower, "could not resolve host") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection timed out") ||
		strings.Contains(lower, "network is unreachable"):
		return FetchErrNetwork
	}
	return FetchErrUnknown
}

func hintsForError(kind FetchErrorKind, url string) []string {
	switch kind {
	case FetchErrAuth:
		hints := []string{
			"Run `gh auth login` to authenticate with GitHub",
			"Or configure a git credential helper: `git config --global credential.helper store`",
		}
		if ssh := httpsToSSH(url); ssh != "" {
			hints = append(hints, "Try SSH instead: "+ssh)
		}
		return hints
	case FetchErrSSHKey:
		return []string{
			"Ensure your SSH key is loaded: `ssh-add -l`",
			"Check `~/.ssh/config` for the correct Host alias",
		}
	case FetchErrHostKey:
		return []string{"Connect once manually (`ssh -T git@github.com`) and accept the host key"}
	case FetchErrRefNotFound:
		return []string{"Check the branch, tag or commit after `#` in the source"}
	case FetchErrRepoNotFound:
		return []string{
			"Verify the repository URL is correct",
			"Ensure you have access to this repository (it may be private)",
		}
	case FetchErrNetwork:
		return []string{"Check your internet connection and the hostname in the URL"}
	default:
		return []string{"Try the command manually to diagnose: `git ls-remote " + url + "`"}
	}
}

// httpsToSSH converts an HTTPS GitHub/GitLab URL to SSH form, or returns "".
func httpsToSSH(url string) string {
	for _, host := range []string{"github.com", "gitlab.com"} {
		prefix := "https://" + host + "/"
		if path, ok := strings.CutPrefix(url, prefix); ok {
			if !strings.HasSuffix(path, ".git") {
				path += ".git"
			}
			return "git@" + host + ":" + path
		}
	}
	return ""
}
