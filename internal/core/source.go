package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ownerRepoPattern matches "owner/repo" format (2 segments, no protocol).
var ownerRepoPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// drivePathPattern matches Windows drive-letter paths such as C:\ or d:/.
var drivePathPattern = regexp.MustCompile(`^[a-zA-Z]:[\\/]`)

// ParseSource parses a bundle source string.
//
// Supported formats, checked in order:
//   - "file:///path/repo#ref" or "file:///path/repo#sub/dir" → git repository on disk
//   - "file:///path/dir"                 → local directory
//   - "./dir", "../dir", "/abs", "C:\dir" → local directory
//   - "github:owner/repo[#fragment]"     → GitHub repository
//   - "https://…", "git@…", "ssh://…"    → git URL used verbatim
//   - "owner/repo[#fragment]"            → GitHub repository
//
// A fragment containing "/" selects a subdirectory; otherwise it is a ref.
func ParseSource(input string) (BundleSource, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return BundleSource{}, fmt.Errorf("%w: empty source", ErrInvalidSourceURL)
	}

	if rest, ok := strings.CutPrefix(input, "file://"); ok {
		path, fragment, hasFragment := strings.Cut(rest, "#")
		if path == "" {
			return BundleSource{}, fmt.Errorf("%w: %q has no path", ErrInvalidSourceURL, input)
		}
		if hasFragment && fragment != "" {
			return gitSource("file://"+path, fragment), nil
		}
		return BundleSource{Kind: SourceDirectory, Path: path}, nil
	}

	if isLocalPath(input) {
		return BundleSource{Kind: SourceDirectory, Path: input}, nil
	}

	if rest, ok := strings.CutPrefix(input, "github:"); ok {
		repo, fragment, _ := strings.Cut(rest, "#")
		if !ownerRepoPattern.MatchString(repo) {
			return BundleSource{}, fmt.Errorf("%w: %q is not github:owner/repo", ErrSourceParseFailed, input)
		}
		return gitSource(githubCloneURL(repo), fragment), nil
	}

	if strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "ssh://") {
		raw, fragment, _ := strings.Cut(input, "#")
		if _, err := url.Parse(raw); err != nil {
			return BundleSource{}, fmt.Errorf("%w: %v", ErrSourceParseFailed, err)
		}
		return gitSource(raw, fragment), nil
	}

	if strings.HasPrefix(input, "git@") {
		raw, fragment, _ := strings.Cut(input, "#")
		if !strings.Contains(raw, ":") {
			return BundleSource{}, fmt.Errorf("%w: invalid SSH URL %q", ErrSourceParseFailed, input)
		}
		return gitSource(raw, fragment), nil
	}

	repo, fragment, _ := strings.Cut(input, "#")
	if !strings.Contains(repo, "://") && ownerRepoPattern.MatchString(repo) {
		return gitSource(githubCloneURL(repo), fragment), nil
	}

	return BundleSource{}, fmt.Errorf("%w: unrecognized source format %q", ErrSourceParseFailed, input)
}

func gitSource(cloneURL, fragment string) BundleSource {
	src := BundleSource{Kind: SourceGit, Git: GitSource{URL: cloneURL}}
	if strings.Contains(fragment, "/") {
		src.Git.Subdir = strings.Trim(fragment, "/")
	} else {
		src.Git.Ref = fragment
	}
	return src
}

func githubCloneURL(ownerRepo string) string {
	return fmt.Sprintf("https://github.com/%s.git", strings.TrimSuffix(ownerRepo, ".git"))
}

func isLocalPath(input string) bool {
	return input == "." || input == ".." ||
		strings.HasPrefix(input, "./") ||
		strings.HasPrefix(input, "../") ||
		strings.HasPrefix(input, "/") ||
		strings.HasPrefix(input, "~/") ||
		drivePathPattern.MatchString(input)
}

// repoSlug extracts "owner" and "repo" from a git URL such as
// https://github.com/owner/repo.git or git@host:owner/repo.git.
func repoSlug(gitURL string) (owner, repo string, ok bool) {
	p := gitURL
	switch {
	case strings.HasPrefix(p, "git@"):
		_, p, _ = strings.Cut(p, ":")
	case strings.Contains(p, "://"):
		u, err := url.Parse(p)
		if err != nil {
			return "", "", false
		}
		p = u.Path
	}
	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")
	parts := strings.Split(p, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}
