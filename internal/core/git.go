package core

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/barysiuk/kitrow/internal/logging"
)

var fullSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// GitClient performs the remote git operations the cache needs.
type GitClient interface {
	// ResolveRef resolves ref (empty for the default branch) to an exact
	// commit. It also returns the ref name that was resolved, which is the
	// default branch's name when ref is empty.
	ResolveRef(ctx context.Context, url, ref string) (commit, resolvedRef string, err error)
	// Checkout materializes the tree of commit into dest, which must not exist.
	Checkout(ctx context.Context, url, commit, dest string) error
}

// ExecGit implements GitClient by running the git binary.
type ExecGit struct {
	// URLOverrides maps a repository URL to the URL git actually contacts.
	URLOverrides map[string]string
}

// NewExecGit returns a GitClient backed by the git command.
func NewExecGit() *ExecGit { return &ExecGit{} }

func (g *ExecGit) remote(url string) string {
	if o, ok := g.URLOverrides[url]; ok {
		return o
	}
	return url
}

func (g *ExecGit) run(ctx context.Context, url string, args ...string) (string, error) {
	logging.FromContext(ctx).Debug("running git", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), classifyGitFailure(url, args, string(out))
	}
	return string(out), nil
}

// ResolveRef implements GitClient using git ls-remote.
func (g *ExecGit) ResolveRef(ctx context.Context, url, ref string) (string, string, error) {
	if fullSHAPattern.MatchString(ref) {
		return ref, ref, nil
	}
	remote := g.remote(url)

	if ref == "" {
		out, err := g.run(ctx, url, "ls-remote", "--symref", remote, "HEAD")
		if err != nil {
			return "", "", err
		}
		commit, branch := parseSymrefHead(out)
		if commit == "" {
			return "", "", fmt.Errorf("%w: %s has no default branch", ErrCacheOperationFailed, url)
		}
		return commit, branch, nil
	}

	out, err := g.run(ctx, url, "ls-remote", remote, ref, "refs/heads/"+ref, "refs/tags/"+ref, "refs/tags/"+ref+"^{}")
	if err != nil {
		return "", "", err
	}
	commit := pickRef(out, ref)
	if commit == "" {
		return "", "", &FetchError{
			Kind:    FetchErrRefNotFound,
			URL:     url,
			Command: "git ls-remote " + remote + " " + ref,
			Hints:   hintsForError(FetchErrRefNotFound, url),
		}
	}
	return commit, ref, nil
}

// Checkout implements GitClient. It fetches only the requested commit and
// falls back to a full fetch when the server refuses unadvertised objects.
func (g *ExecGit) Checkout(ctx context.Context, url, commit, dest string) error {
	if _, err := g.run(ctx, url, "init", "--quiet", dest); err != nil {
		return err
	}
	if _, err := g.run(ctx, url, "-C", dest, "remote", "add", "origin", g.remote(url)); err != nil {
		return err
	}
	if _, err := g.run(ctx, url, "-C", dest, "fetch", "--quiet", "--depth", "1", "origin", commit); err != nil {
		logging.FromContext(ctx).Debug("shallow fetch by commit refused, fetching all refs", "url", url, "error", err)
		if _, err := g.run(ctx, url, "-C", dest, "fetch", "--quiet", "origin"); err != nil {
			return err
		}
		if _, err := g.run(ctx, url, "-C", dest, "checkout", "--quiet", commit); err != nil {
			return err
		}
		return nil
	}
	_, err := g.run(ctx, url, "-C", dest, "checkout", "--quiet", "FETCH_HEAD")
	return err
}

// parseSymrefHead reads `git ls-remote --symref <url> HEAD` output.
func parseSymrefHead(out string) (commit, branch string) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if target, ok := strings.CutPrefix(line, "ref: "); ok {
			target, _, _ = strings.Cut(target, "\t")
			branch = strings.TrimPrefix(target, "refs/heads/")
			continue
		}
		sha, name, ok := strings.Cut(line, "\t")
		if ok && name == "HEAD" && fullSHAPattern.MatchString(sha) {
			commit = sha
		}
	}
	return commit, branch
}

// pickRef selects the commit for ref from ls-remote output, preferring a
// branch, then a peeled tag, then a lightweight tag.
func pickRef(out, ref string) string {
	found := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		sha, name, ok := strings.Cut(sc.Text(), "\t")
		if ok && fullSHAPattern.MatchString(sha) {
			found[name] = sha
		}
	}
	for _, candidate := range []string{
		"refs/heads/" + ref,
		"refs/tags/" + ref + "^{}",
		"refs/tags/" + ref,
		ref,
	} {
		if sha, ok := found[candidate]; ok {
			return sha
		}
	}
	return ""
}
