// Package core provides the business logic for kitrow: parsing bundle
// sources, fetching and caching them, resolving dependency graphs,
// installing resources for target platforms and keeping the lockfile and
// workspace index consistent under a rollback-capable transaction.
package core

const (
	configDirName     = ".kitrow"
	manifestFileName  = "kitrow.yaml"
	lockfileFileName  = "kitrow.lock"
	indexFileName     = "kitrow.index.yaml"
	lockGuardFileName = ".lock"
)

// SourceKind tags the variant held by a BundleSource.
type SourceKind int

const (
	// SourceDirectory is a bundle read straight from a local directory.
	SourceDirectory SourceKind = iota
	// SourceGit is a bundle fetched from a git repository.
	SourceGit
)

// String returns the lockfile spelling of the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceDirectory:
		return "dir"
	case SourceGit:
		return "git"
	default:
		return "unknown"
	}
}

// BundleSource is where a bundle comes from. Exactly one of Path (for
// SourceDirectory) or Git (for SourceGit) is meaningful.
type BundleSource struct {
	Kind SourceKind
	Path string
	Git  GitSource
}

// GitSource identifies content inside a git repository.
type GitSource struct {
	URL    string
	Ref    string // branch, tag or commit requested by the user; empty = default branch
	Subdir string // forward-slash path inside the repository
	Commit string // exact commit when already pinned
}

// String renders the source back into a parseable form.
func (s BundleSource) String() string {
	switch s.Kind {
	case SourceDirectory:
		return s.Path
	case SourceGit:
		out := s.Git.URL
		if s.Git.Subdir != "" {
			return out + "#" + s.Git.Subdir
		}
		if s.Git.Ref != "" {
			return out + "#" + s.Git.Ref
		}
		return out
	default:
		return ""
	}
}

// ResolvedBundle is a bundle ready to be installed. It is produced by the
// Resolver and consumed by the Installer; it is never persisted as-is.
type ResolvedBundle struct {
	Name string
	// DependencyOf names the bundle whose manifest pulled this one in.
	// Empty for bundles requested directly.
	DependencyOf string
	// Path is the absolute directory holding the bundle's content.
	Path     string
	Source   BundleSource
	Commit   string
	Ref      string
	Manifest *Manifest
}

// IsGit reports whether the bundle was fetched from git.
func (b *ResolvedBundle) IsGit() bool { return b.Source.Kind == SourceGit }

// Category groups bundle resources by the top-level directory they live in.
type Category string

const (
	CategoryCommands   Category = "commands"
	CategoryRules      Category = "rules"
	CategoryAgents     Category = "agents"
	CategorySkills     Category = "skills"
	CategoryHooks      Category = "hooks"
	CategoryMCPServers Category = "mcp_servers"
	CategoryRoot       Category = "root"
)

// categoryDirs are walked by Discover in this order.
var categoryDirs = []Category{
	CategoryCommands,
	CategoryRules,
	CategoryAgents,
	CategorySkills,
	CategoryHooks,
	CategoryMCPServers,
	CategoryRoot,
}

// rootFiles are always checked at the top of a bundle and tagged CategoryRoot.
var rootFiles = []string{"AGENTS.md", "mcp.jsonc"}

// Resource is a single discovered bundle file.
type Resource struct {
	Category Category
	// Path is bundle-relative with forward slashes.
	Path string
	// AbsPath is the file on disk.
	AbsPath string
}
