package platform

// NewCodex returns the Codex platform. Codex reads skills from the shared
// .agents/skills directory.
func NewCodex() *Platform {
	return &Platform{
		ID:   "codex",
		Name: "Codex",
		Dir:  ".codex",
		Rules: withShared(
			Rule{Glob: "commands/**/*", Template: ".codex/prompts/**/*"},
			Rule{Glob: "skills/**/*", Template: ".agents/skills/**/*"},
			Rule{Glob: "AGENTS.md", Template: "AGENTS.md"},
		),
	}
}

func init() { Register(NewCodex()) }
