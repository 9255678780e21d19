package platform

// NewClaude returns the Claude Code platform.
func NewClaude() *Platform {
	return &Platform{
		ID:      "claude",
		Name:    "Claude Code",
		Dir:     ".claude",
		Signals: []string{".claude", "CLAUDE.md", ".mcp.json"},
		Rules: withShared(
			Rule{Glob: "commands/**/*", Template: ".claude/commands/**/*"},
			Rule{Glob: "agents/**/*", Template: ".claude/agents/**/*"},
			Rule{Glob: "skills/**/*", Template: ".claude/skills/**/*"},
			Rule{Glob: "rules/**/*", Template: ".claude/rules/**/*"},
			Rule{Glob: "hooks/**/*", Template: ".claude/hooks/**/*"},
			Rule{Glob: "AGENTS.md", Template: "CLAUDE.md"},
			Rule{Glob: "mcp.jsonc", Template: ".mcp.json"},
		),
	}
}

func init() { Register(NewClaude()) }
