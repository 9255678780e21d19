package platform

// NewCursor returns the Cursor platform. Rules have no explicit mapping:
// they fall back to .cursor/rules and also get a .mdc copy for older
// Cursor releases.
func NewCursor() *Platform {
	return &Platform{
		ID:      "cursor",
		Name:    "Cursor",
		Dir:     ".cursor",
		Signals: []string{".cursor", ".cursorrules"},
		Rules: withShared(
			Rule{Glob: "commands/**/*", Template: ".cursor/commands/**/*"},
			Rule{Glob: "agents/**/*", Template: ".cursor/agents/**/*"},
			Rule{Glob: "skills/**/*", Template: ".cursor/skills/**/*"},
			Rule{Glob: "AGENTS.md", Template: "AGENTS.md"},
			Rule{Glob: "mcp.jsonc", Template: ".cursor/mcp.json"},
		),
		LegacyRuleExt: ".mdc",
	}
}

func init() { Register(NewCursor()) }
