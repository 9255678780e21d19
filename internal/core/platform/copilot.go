package platform

// NewCopilot returns the GitHub Copilot platform. Prompts, instructions
// and agents carry Copilot's double extensions.
func NewCopilot() *Platform {
	return &Platform{
		ID:      "copilot",
		Name:    "GitHub Copilot",
		Dir:     ".github",
		Signals: []string{".github/copilot-instructions.md", ".github/prompts", ".github/instructions"},
		Rules: withShared(
			Rule{Glob: "commands/**/*.md", Template: ".github/prompts/**/{name}.prompt.md"},
			Rule{Glob: "rules/**/*.md", Template: ".github/instructions/**/{name}.instructions.md"},
			Rule{Glob: "agents/**/*.md", Template: ".github/agents/**/{name}.agent.md"},
			Rule{Glob: "skills/**/*", Template: ".github/skills/**/*"},
			Rule{Glob: "AGENTS.md", Template: "AGENTS.md"},
			Rule{Glob: "mcp.jsonc", Template: ".vscode/mcp.json"},
		),
	}
}

func init() { Register(NewCopilot()) }
