package platform

// NewGemini returns the Gemini CLI platform.
func NewGemini() *Platform {
	return &Platform{
		ID:      "gemini",
		Name:    "Gemini CLI",
		Dir:     ".gemini",
		Signals: []string{".gemini", "GEMINI.md"},
		Rules: withShared(
			Rule{Glob: "commands/**/*", Template: ".gemini/commands/**/*"},
			Rule{Glob: "agents/**/*", Template: ".gemini/agents/**/*"},
			Rule{Glob: "skills/**/*", Template: ".gemini/skills/**/*"},
			Rule{Glob: "AGENTS.md", Template: "GEMINI.md"},
		),
	}
}

func init() { Register(NewGemini()) }
