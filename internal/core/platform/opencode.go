package platform

// NewOpenCode returns the OpenCode platform.
func NewOpenCode() *Platform {
	return &Platform{
		ID:      "opencode",
		Name:    "OpenCode",
		Dir:     ".opencode",
		Signals: []string{".opencode", "opencode.json", "opencode.jsonc"},
		Rules: withShared(
			Rule{Glob: "commands/**/*", Template: ".opencode/command/**/*"},
			Rule{Glob: "agents/**/*", Template: ".opencode/agent/**/*"},
			Rule{Glob: "skills/**/*", Template: ".opencode/skills/**/*"},
			Rule{Glob: "AGENTS.md", Template: "AGENTS.md"},
		),
	}
}

func init() { Register(NewOpenCode()) }
