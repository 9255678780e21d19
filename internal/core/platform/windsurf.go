package platform

// NewWindsurf returns the Windsurf platform. Commands become workflows.
func NewWindsurf() *Platform {
	return &Platform{
		ID:      "windsurf",
		Name:    "Windsurf",
		Dir:     ".windsurf",
		Signals: []string{".windsurf", ".windsurfrules"},
		Rules: withShared(
			Rule{Glob: "commands/**/*", Template: ".windsurf/workflows/**/*"},
			Rule{Glob: "rules/**/*", Template: ".windsurf/rules/**/*"},
			Rule{Glob: "skills/**/*", Template: ".windsurf/skills/**/*"},
			Rule{Glob: "AGENTS.md", Template: "AGENTS.md"},
		),
	}
}

func init() { Register(NewWindsurf()) }
