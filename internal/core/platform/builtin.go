package platform

// sharedRules apply to every builtin platform: files under a bundle's
// root/ directory land at the same path in the workspace root.
var sharedRules = []Rule{
	{Glob: "root/**/*", Template: "**/*"},
}

func withShared(rules ...Rule) []Rule {
	return append(rules, sharedRules...)
}
