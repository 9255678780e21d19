package core

// EntryClass is the ordering tier of a lockfile or index entry.
type EntryClass int

const (
	ClassGit EntryClass = iota
	ClassDir
	ClassSelf
)

// Reorder returns entries arranged as git block, then directory block, then
// the workspace's own entry. Relative order inside each block is preserved.
// classify reports the kind of an entry's source; nameOf is compared with
// workspaceName to single out the workspace entry regardless of its kind.
func Reorder[T any](entries []T, nameOf func(T) string, classify func(T) EntryClass, workspaceName string) []T {
	out := make([]T, 0, len(entries))
	var dirs, self []T
	for _, e := range entries {
		switch {
		case workspaceName != "" && nameOf(e) == workspaceName:
			self = append(self, e)
		case classify(e) == ClassGit:
			out = append(out, e)
		default:
			dirs = append(dirs, e)
		}
	}
	out = append(out, dirs...)
	return append(out, self...)
}

// orderBy stably rearranges entries so that those named in order come
// first, in that order. Entries not named keep their relative order after them.
func orderBy[T any](entries []T, nameOf func(T) string, order []string) []T {
	pos := make(map[string]int, len(order))
	for i, n := range order {
		if _, seen := pos[n]; !seen {
			pos[n] = i
		}
	}
	ranked := make([][]T, len(order))
	var rest []T
	for _, e := range entries {
		if i, ok := pos[nameOf(e)]; ok {
			ranked[i] = append(ranked[i], e)
			continue
		}
		rest = append(rest, e)
	}
	out := make([]T, 0, len(entries))
	for _, group := range ranked {
		out = append(out, group...)
	}
	return append(out, rest...)
}
