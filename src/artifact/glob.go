package artifact

import (
	"path"
	"strings"
)

// MatchGlob reports whether a slash-separated path matches pattern.
// Besides the path.Match syntax, "**" matches zero or more segments.
func MatchGlob(pattern, name string) bool {
	i := strings.Index(pattern, "**")
	if i < 0 {
		ok, _ := path.Match(pattern, name)
		return ok
	}

	head := strings.TrimSuffix(pattern[:i], "/")
	rest := strings.TrimPrefix(pattern[i+2:], "/")

	if head != "" {
		if name != head && !strings.HasPrefix(name, head+"/") {
			return false
		}
		name = strings.TrimPrefix(strings.TrimPrefix(name, head), "/")
	}
	if rest == "" {
		return true
	}

	segs := strings.Split(name, "/")
	for j := range segs {
		if MatchGlob(rest, strings.Join(segs[j:], "/")) {
			return true
		}
	}
	return false
}

// Excluded reports whether rel matches any pattern. Patterns with a "/"
// or "**" match the whole relative path; others match the base name.
func Excluded(patterns []string, rel string) bool {
	rel = strings.TrimPrefix(toSlash(rel), "./")
	base := path.Base(rel)
	for _, p := range patterns {
		p = toSlash(p)
		target := base
		if strings.Contains(p, "/") || strings.Contains(p, "**") {
			target = rel
		}
		if MatchGlob(p, target) {
			return true
		}
	}
	return false
}
