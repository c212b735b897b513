package state

import "strings"

// MatchPattern reports whether pattern covers path. A pattern is an exact
// path, "*" for every path, or "prefix.*" which matches the prefix itself and
// any path below it. Descent is dot-separated only: an indexed element such
// as "system.x[2]" is matched by "system.*" (or by itself exactly), not by
// "system.x.*". Key inference for persistence is broader; see KeyTable.
func MatchPattern(pattern, path string) bool {
	if pattern == "*" || pattern == path {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+".")
	}
	return false
}
