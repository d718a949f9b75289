package registry

import (
	"path/filepath"
	"strings"
)

// ownRule is a single compiled ownership pattern.
// Supports: globs (*.sql), root-relative (/cmd), double-star (**/migrations,
// db/**, api/**/handlers). A pattern containing a slash is anchored and
// matched against the full relative path; otherwise it matches basenames at
// any depth.
type ownRule struct {
	pattern  string // cleaned pattern (no leading /, no trailing /)
	anchored bool   // contains / — match against full path
}

// parseOwnRule compiles one ownership pattern. Empty patterns are rejected.
func parseOwnRule(line string) (ownRule, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimRight(line, "/")
	if line == "" {
		return ownRule{}, false
	}

	var r ownRule

	// Anchoring: leading / means root-relative; a / anywhere in the middle
	// also anchors the pattern (unless it's just **/... depth-independence).
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = strings.TrimLeft(line, "/")
	} else if strings.Contains(line, "/") && !strings.HasPrefix(line, "**/") {
		r.anchored = true
	}

	r.pattern = line
	if line == "" {
		return ownRule{}, false
	}
	return r, true
}

// match checks whether the rule matches a relative path. A rule that names a
// directory also matches everything under it, so "db" owns "db/schema.sql".
func (r ownRule) match(relPath string) bool {
	pattern := r.pattern

	// Leading **/ — match at any depth
	if strings.HasPrefix(pattern, "**/") {
		return matchAnySuffix(pattern[3:], relPath)
	}

	// Trailing /** — everything under prefix
	if strings.HasSuffix(pattern, "/**") {
		prefix := pattern[:len(pattern)-3]
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}

	// **/ in the middle: prefix/**/suffix
	if idx := strings.Index(pattern, "/**/"); idx >= 0 {
		prefix := pattern[:idx]
		suffix := pattern[idx+4:]
		if !(relPath == prefix || strings.HasPrefix(relPath, prefix+"/")) {
			return false
		}
		remaining := strings.TrimPrefix(relPath, prefix+"/")
		return matchAnySuffix(suffix, remaining)
	}

	if r.anchored {
		if matchGlob(pattern, relPath) {
			return true
		}
		// Directory ownership: "internal/api" also owns "internal/api/x.go"
		return matchDirPrefix(pattern, relPath)
	}

	// Non-anchored: match basename, or treat as a directory name at any depth
	if matchGlob(pattern, filepath.Base(relPath)) {
		return true
	}
	return matchAnySuffixDir(pattern, relPath)
}

// specificity scores how precisely the rule pins down a path. Literal
// characters count; wildcards do not. Used to break ties when several
// domains match the same path — the longest matching pattern wins.
func (r ownRule) specificity() int {
	score := 0
	for _, c := range r.pattern {
		if c != '*' && c != '?' && c != '[' && c != ']' {
			score++
		}
	}
	if r.anchored {
		score++ // anchored patterns beat basename patterns of equal length
	}
	return score
}

// matchAnySuffix tries pattern against relPath or any suffix starting after
// a path separator.
func matchAnySuffix(pattern, relPath string) bool {
	if matchGlob(pattern, relPath) {
		return true
	}
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' {
			if matchGlob(pattern, relPath[i+1:]) {
				return true
			}
		}
	}
	return false
}

// matchAnySuffixDir checks whether any path segment sequence starting at a
// separator matches pattern as a directory prefix.
func matchAnySuffixDir(pattern, relPath string) bool {
	if matchDirPrefix(pattern, relPath) {
		return true
	}
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' {
			if matchDirPrefix(pattern, relPath[i+1:]) {
				return true
			}
		}
	}
	return false
}

// matchDirPrefix reports whether pattern matches a leading directory of
// relPath, e.g. pattern "db" against "db/schema.sql".
func matchDirPrefix(pattern, relPath string) bool {
	parts := strings.Split(relPath, "/")
	patParts := strings.Split(pattern, "/")
	if len(patParts) >= len(parts) {
		return false
	}
	for i, pp := range patParts {
		if !matchGlob(pp, parts[i]) {
			return false
		}
	}
	return true
}

// matchGlob wraps filepath.Match, returning false on malformed patterns.
func matchGlob(pattern, name string) bool {
	matched, _ := filepath.Match(pattern, name)
	return matched
}
