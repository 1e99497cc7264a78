package scanner

import (
	"path"
	"strings"
)

// IgnorePattern is one line of a .slicerignore file, using gitignore syntax.
type IgnorePattern struct {
	pattern  string   // Original line
	base     string   // Directory holding the ignore file, relative to the scan root
	negate   bool     // Line starts with !
	dirOnly  bool     // Line ends with /
	anchored bool     // Line contains a / before its end, so it is relative to base
	segments []string // Pattern split on /
}

// ParseIgnorePattern parses a gitignore-style line found in the scan root.
func ParseIgnorePattern(line string) IgnorePattern {
	return parseIgnorePattern(line, "")
}

func parseIgnorePattern(line, base string) IgnorePattern {
	p := IgnorePattern{pattern: line, base: base}

	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		p.anchored = true
	}

	p.segments = strings.Split(line, "/")
	return p
}

// String returns the line the pattern was parsed from.
func (p IgnorePattern) String() string {
	return p.pattern
}

// IsNegation reports whether the pattern re-includes what it matches.
func (p IgnorePattern) IsNegation() bool {
	return p.negate
}

// Match reports whether rel, a slash-separated path relative to the scan
// root, is matched. A directory-only pattern also matches everything below a
// matching directory. Negation is left to the caller.
func (p IgnorePattern) Match(rel string, isDir bool) bool {
	if p.base != "" {
		if !strings.HasPrefix(rel, p.base+"/") {
			return false
		}
		rel = rel[len(p.base)+1:]
	}
	segs := strings.Split(rel, "/")

	if p.dirOnly {
		last := len(segs)
		if !isDir {
			last--
		}
		for end := last; end >= 1; end-- {
			if p.matchPath(segs[:end]) {
				return true
			}
		}
		return false
	}
	return p.matchPath(segs)
}

func (p IgnorePattern) matchPath(segs []string) bool {
	if p.anchored {
		return matchSegments(p.segments, segs)
	}
	for i := range segs {
		if matchSegments(p.segments, segs[i:]) {
			return true
		}
	}
	return false
}

// matchSegments matches glob segments against path segments; ** spans any
// number of directories.
func matchSegments(pattern, segs []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if matchSegments(pattern[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	if ok, err := path.Match(pattern[0], segs[0]); err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], segs[1:])
}

// ignored applies patterns in order; the last match wins.
func ignored(rel string, isDir bool, patterns []IgnorePattern) bool {
	result := false
	for _, p := range patterns {
		if p.Match(rel, isDir) {
			result = !p.negate
		}
	}
	return result
}
