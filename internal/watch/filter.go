package watch

import (
	"path/filepath"
	"strings"
)

// Filter decides whether a raw event path belongs to the monitored project.
// Pure string/pattern checks only: it runs in the event source's callback
// context and must never touch the filesystem.
type Filter struct {
	root       string
	exclusions []string
	patterns   []string
}

// NewFilter builds a filter for root. exclusions are matched against every
// path segment (supporting * wildcards); patterns are globs matched against
// the root-relative path, with ** matching across separators.
func NewFilter(root string, patterns, exclusions []string) *Filter {
	return &Filter{
		root:       filepath.Clean(root),
		exclusions: exclusions,
		patterns:   patterns,
	}
}

// Relevant reports whether path is inside the project root, not excluded at
// any ancestor level, and matched by at least one watch pattern.
func (f *Filter) Relevant(path string) bool {
	rel, err := filepath.Rel(f.root, filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	// Exclusion set applies to every segment, so anything under an excluded
	// directory is rejected no matter how deep.
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		for _, pattern := range f.exclusions {
			if matchSegment(pattern, seg) {
				return false
			}
		}
	}

	for _, pattern := range f.patterns {
		if globMatch(pattern, filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

func matchSegment(pattern, seg string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == seg
	}
	ok, err := filepath.Match(pattern, seg)
	return err == nil && ok
}

// globMatch matches slash-separated paths against a glob where "**" spans
// directory separators. filepath.Match alone cannot express "**", so the
// pattern is matched segment-wise.
func globMatch(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, path []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			// "**" may consume zero or more leading path segments.
			for i := 0; i <= len(path); i++ {
				if matchSegments(pattern[1:], path[i:]) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 {
			return false
		}
		ok, err := filepath.Match(pattern[0], path[0])
		if err != nil || !ok {
			return false
		}
		pattern = pattern[1:]
		path = path[1:]
	}
	return len(path) == 0
}
