package exclude

import (
	"path"
	"path/filepath"
	"strings"
)

// ruleKind selects the matching strategy for a pattern.
type ruleKind int

const (
	// substringRule matches when the pattern occurs anywhere in the
	// normalized path.
	substringRule ruleKind = iota
	// globRule matches the pattern against the base name only.
	globRule
)

// rule is a single compiled exclusion pattern. Patterns are stored
// lowercased; all matching is case-insensitive.
type rule struct {
	kind    ruleKind
	pattern string
}

// systemPatterns are always excluded regardless of configuration:
// OS recycle bins and volume metadata, swap and hibernation files,
// version-control internals, and common build and IDE caches.
var systemPatterns = []string{
	"$recycle.bin",
	"system volume information",
	"pagefile.sys",
	"hiberfil.sys",
	"swapfile.sys",
	".git",
	".svn",
	".hg",
	"node_modules",
	"__pycache__",
	".idea",
	".vscode",
}

// Matcher decides whether a path is excluded from synchronization.
// Rules are independent: a path matching any single rule is excluded.
type Matcher struct {
	rules []rule
	seen  map[string]struct{}
}

// New builds a Matcher seeded with the system denylist plus the given
// patterns. Invalid glob patterns are rejected.
func New(patterns ...string) (*Matcher, error) {
	m := &Matcher{seen: make(map[string]struct{})}
	for _, p := range systemPatterns {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	for _, p := range patterns {
		if err := m.Add(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add registers one pattern. A pattern containing a glob metacharacter
// ('*' or '?') matches base names; anything else matches as a substring
// of the whole path. Duplicates are dropped. Malformed globs return
// path.ErrBadPattern.
func (m *Matcher) Add(pattern string) error {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" {
		return nil
	}
	if _, ok := m.seen[p]; ok {
		return nil
	}
	r := rule{kind: substringRule, pattern: p}
	if strings.ContainsAny(p, "*?") {
		if _, err := path.Match(p, "probe"); err != nil {
			return err
		}
		r.kind = globRule
	}
	m.seen[p] = struct{}{}
	m.rules = append(m.rules, r)
	return nil
}

// AddAll registers each pattern in turn, stopping at the first error.
func (m *Matcher) AddAll(patterns []string) error {
	for _, p := range patterns {
		if err := m.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered rules, system denylist included.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Excluded reports whether the path matches any rule. The path is
// normalized to forward slashes and lowercased before matching; glob
// rules see only the base name.
func (m *Matcher) Excluded(p string) bool {
	norm := strings.ToLower(filepath.ToSlash(p))
	base := path.Base(norm)
	for _, r := range m.rules {
		switch r.kind {
		case globRule:
			if ok, _ := path.Match(r.pattern, base); ok {
				return true
			}
		default:
			if strings.Contains(norm, r.pattern) {
				return true
			}
		}
	}
	return false
}
