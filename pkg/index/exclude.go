package index

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

type ruleKind int

const (
	ruleBase     ruleKind = iota // *.tmp: matched against the file name
	ruleDir                      // cache/: any path component
	ruleAnyDepth                 // **/build/*.o: suffix of the path at any depth
	rulePath                     // docs/*.md: the path relative to the root
)

type rule struct {
	kind    ruleKind
	pattern string
}

// ExcludeRules decides which files are left out of an index. Patterns use
// forward slashes and path.Match syntax:
//   - *.tmp matches a file name anywhere in the tree
//   - .git/ matches a directory name anywhere in the tree
//   - **/cache/*.bin matches the tail of the path at any depth
//   - build/*.o matches the path relative to the root
type ExcludeRules struct {
	rules []rule
}

// NewExcludeRules compiles patterns; empty patterns are ignored
func NewExcludeRules(patterns []string) (*ExcludeRules, error) {
	r := &ExcludeRules{}
	for _, raw := range patterns {
		p := filepath.ToSlash(strings.TrimSpace(raw))
		if p == "" {
			continue
		}

		var compiled rule
		switch {
		case strings.HasSuffix(p, "/"):
			compiled = rule{kind: ruleDir, pattern: strings.TrimSuffix(p, "/")}
		case strings.HasPrefix(p, "**/"):
			compiled = rule{kind: ruleAnyDepth, pattern: strings.TrimPrefix(p, "**/")}
		case strings.Contains(p, "/"):
			compiled = rule{kind: rulePath, pattern: p}
		default:
			compiled = rule{kind: ruleBase, pattern: p}
		}

		if _, err := path.Match(compiled.pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		r.rules = append(r.rules, compiled)
	}
	return r, nil
}

// Len returns the number of active rules
func (r *ExcludeRules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Match reports whether a path relative to the tree root is excluded
func (r *ExcludeRules) Match(relativePath string) bool {
	if r.Len() == 0 {
		return false
	}

	rel := filepath.ToSlash(relativePath)
	parts := strings.Split(rel, "/")
	base := parts[len(parts)-1]

	for _, ru := range r.rules {
		switch ru.kind {
		case ruleBase:
			if matches(ru.pattern, base) {
				return true
			}
		case ruleDir:
			for _, dir := range parts[:len(parts)-1] {
				if matches(ru.pattern, dir) {
					return true
				}
			}
		case ruleAnyDepth:
			depth := strings.Count(ru.pattern, "/") + 1
			if depth <= len(parts) && matches(ru.pattern, strings.Join(parts[len(parts)-depth:], "/")) {
				return true
			}
		case rulePath:
			if matches(ru.pattern, rel) {
				return true
			}
		}
	}
	return false
}

func matches(pattern, name string) bool {
	ok, _ := path.Match(pattern, name)
	return ok
}
