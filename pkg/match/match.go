// Package match intersects two content indexes.
package match

import (
	"path/filepath"
	"sort"

	"github.com/sdejongh/dupelink/pkg/models"
)

// Index is the read side of a content index
type Index interface {
	Fingerprints() []string
	Paths(fingerprint string) []string
	Has(fingerprint string) bool
}

// Options tune matching
type Options struct {
	// DifferentNamesOnly drops groups whose files all carry the same base name
	DifferentNamesOnly bool
}

// Result holds the groups present in both indexes and the files found in
// only one of them
type Result struct {
	Groups     []models.MatchGroup
	UnmatchedA []string
	UnmatchedB []string
}

// Match returns the fingerprints present in both indexes. Paths inside a
// group are sorted, groups are ordered by their first path, and both
// unmatched lists are sorted.
func Match(a, b Index, opts Options) Result {
	var res Result

	for _, fp := range a.Fingerprints() {
		if !b.Has(fp) {
			res.UnmatchedA = append(res.UnmatchedA, a.Paths(fp)...)
			continue
		}

		group := models.MatchGroup{
			Hash:   fp,
			FilesA: sortedCopy(a.Paths(fp)),
			FilesB: sortedCopy(b.Paths(fp)),
		}
		if opts.DifferentNamesOnly && sameBaseName(group) {
			continue
		}
		res.Groups = append(res.Groups, group)
	}

	for _, fp := range b.Fingerprints() {
		if !a.Has(fp) {
			res.UnmatchedB = append(res.UnmatchedB, b.Paths(fp)...)
		}
	}

	sort.Slice(res.Groups, func(i, j int) bool {
		return firstPath(res.Groups[i]) < firstPath(res.Groups[j])
	})
	sort.Strings(res.UnmatchedA)
	sort.Strings(res.UnmatchedB)
	return res
}

// sameBaseName reports whether the union of base names across both sides
// has exactly one element
func sameBaseName(g models.MatchGroup) bool {
	names := make(map[string]struct{})
	for _, p := range g.Paths() {
		names[filepath.Base(p)] = struct{}{}
		if len(names) > 1 {
			return false
		}
	}
	return len(names) == 1
}

func firstPath(g models.MatchGroup) string {
	if len(g.FilesA) > 0 {
		return g.FilesA[0]
	}
	return ""
}

func sortedCopy(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out
}
