// Package index builds a content index of a directory tree: every regular
// file is fingerprinted and grouped with the other files sharing its content.
package index

import (
	"github.com/sdejongh/dupelink/pkg/models"
)

// Index maps fingerprints to the files carrying them. Paths are unique:
// a file reached twice (through a symlink and directly) is recorded once.
// Fingerprints and paths keep discovery order; callers sort before display.
type Index struct {
	Root string

	order   []string
	byHash  map[string][]string
	entries map[string]models.FileEntry

	// Skipped counts files that could not be inspected or hashed
	Skipped int
	// Excluded counts files left out by exclude rules or the size filter
	Excluded int
}

// New creates an empty index for the tree at root
func New(root string) *Index {
	return &Index{
		Root:    root,
		byHash:  make(map[string][]string),
		entries: make(map[string]models.FileEntry),
	}
}

// Add records an entry. It returns false when the path is already indexed.
func (ix *Index) Add(entry models.FileEntry) bool {
	if _, ok := ix.entries[entry.Path]; ok {
		return false
	}
	ix.entries[entry.Path] = entry

	paths, seen := ix.byHash[entry.Hash]
	if !seen {
		ix.order = append(ix.order, entry.Hash)
	}
	ix.byHash[entry.Hash] = append(paths, entry.Path)
	return true
}

// Fingerprints returns every distinct fingerprint in discovery order
func (ix *Index) Fingerprints() []string {
	return append([]string(nil), ix.order...)
}

// Paths returns the files carrying a fingerprint
func (ix *Index) Paths(fingerprint string) []string {
	return append([]string(nil), ix.byHash[fingerprint]...)
}

// Has reports whether any file carries the fingerprint
func (ix *Index) Has(fingerprint string) bool {
	_, ok := ix.byHash[fingerprint]
	return ok
}

// Entry returns the metadata recorded for a path
func (ix *Index) Entry(path string) (models.FileEntry, bool) {
	e, ok := ix.entries[path]
	return e, ok
}

// Len returns the number of indexed files
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Bytes returns the total size of the indexed files
func (ix *Index) Bytes() int64 {
	var total int64
	for _, e := range ix.entries {
		total += e.Size
	}
	return total
}
