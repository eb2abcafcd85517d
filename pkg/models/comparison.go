package models

// MatchGroup is a fingerprint present in both indexed trees
type MatchGroup struct {
	// Hash is the shared content fingerprint
	Hash string `json:"hash"`

	// FilesA are the matching paths found in the first tree
	FilesA []string `json:"files_a"`

	// FilesB are the matching paths found in the second tree
	FilesB []string `json:"files_b"`
}

// Paths returns every path of the group, first tree first
func (g MatchGroup) Paths() []string {
	paths := make([]string, 0, len(g.FilesA)+len(g.FilesB))
	paths = append(paths, g.FilesA...)
	return append(paths, g.FilesB...)
}

// CompareResult is the structured outcome of matching two trees
type CompareResult struct {
	DirA       string       `json:"dir_a"`
	DirB       string       `json:"dir_b"`
	Algorithm  Algorithm    `json:"algorithm"`
	Groups     []MatchGroup `json:"groups"`
	UnmatchedA []string     `json:"unmatched_a"`
	UnmatchedB []string     `json:"unmatched_b"`
	Stats      IndexStats   `json:"stats"`
}

// IndexStats holds scan counters for both trees
type IndexStats struct {
	FilesA       int   `json:"files_a"`
	FilesB       int   `json:"files_b"`
	SkippedA     int   `json:"skipped_a"`
	SkippedB     int   `json:"skipped_b"`
	BytesIndexed int64 `json:"bytes_indexed"`
}

// DuplicateFile is one candidate for action inside a DuplicateGroup
type DuplicateFile struct {
	// Path is the resolved absolute path of the duplicate
	Path string `json:"path"`

	// Root is the tree root the duplicate was indexed from
	Root string `json:"root"`

	// Size is the size observed while indexing
	Size int64 `json:"size"`

	// CrossFilesystem is set when the duplicate lives on another device than the master
	CrossFilesystem bool `json:"cross_filesystem"`

	// AlreadyLinked is set when the duplicate is already a hardlink to the master
	AlreadyLinked bool `json:"already_linked"`
}

// DuplicateGroup is a set of identical files with one selected master
type DuplicateGroup struct {
	FileHash   string          `json:"file_hash"`
	MasterFile string          `json:"master_file"`
	Duplicates []DuplicateFile `json:"duplicates"`

	// Reason documents why the master was chosen
	Reason string `json:"reason"`

	// Warning is set when several files of the master tree share this content
	Warning string `json:"warning,omitempty"`

	// MasterLinks is the hardlink count of the master before any action
	MasterLinks uint64 `json:"master_links,omitempty"`
}

// ReclaimableBytes returns the bytes freed if every duplicate not yet linked is acted on
func (g DuplicateGroup) ReclaimableBytes() int64 {
	var total int64
	for _, d := range g.Duplicates {
		if !d.AlreadyLinked {
			total += d.Size
		}
	}
	return total
}

// Plan is the ordered list of groups handed to the orchestrator
type Plan struct {
	Groups   []DuplicateGroup `json:"groups"`
	Warnings []string         `json:"warnings,omitempty"`
}

// DuplicateCount returns the number of duplicates across all groups
func (p *Plan) DuplicateCount() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Duplicates)
	}
	return n
}

// ReclaimableBytes sums ReclaimableBytes over all groups
func (p *Plan) ReclaimableBytes() int64 {
	var total int64
	for _, g := range p.Groups {
		total += g.ReclaimableBytes()
	}
	return total
}
