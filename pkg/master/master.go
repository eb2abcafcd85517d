// Package master chooses which copy of a duplicate group is kept.
package master

import (
	"fmt"
	"sort"
	"time"

	"github.com/sdejongh/dupelink/internal/platform"
)

// Reason tags why a master was chosen
type Reason string

const (
	ReasonOnlyFile          Reason = "only-file"
	ReasonInMasterDir       Reason = "in-master-dir"
	ReasonOldestInMasterDir Reason = "oldest-in-master-dir"
	ReasonOldest            Reason = "oldest"
)

// Candidate is one file of a group
type Candidate struct {
	Path    string
	ModTime time.Time
}

// Selection is the outcome of Select
type Selection struct {
	Master     string
	Duplicates []string
	Reason     Reason

	// Warning is set when several files of the master directory share the
	// content: all but one of them become duplicates.
	Warning string
}

// Select picks the master of a group. The result depends only on the
// candidates and masterDir: the oldest modification time wins, ties are
// broken by lexicographic path, and when masterDir is set the files below
// it are preferred. Duplicates are returned oldest first.
func Select(candidates []Candidate, masterDir string) Selection {
	if len(candidates) == 0 {
		return Selection{}
	}

	ordered := append([]Candidate(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].ModTime.Equal(ordered[j].ModTime) {
			return ordered[i].ModTime.Before(ordered[j].ModTime)
		}
		return ordered[i].Path < ordered[j].Path
	})

	if len(ordered) == 1 {
		return Selection{Master: ordered[0].Path, Reason: ReasonOnlyFile}
	}

	if masterDir != "" {
		var inMaster []string
		for _, c := range ordered {
			if platform.IsWithin(c.Path, masterDir) {
				inMaster = append(inMaster, c.Path)
			}
		}

		switch len(inMaster) {
		case 0:
		case 1:
			return pick(ordered, inMaster[0], ReasonInMasterDir, "")
		default:
			warning := fmt.Sprintf("%d files in the master directory share this content; %d of them will be treated as duplicates",
				len(inMaster), len(inMaster)-1)
			return pick(ordered, inMaster[0], ReasonOldestInMasterDir, warning)
		}
	}

	return pick(ordered, ordered[0].Path, ReasonOldest, "")
}

func pick(ordered []Candidate, master string, reason Reason, warning string) Selection {
	sel := Selection{Master: master, Reason: reason, Warning: warning}
	for _, c := range ordered {
		if c.Path != master {
			sel.Duplicates = append(sel.Duplicates, c.Path)
		}
	}
	return sel
}
