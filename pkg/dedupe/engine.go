// Package dedupe drives a run: it indexes both trees, matches them, selects
// the master of every group and hands the duplicates to the action executor.
package dedupe

import (
	"context"
	"fmt"
	"sort"

	"github.com/sdejongh/dupelink/internal/platform"
	"github.com/sdejongh/dupelink/pkg/fsprobe"
	"github.com/sdejongh/dupelink/pkg/index"
	"github.com/sdejongh/dupelink/pkg/logging"
	"github.com/sdejongh/dupelink/pkg/master"
	"github.com/sdejongh/dupelink/pkg/match"
	"github.com/sdejongh/dupelink/pkg/models"
)

// Indexer builds the content index of one tree
type Indexer interface {
	Build(ctx context.Context, root string) (*index.Index, error)
}

// ScanProgress is told how indexing advances, tree by tree
type ScanProgress interface {
	StartTree(root string)
	FileIndexed(path string, size int64)
	FinishTree(files int, bytes int64)
}

// fileNotifier is implemented by indexers that report each indexed file
type fileNotifier interface {
	SetFileCallback(fn func(path string, size int64))
}

// Scan holds both indexes of a run and their intersection
type Scan struct {
	A     *index.Index
	B     *index.Index
	Match match.Result
}

// Engine turns two trees into a compare result or an action plan
type Engine struct {
	indexer   Indexer
	logger    logging.Logger
	operation *models.DedupeOperation
	progress  ScanProgress
}

// NewEngine creates a new engine; a nil logger discards messages
func NewEngine(indexer Indexer, logger logging.Logger, operation *models.DedupeOperation) *Engine {
	return &Engine{
		indexer:   indexer,
		logger:    logging.OrNull(logger),
		operation: operation,
	}
}

// SetScanProgress registers a display for the indexing phase
func (e *Engine) SetScanProgress(p ScanProgress) {
	e.progress = p
}

// Scan indexes both trees, one after the other, and matches them
func (e *Engine) Scan(ctx context.Context) (*Scan, error) {
	if n, ok := e.indexer.(fileNotifier); ok && e.progress != nil {
		n.SetFileCallback(e.progress.FileIndexed)
		defer n.SetFileCallback(nil)
	}

	a, err := e.build(ctx, e.operation.DirA)
	if err != nil {
		return nil, err
	}
	b, err := e.build(ctx, e.operation.DirB)
	if err != nil {
		return nil, err
	}

	result := match.Match(a, b, match.Options{DifferentNamesOnly: e.operation.DifferentNamesOnly})
	e.logger.Info(ctx, "matched trees", logging.Fields{
		"groups":      len(result.Groups),
		"unmatched_a": len(result.UnmatchedA),
		"unmatched_b": len(result.UnmatchedB),
	})

	return &Scan{A: a, B: b, Match: result}, nil
}

func (e *Engine) build(ctx context.Context, root string) (*index.Index, error) {
	if e.progress == nil {
		return e.indexer.Build(ctx, root)
	}

	e.progress.StartTree(root)
	idx, err := e.indexer.Build(ctx, root)
	if err != nil {
		e.progress.FinishTree(0, 0)
		return nil, err
	}
	e.progress.FinishTree(idx.Len(), idx.Bytes())
	return idx, nil
}

// CompareResult converts a scan into the structure rendered by compare
func (e *Engine) CompareResult(scan *Scan) *models.CompareResult {
	return &models.CompareResult{
		DirA:       scan.A.Root,
		DirB:       scan.B.Root,
		Algorithm:  e.operation.Algorithm,
		Groups:     nonNil(scan.Match.Groups),
		UnmatchedA: nonNil(scan.Match.UnmatchedA),
		UnmatchedB: nonNil(scan.Match.UnmatchedB),
		Stats: models.IndexStats{
			FilesA:       scan.A.Len(),
			FilesB:       scan.B.Len(),
			SkippedA:     scan.A.Skipped,
			SkippedB:     scan.B.Skipped,
			BytesIndexed: scan.A.Bytes() + scan.B.Bytes(),
		},
	}
}

// BuildPlan selects a master for every match group. Groups are ordered by
// master path, then by hash; a group left without duplicates is dropped.
func (e *Engine) BuildPlan(ctx context.Context, scan *Scan) (*models.Plan, error) {
	masterDir := ""
	if e.operation.MasterDir != "" {
		resolved, err := platform.Resolve(e.operation.MasterDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve master directory: %w", err)
		}
		masterDir = resolved
	}

	plan := &models.Plan{Groups: make([]models.DuplicateGroup, 0, len(scan.Match.Groups))}

	for _, g := range scan.Match.Groups {
		entries := make(map[string]models.FileEntry)
		candidates := make([]master.Candidate, 0, len(g.FilesA)+len(g.FilesB))
		for _, path := range g.Paths() {
			if _, seen := entries[path]; seen {
				continue
			}
			entry, ok := scan.A.Entry(path)
			if !ok {
				entry, ok = scan.B.Entry(path)
			}
			if !ok {
				continue
			}
			entries[path] = entry
			candidates = append(candidates, master.Candidate{Path: path, ModTime: entry.ModTime})
		}

		sel := master.Select(candidates, masterDir)
		if len(sel.Duplicates) == 0 {
			continue
		}

		group := models.DuplicateGroup{
			FileHash:   g.Hash,
			MasterFile: sel.Master,
			Reason:     string(sel.Reason),
			Warning:    sel.Warning,
			Duplicates: make([]models.DuplicateFile, 0, len(sel.Duplicates)),
		}
		if links, err := fsprobe.LinkCount(sel.Master); err == nil {
			group.MasterLinks = links
		}
		linked, _ := fsprobe.FilterAlreadyLinked(sel.Master, sel.Duplicates)
		isLinked := make(map[string]bool, len(linked))
		for _, path := range linked {
			isLinked[path] = true
		}
		for _, path := range sel.Duplicates {
			entry := entries[path]
			group.Duplicates = append(group.Duplicates, models.DuplicateFile{
				Path:            path,
				Root:            entry.Root,
				Size:            entry.Size,
				CrossFilesystem: fsprobe.OnDifferentFilesystems(path, sel.Master),
				AlreadyLinked:   isLinked[path],
			})
		}

		if sel.Warning != "" {
			warning := fmt.Sprintf("%s: %s", sel.Master, sel.Warning)
			plan.Warnings = append(plan.Warnings, warning)
			e.logger.Warn(ctx, "multiple files of the master directory share content", logging.Fields{
				"master": sel.Master,
				"hash":   g.Hash,
				"files":  len(candidates),
			})
		}
		plan.Groups = append(plan.Groups, group)
	}

	sort.Slice(plan.Groups, func(i, j int) bool {
		if plan.Groups[i].MasterFile != plan.Groups[j].MasterFile {
			return plan.Groups[i].MasterFile < plan.Groups[j].MasterFile
		}
		return plan.Groups[i].FileHash < plan.Groups[j].FileHash
	})

	e.logger.Info(ctx, "built plan", logging.Fields{
		"groups":      len(plan.Groups),
		"duplicates":  plan.DuplicateCount(),
		"reclaimable": plan.ReclaimableBytes(),
	})
	return plan, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
