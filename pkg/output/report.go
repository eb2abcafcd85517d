package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/dupelink/pkg/models"
)

// RenderOptions tune the human renderers
type RenderOptions struct {
	Color bool

	// ShowUnmatched lists files found in only one tree
	ShowUnmatched bool
}

// RenderCompare writes the match groups of a comparison
func RenderCompare(w io.Writer, result *models.CompareResult, opts RenderOptions) error {
	p := newPalette(opts.Color)

	fmt.Fprintf(w, "Comparing %s and %s (%s)\n", result.DirA, result.DirB, result.Algorithm)
	fmt.Fprintf(w, "  Indexed: %d + %d files, %s\n", result.Stats.FilesA, result.Stats.FilesB,
		humanize.IBytes(uint64(result.Stats.BytesIndexed)))
	if skipped := result.Stats.SkippedA + result.Stats.SkippedB; skipped > 0 {
		fmt.Fprintf(w, "  %s %d files could not be read\n", p.skip.Sprint("Skipped:"), skipped)
	}
	fmt.Fprintln(w)

	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "No files with identical content found.")
	}
	for i, g := range result.Groups {
		fmt.Fprintf(w, "Match %d [%s]\n", i+1, shortHash(g.Hash))
		for _, path := range g.FilesA {
			fmt.Fprintf(w, "  1: %s\n", path)
		}
		for _, path := range g.FilesB {
			fmt.Fprintf(w, "  2: %s\n", path)
		}
	}

	if opts.ShowUnmatched {
		writeList(w, "Only in "+result.DirA, result.UnmatchedA)
		writeList(w, "Only in "+result.DirB, result.UnmatchedB)
	}

	fmt.Fprintf(w, "\n%d matching groups, %d files only in %s, %d files only in %s\n",
		len(result.Groups), len(result.UnmatchedA), result.DirA, len(result.UnmatchedB), result.DirB)
	return nil
}

// RenderPlan writes the groups that an action would process
func RenderPlan(w io.Writer, plan *models.Plan, action models.ActionKind, opts RenderOptions) error {
	p := newPalette(opts.Color)

	if len(plan.Groups) == 0 {
		fmt.Fprintln(w, "No duplicates found.")
		return nil
	}

	for i, g := range plan.Groups {
		RenderGroup(w, g, i+1, len(plan.Groups), opts)
		if i < len(plan.Groups)-1 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "\n%d groups, %d duplicates, %s reclaimable", len(plan.Groups), plan.DuplicateCount(),
		humanize.IBytes(uint64(plan.ReclaimableBytes())))
	if action.Mutates() {
		fmt.Fprintf(w, " with %s", action)
	}
	fmt.Fprintln(w)

	for _, warning := range plan.Warnings {
		fmt.Fprintf(w, "%s %s\n", p.warn.Sprint("Warning:"), warning)
	}
	return nil
}

// RenderGroup writes one duplicate group
func RenderGroup(w io.Writer, g models.DuplicateGroup, position, total int, opts RenderOptions) {
	p := newPalette(opts.Color)

	fmt.Fprintf(w, "Group %d/%d [%s] %s\n", position, total, shortHash(g.FileHash),
		humanize.IBytes(uint64(g.ReclaimableBytes())))
	if g.MasterLinks > 1 {
		fmt.Fprintf(w, "  master: %s (%s, %d links)\n", p.ok.Sprint(g.MasterFile), g.Reason, g.MasterLinks)
	} else {
		fmt.Fprintf(w, "  master: %s (%s)\n", p.ok.Sprint(g.MasterFile), g.Reason)
	}
	for _, d := range g.Duplicates {
		var tags []string
		if d.CrossFilesystem {
			tags = append(tags, "other filesystem")
		}
		if d.AlreadyLinked {
			tags = append(tags, "already linked")
		}
		line := fmt.Sprintf("  dup:    %s (%s)", d.Path, humanize.IBytes(uint64(d.Size)))
		if len(tags) > 0 {
			line += " " + p.skip.Sprint("["+strings.Join(tags, ", ")+"]")
		}
		fmt.Fprintln(w, line)
	}
	if g.Warning != "" {
		fmt.Fprintf(w, "  %s %s\n", p.warn.Sprint("warning:"), g.Warning)
	}
}

// SaveReport writes a report file. With format "json" data is encoded as
// JSON; otherwise render produces the human text.
func SaveReport(path, format string, data any, render func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if format == FormatJSON {
		err = writeJSON(file, data)
	} else {
		err = render(file)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteJSON encodes any result (compare result, plan) as indented JSON
func WriteJSON(w io.Writer, v any) error {
	return writeJSON(w, v)
}

func writeList(w io.Writer, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(paths))
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(title)))
	for _, path := range paths {
		fmt.Fprintf(w, "  %s\n", path)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
