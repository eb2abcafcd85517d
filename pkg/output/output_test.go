package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/dupelink/pkg/models"
)

func sampleSummary() *models.ExecutionSummary {
	s := &models.ExecutionSummary{
		OperationID: "run-1",
		Action:      models.ActionHardlink,
		StartTime:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Warnings:    []string{"2 files in the master directory share this content"},
	}
	s.EndTime = s.StartTime.Add(s.Duration)
	s.Stats.GroupsTotal = 2
	s.Stats.GroupsProcessed = 2
	s.Record("/b/x", models.ActionHardlink, 2048, models.Success{Action: models.ActionHardlink, LinkPath: "/b/x"})
	s.Record("/b/y", models.ActionHardlink, 10, models.Failed{Err: errors.New("permission denied")})
	return s
}

func sampleUpdates() []ProgressUpdate {
	return []ProgressUpdate{
		{Type: UpdateGroupStart, Master: "/a/x", CurrentGroup: 1, TotalGroups: 2},
		{Type: UpdateFileDone, FilePath: "/b/x", Master: "/a/x", Action: models.ActionHardlink, Bytes: 2048,
			Outcome: models.Success{Action: models.ActionSymlink, LinkPath: "/b/x"}, CurrentFile: 1, TotalFiles: 3},
		{Type: UpdateFileDone, FilePath: "/b/z", Master: "/a/x", Action: models.ActionHardlink, Bytes: 5,
			Outcome: models.Skipped{Reason: models.SkipAlreadyHardlinked}, CurrentFile: 2, TotalFiles: 3},
		{Type: UpdateGroupSkipped, Reason: models.SkipMasterMissing, CurrentGroup: 2, TotalGroups: 2},
		{Type: UpdateFileDone, FilePath: "/b/y", Master: "/a/y", Action: models.ActionHardlink, Bytes: 10,
			Outcome: models.Failed{Err: errors.New("permission denied")}, CurrentFile: 3, TotalFiles: 3},
	}
}

func run(t *testing.T, f Formatter) {
	t.Helper()
	require.NoError(t, f.Start(3, 2063))
	for _, u := range sampleUpdates() {
		require.NoError(t, f.Progress(u))
	}
	require.NoError(t, f.Complete(sampleSummary()))
}

func TestHumanFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter(&buf, false)
	run(t, f)

	out := buf.String()
	for _, want := range []string{
		"Processing 3 duplicates, up to 2.0 KiB reclaimable",
		"Group 1/2: keeping /a/x",
		"[1/3] ✓ symlink (fallback) /b/x -> /a/x",
		"[2/3] - /b/z (already hardlinked to master)",
		"Group 2/2: skipped (master no longer exists)",
		"[3/3] ✗ /b/y: permission denied",
		"Succeeded:      1",
		"Space reclaimed:  2.0 KiB",
		"Status: partial",
		"Warnings:",
		"/b/y: permission denied",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "colour must be disabled")
	assert.Equal(t, "human", f.Name())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	run(t, NewJSONFormatter(&buf))

	var doc JSONSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.OperationID)
	assert.Equal(t, models.StatusPartial, doc.Status)
	assert.Equal(t, 2, doc.ExitCode)
	assert.Equal(t, int64(1500), doc.DurationMs)
	assert.Equal(t, 3, doc.TotalFiles)
	require.Len(t, doc.Files, 3)
	assert.Equal(t, "success", doc.Files[0].Result)
	assert.Equal(t, "symlink", doc.Files[0].Used)
	assert.Equal(t, "skipped", doc.Files[1].Result)
	assert.Equal(t, "failed", doc.Files[2].Result)
	assert.Equal(t, "permission denied", doc.Files[2].Error)
	assert.Equal(t, 1, doc.Stats.Succeeded)
}

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter(&buf, false)
	run(t, f)

	assert.Contains(t, buf.String(), "Status: partial")
	assert.Equal(t, []string{"/b/y: permission denied"}, f.failures)
	assert.Equal(t, int64(2048), f.reclaimed)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	f, err := New(FormatJSON, &buf, false)
	require.NoError(t, err)
	assert.Equal(t, "json", f.Name())

	f, err = New(FormatProgress, &buf, false)
	require.NoError(t, err)
	assert.Equal(t, "human", f.Name(), "progress falls back to human output without a terminal")

	f, err = New("", &buf, false)
	require.NoError(t, err)
	assert.Equal(t, "human", f.Name())

	_, err = New("xml", &buf, false)
	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)

	assert.False(t, IsTerminal(&buf))
}

func samplePlan() *models.Plan {
	return &models.Plan{
		Groups: []models.DuplicateGroup{
			{
				FileHash:   "0123456789abcdef0123",
				MasterFile: "/a/photo.jpg",
				Reason:     "in-master-dir",
				Duplicates: []models.DuplicateFile{
					{Path: "/b/photo.jpg", Size: 1024, CrossFilesystem: true},
					{Path: "/b/old/photo.jpg", Size: 1024, AlreadyLinked: true},
				},
				Warning: "2 files in the master directory share this content",
			},
		},
		Warnings: []string{"2 files in the master directory share this content"},
	}
}

func TestRenderPlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPlan(&buf, samplePlan(), models.ActionHardlink, RenderOptions{}))

	out := buf.String()
	assert.Contains(t, out, "Group 1/1 [0123456789ab] 1.0 KiB")
	assert.Contains(t, out, "master: /a/photo.jpg (in-master-dir)")
	assert.Contains(t, out, "dup:    /b/photo.jpg (1.0 KiB) [other filesystem]")
	assert.Contains(t, out, "dup:    /b/old/photo.jpg (1.0 KiB) [already linked]")
	assert.Contains(t, out, "1 groups, 2 duplicates, 1.0 KiB reclaimable with hardlink")
	assert.Contains(t, out, "Warning: 2 files in the master directory")

	linked := samplePlan()
	linked.Groups[0].MasterLinks = 3
	buf.Reset()
	require.NoError(t, RenderPlan(&buf, linked, models.ActionHardlink, RenderOptions{}))
	assert.Contains(t, buf.String(), "master: /a/photo.jpg (in-master-dir, 3 links)")

	buf.Reset()
	require.NoError(t, RenderPlan(&buf, &models.Plan{}, models.ActionCompare, RenderOptions{}))
	assert.Equal(t, "No duplicates found.\n", buf.String())
}

func TestRenderCompare(t *testing.T) {
	result := &models.CompareResult{
		DirA:       "/a",
		DirB:       "/b",
		Algorithm:  models.AlgorithmSHA256,
		Groups:     []models.MatchGroup{{Hash: "ffff", FilesA: []string{"/a/x"}, FilesB: []string{"/b/x", "/b/y"}}},
		UnmatchedA: []string{"/a/only"},
		Stats:      models.IndexStats{FilesA: 2, FilesB: 2, SkippedB: 1, BytesIndexed: 4096},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderCompare(&buf, result, RenderOptions{ShowUnmatched: true}))
	out := buf.String()
	assert.Contains(t, out, "Indexed: 2 + 2 files, 4.0 KiB")
	assert.Contains(t, out, "Skipped: 1 files could not be read")
	assert.Contains(t, out, "Match 1 [ffff]\n  1: /a/x\n  2: /b/x\n  2: /b/y\n")
	assert.Contains(t, out, "Only in /a (1)")
	assert.NotContains(t, out, "Only in /b (")
	assert.Contains(t, out, "1 matching groups, 1 files only in /a, 0 files only in /b")
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	plan := samplePlan()

	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, SaveReport(jsonPath, FormatJSON, plan, nil))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded models.Plan
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "/a/photo.jpg", decoded.Groups[0].MasterFile)

	textPath := filepath.Join(dir, "plan.txt")
	require.NoError(t, SaveReport(textPath, FormatHuman, plan, func(w io.Writer) error {
		return RenderPlan(w, plan, models.ActionSymlink, RenderOptions{})
	}))
	data, err = os.ReadFile(textPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Group 1/1"))
}

func TestScanProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewScanProgress(&buf)

	p.StartTree("/data/a")
	p.FileIndexed("/data/a/x", 1024)
	p.Hashing("/data/a/big.iso", 512, 2048)
	assert.Equal(t, "big.iso 25%", p.bar.Get("current"))
	p.FileIndexed("/data/a/big.iso", 2048)
	assert.Equal(t, "", p.bar.Get("current"))
	assert.Equal(t, int64(3072), p.bar.Current())
	assert.Equal(t, "2 files", p.bar.Get("files"))
	p.FinishTree(2, 3072)

	assert.Nil(t, p.bar)
	assert.Contains(t, buf.String(), "Indexed /data/a: 2 files, 3.0 KiB")

	p.StartTree("/data/b")
	assert.Equal(t, 0, p.files, "counters restart per tree")
	p.FinishTree(0, 0)
	assert.Contains(t, buf.String(), "Indexed /data/b: 0 files, 0 B")

	// no bar between trees
	p.Hashing("/data/c/file", 1, 2)
}
