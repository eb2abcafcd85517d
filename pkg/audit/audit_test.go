package audit

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/dupelink/pkg/models"
)

var ts = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name: "Hardlink",
			entry: Entry{Time: ts, Action: models.ActionHardlink, Path: "/b/x.jpg", Master: "/a/x.jpg",
				Size: 1536, Hash: "3f2a9c01deadbeef", Outcome: models.Success{Action: models.ActionHardlink}},
			want: "[2024-05-01T10:00:00Z] HARDLINK /b/x.jpg -> /a/x.jpg (1.5 KiB) [3f2a9c01...] SUCCESS",
		},
		{
			name: "DeleteHasNoArrow",
			entry: Entry{Time: ts, Action: models.ActionDelete, Path: "/b/x.jpg", Master: "/a/x.jpg",
				Size: 10, Hash: "abc", Outcome: models.Success{Action: models.ActionDelete}},
			want: "[2024-05-01T10:00:00Z] DELETE /b/x.jpg (10 B) [abc...] SUCCESS",
		},
		{
			name: "Fallback",
			entry: Entry{Time: ts, Action: models.ActionHardlink, Path: "/b/x", Master: "/a/x",
				Size: 0, Outcome: models.Success{Action: models.ActionSymlink}},
			want: "[2024-05-01T10:00:00Z] HARDLINK /b/x -> /a/x (0 B) SUCCESS (symlink fallback)",
		},
		{
			name: "Skipped",
			entry: Entry{Time: ts, Action: models.ActionSymlink, Path: "/b/x", Master: "/a/x",
				Size: 5, Outcome: models.Skipped{Reason: models.SkipAlreadySymlinked}},
			want: "[2024-05-01T10:00:00Z] SYMLINK /b/x -> /a/x (5 B) SKIPPED: already symlinked to master",
		},
		{
			name: "Failed",
			entry: Entry{Time: ts, Action: models.ActionSymlink, Path: "/b/x", Master: "/a/x",
				Size: 5, Outcome: models.Failed{Err: errors.New("permission denied")}},
			want: "[2024-05-01T10:00:00Z] SYMLINK /b/x -> /a/x (5 B) FAILED: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEntry(tt.entry))
		})
	}
}

func TestLogLifecycle(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	require.NoError(t, log.WriteHeader(Header{
		RunID:     "0f8c2d9e-aaaa-bbbb-cccc-111122223333",
		Started:   ts,
		DirA:      "/a",
		DirB:      "/b",
		MasterDir: "/a",
		Action:    models.ActionHardlink,
		Algorithm: models.AlgorithmSHA256,
		Flags:     []string{"interactive", "fallback-symlink"},
	}))
	require.NoError(t, log.Record(Entry{Time: ts, Action: models.ActionHardlink, Path: "/b/x", Master: "/a/x",
		Size: 3, Outcome: models.Success{Action: models.ActionHardlink}}))

	summary := &models.ExecutionSummary{EndTime: ts.Add(time.Second), Duration: time.Second}
	summary.Record("/b/x", models.ActionHardlink, 3, models.Success{Action: models.ActionHardlink})
	summary.Record("/b/y", models.ActionHardlink, 3, models.Failed{Err: errors.New("link failed")})
	require.NoError(t, log.WriteFooter(summary))
	require.NoError(t, log.Close())

	out := buf.String()
	for _, want := range []string{
		"Run ID:     0f8c2d9e-aaaa-bbbb-cccc-111122223333",
		"Directory1: /a",
		"Master:     /a",
		"Action:     hardlink",
		"Flags:      interactive, fallback-symlink",
		"HARDLINK /b/x -> /a/x (3 B) SUCCESS",
		"Status:     partial",
		"Files:      1 succeeded, 1 failed, 0 skipped",
		"  /b/y: link failed",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Target:")
	assert.Less(t, strings.Index(out, "Run ID"), strings.Index(out, "HARDLINK"))
	assert.Less(t, strings.Index(out, "HARDLINK"), strings.Index(out, "Status:"))
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", DefaultPath("", "0f8c2d9e-ffff", ts))
	assert.Equal(t, "dupelink-20240501-100000-0f8c2d9e.log", filepath.Base(path))

	for i := 0; i < 2; i++ {
		log, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, path, log.Path())
		require.NoError(t, log.Record(Entry{Time: ts, Action: models.ActionDelete, Path: "/b/x",
			Outcome: models.Skipped{Reason: models.SkipDuplicateMissing}}))
		require.NoError(t, log.Close())
		require.NoError(t, log.Close(), "second Close is a no-op")
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "SKIPPED: duplicate no longer exists"))
}
