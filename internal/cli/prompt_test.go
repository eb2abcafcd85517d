package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sdejongh/dupelink/pkg/models"
	"github.com/sdejongh/dupelink/pkg/output"
)

func TestLinePrompter(t *testing.T) {
	group := models.DuplicateGroup{
		FileHash:   "abcdef0123456789",
		MasterFile: "/a/master.txt",
		Reason:     "oldest",
		Duplicates: []models.DuplicateFile{{Path: "/b/copy.txt", Size: 2048}},
	}

	var out bytes.Buffer
	p := newLinePrompter(strings.NewReader("maybe\ny\nq"), &out, output.RenderOptions{})
	ctx := context.Background()

	answer, err := p.Prompt(ctx, group, 1, 2)
	if err != nil || answer != "maybe\n" {
		t.Fatalf("Prompt() = %q, %v", answer, err)
	}
	answer, err = p.Prompt(ctx, group, 1, 2)
	if err != nil || answer != "y\n" {
		t.Fatalf("Prompt() = %q, %v", answer, err)
	}
	if n := strings.Count(out.String(), "master: /a/master.txt"); n != 1 {
		t.Errorf("group rendered %d times, want once", n)
	}
	if !strings.Contains(out.String(), "Please answer y, n, a or q.") {
		t.Error("a repeated prompt should show the hint")
	}

	// last line without newline is still an answer
	answer, err = p.Prompt(ctx, group, 2, 2)
	if err != nil || answer != "q" {
		t.Fatalf("Prompt() = %q, %v", answer, err)
	}
	if !strings.Contains(out.String(), "Group 2/2") {
		t.Error("a new group should be rendered")
	}

	if _, err := p.Prompt(ctx, group, 2, 2); !errors.Is(err, io.EOF) {
		t.Errorf("Prompt() error = %v, want io.EOF", err)
	}
}

func TestLinePrompterCancelled(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newLinePrompter(reader, io.Discard, output.RenderOptions{})
	if _, err := p.Prompt(ctx, models.DuplicateGroup{}, 1, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Prompt() error = %v, want context.Canceled", err)
	}
}
