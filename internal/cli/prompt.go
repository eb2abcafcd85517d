package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sdejongh/dupelink/pkg/models"
	"github.com/sdejongh/dupelink/pkg/output"
)

// linePrompter reads one answer per line. A group is rendered the first
// time it is asked about; repeated prompts for the same group only show
// the hint.
type linePrompter struct {
	in    *bufio.Reader
	out   io.Writer
	opts  output.RenderOptions
	shown int
}

func newLinePrompter(in io.Reader, out io.Writer, opts output.RenderOptions) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out, opts: opts}
}

type readResult struct {
	line string
	err  error
}

func (p *linePrompter) Prompt(ctx context.Context, group models.DuplicateGroup, position, total int) (string, error) {
	if position != p.shown {
		fmt.Fprintln(p.out)
		output.RenderGroup(p.out, group, position, total, p.opts)
		p.shown = position
	} else {
		fmt.Fprintln(p.out, "Please answer y, n, a or q.")
	}
	fmt.Fprint(p.out, "Process this group? [y]es, [n]o, [a]ll, [q]uit: ")

	// The read runs aside so an interrupt does not wait for a newline
	ch := make(chan readResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) && strings.TrimSpace(r.line) != "" {
				return r.line, nil
			}
			fmt.Fprintln(p.out)
			return "", r.err
		}
		return r.line, nil
	}
}
