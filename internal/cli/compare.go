package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dupelink/pkg/output"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "List files with identical content in two folders",
		Long: `Index two directory trees by content and report the groups of files
they have in common, without touching the filesystem.`,
		RunE: runCompare,
	}

	// Reuse dedupe flags for comparison
	addScanFlags(cmd, &dedupeFlags)

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := prepare(cmd, &dedupeFlags, true)
	if err != nil {
		return err
	}
	defer s.logger.Close()

	scan, err := s.engine.Scan(ctx)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}
	result := s.engine.CompareResult(scan)

	// Write report file if requested
	if dedupeFlags.Report != "" {
		err := output.SaveReport(dedupeFlags.Report, dedupeFlags.ReportFormat, result, func(w io.Writer) error {
			return output.RenderCompare(w, result, output.RenderOptions{ShowUnmatched: s.render.ShowUnmatched})
		})
		if err != nil {
			return err
		}
	}

	if globalFlags.Quiet {
		return nil
	}
	if s.cfg.Output.Format == output.FormatJSON {
		return output.WriteJSON(cmd.OutOrStdout(), result)
	}
	return output.RenderCompare(cmd.OutOrStdout(), result, s.render)
}
