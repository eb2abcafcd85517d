package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dupelink/pkg/action"
	"github.com/sdejongh/dupelink/pkg/audit"
	"github.com/sdejongh/dupelink/pkg/config"
	"github.com/sdejongh/dupelink/pkg/dedupe"
	"github.com/sdejongh/dupelink/pkg/hasher"
	"github.com/sdejongh/dupelink/pkg/index"
	"github.com/sdejongh/dupelink/pkg/logging"
	"github.com/sdejongh/dupelink/pkg/models"
	"github.com/sdejongh/dupelink/pkg/output"
	"github.com/sdejongh/dupelink/pkg/ratelimit"
)

// DedupeFlags holds dedupe command flags
type DedupeFlags struct {
	Dir1           string
	Dir2           string
	Master         string
	Target         string
	Action         string
	Algorithm      string
	Fast           bool
	Threshold      string
	SampleSize     string
	MinSize        string
	IOLimit        string
	Exclude        []string
	DifferentNames bool

	FallbackSymlink bool
	Verify          bool
	Interactive     bool
	DryRun          bool

	Output        string
	ShowUnmatched bool
	NoColor       bool
	Report        string
	ReportFormat  string

	AuditLog string
	NoAudit  bool

	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var dedupeFlags DedupeFlags

// NewDedupeCommand creates the dedupe command
func NewDedupeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Replace duplicate files with links to one master copy",
		Long: `Find files with identical content in two directory trees and replace the
redundant copies with hardlinks or symlinks to one master copy, or delete them.

Each duplicate is renamed to a temporary name before the link is created and
restored if anything fails, so a file is never lost. Without --action the
command only prints the plan.

Exit codes: 0 success or nothing to do, 1 every action failed,
2 some actions failed, 3 aborted.`,
		RunE: runDedupe,
	}

	addScanFlags(cmd, &dedupeFlags)

	cmd.Flags().StringVar(&dedupeFlags.Master, "master", "", "directory whose files are kept as masters (inside --dir1 or --dir2)")
	cmd.Flags().StringVar(&dedupeFlags.Target, "target", "", "create links in this directory instead of in place")
	cmd.Flags().StringVarP(&dedupeFlags.Action, "action", "a", "compare", "action: compare, hardlink, symlink, delete")
	cmd.Flags().BoolVar(&dedupeFlags.FallbackSymlink, "fallback-symlink", false, "create a symlink when a hardlink crosses filesystems")
	cmd.Flags().BoolVar(&dedupeFlags.Verify, "verify", false, "compare files byte by byte before acting (recommended with --fast)")
	cmd.Flags().BoolVarP(&dedupeFlags.Interactive, "interactive", "i", false, "confirm each group before acting")
	cmd.Flags().BoolVar(&dedupeFlags.DryRun, "dry-run", false, "print the plan without acting")
	cmd.Flags().StringVar(&dedupeFlags.AuditLog, "audit-log", "", "audit log file (default: a new file in the state directory)")
	cmd.Flags().BoolVar(&dedupeFlags.NoAudit, "no-audit", false, "do not write an audit log")

	return cmd
}

// addScanFlags registers the flags shared by compare and dedupe
func addScanFlags(cmd *cobra.Command, f *DedupeFlags) {
	// Required flags
	cmd.Flags().StringVar(&f.Dir1, "dir1", "", "first directory (required)")
	cmd.Flags().StringVar(&f.Dir2, "dir2", "", "second directory (required)")
	cmd.MarkFlagRequired("dir1")
	cmd.MarkFlagRequired("dir2")

	// Hashing
	cmd.Flags().StringVar(&f.Algorithm, "algorithm", "sha256", "hash algorithm: md5, sha256, xxhash")
	cmd.Flags().BoolVar(&f.Fast, "fast", false, "hash samples of large files instead of their whole content")
	cmd.Flags().StringVar(&f.Threshold, "threshold", "100MiB", "size from which --fast samples files")
	cmd.Flags().StringVar(&f.SampleSize, "sample-size", "1MiB", "size of each --fast sample")
	cmd.Flags().StringVar(&f.MinSize, "min-size", "0", "ignore files smaller than this (e.g. \"4KiB\")")
	cmd.Flags().StringVar(&f.IOLimit, "io-limit", "", "limit hashing reads (e.g. \"50MB\" per second)")
	cmd.Flags().StringSliceVar(&f.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().BoolVar(&f.DifferentNames, "different-names", false, "ignore matches whose files all have the same name")

	// Output
	cmd.Flags().StringVarP(&f.Output, "output", "o", "human", "output format: human, progress, json")
	cmd.Flags().BoolVar(&f.ShowUnmatched, "show-unmatched", false, "list files found in only one directory")
	cmd.Flags().BoolVar(&f.NoColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&f.Report, "report", "", "also write the result to this file")
	cmd.Flags().StringVar(&f.ReportFormat, "report-format", "human", "report file format: human, json")

	// Logging flags
	cmd.Flags().StringVar(&f.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&f.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// setup is the state shared by compare and dedupe once flags and config
// are merged
type setup struct {
	cfg       *config.Config
	operation *models.DedupeOperation
	logger    logging.Logger
	hasher    *hasher.Hasher
	engine    *dedupe.Engine
	render    output.RenderOptions
}

// prepare validates the flags, merges them into the configuration and
// builds the scanning pipeline. With compareOnly the action settings of the
// configuration are ignored.
func prepare(cmd *cobra.Command, f *DedupeFlags, compareOnly bool) (*setup, error) {
	if err := validateDirs(f.Dir1, f.Dir2); err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagsToConfig(cmd.Flags(), f, cfg); err != nil {
		return nil, err
	}
	if compareOnly {
		cfg.Dedupe = config.DedupeConfig{
			Action:             string(models.ActionCompare),
			DifferentNamesOnly: cfg.Dedupe.DifferentNamesOnly,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	operation, err := createOperation(cfg, f)
	if err != nil {
		return nil, fmt.Errorf("invalid operation: %w", err)
	}
	if err := validatePlacement(operation); err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	h, err := hasher.New(hasher.Config{
		Algorithm:     operation.Algorithm,
		FastMode:      operation.FastMode,
		FastThreshold: operation.FastThreshold,
		SampleSize:    operation.SampleSize,
		ChunkSize:     hasher.DefaultChunkSize,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}
	if limiter := ratelimit.NewLimiter(int64(cfg.Hashing.IOLimit)); limiter != nil {
		h.SetReaderWrapper(limiter.Wrap)
		logger.Debug(cmd.Context(), "hashing reads throttled", logging.Fields{"bytes_per_second": limiter.Rate()})
	}

	indexer, err := index.NewIndexer(h, logger, index.Options{
		Exclude: operation.ExcludePatterns,
		MinSize: operation.MinSize,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}

	engine := dedupe.NewEngine(indexer, logger, operation)
	if showScanProgress(cmd, cfg) {
		progress := output.NewScanProgress(cmd.ErrOrStderr())
		h.SetProgressCallback(progress.Hashing)
		engine.SetScanProgress(progress)
	}

	return &setup{
		cfg:       cfg,
		operation: operation,
		logger:    logger,
		hasher:    h,
		engine:    engine,
		render: output.RenderOptions{
			Color:         cfg.Output.Color && output.IsTerminal(cmd.OutOrStdout()),
			ShowUnmatched: cfg.Output.ShowUnmatched,
		},
	}, nil
}

// showScanProgress reports whether indexing progress is drawn on stderr
func showScanProgress(cmd *cobra.Command, cfg *config.Config) bool {
	if globalFlags.Quiet || cfg.Output.Format == "json" {
		return false
	}
	return output.IsTerminal(cmd.ErrOrStderr())
}

func runDedupe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := prepare(cmd, &dedupeFlags, false)
	if err != nil {
		return err
	}
	defer s.logger.Close()

	op := s.operation
	if op.Interactive && s.cfg.Output.Format == output.FormatJSON {
		return fmt.Errorf("--interactive cannot be combined with JSON output")
	}

	scan, err := s.engine.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	plan, err := s.engine.BuildPlan(ctx, scan)
	if err != nil {
		return err
	}

	if dedupeFlags.Report != "" {
		err := output.SaveReport(dedupeFlags.Report, dedupeFlags.ReportFormat, plan, func(w io.Writer) error {
			return output.RenderPlan(w, plan, op.Action, output.RenderOptions{})
		})
		if err != nil {
			return err
		}
	}

	stdout := cmd.OutOrStdout()
	if !op.Action.Mutates() || dedupeFlags.DryRun {
		if globalFlags.Quiet {
			return nil
		}
		if s.cfg.Output.Format == output.FormatJSON {
			return output.WriteJSON(stdout, plan)
		}
		return output.RenderPlan(stdout, plan, op.Action, s.render)
	}

	var formatter output.Formatter
	if !globalFlags.Quiet {
		format := s.cfg.Output.Format
		if op.Interactive && format == output.FormatProgress {
			format = output.FormatHuman
		}
		formatter, err = output.New(format, stdout, s.render.Color)
		if err != nil {
			return err
		}
	}

	executor := action.NewExecutor(action.Options{
		FallbackToSymlink: op.FallbackSymlink,
		TargetDir:         op.TargetDir,
		Verify:            op.Verify,
	}, s.logger)
	executor.SetVerifier(s.hasher)

	runner := dedupe.NewRunner(executor, formatter, s.logger, op)
	if op.Interactive {
		runner.SetPrompter(newLinePrompter(cmd.InOrStdin(), stdout, s.render))
	}

	var auditLog *audit.Log
	if s.cfg.Audit.Enabled {
		auditLog, err = openAuditLog(s.cfg, op)
		if err != nil {
			return err
		}
		defer auditLog.Close()
		runner.SetRecorder(auditLog)
	}

	summary, err := runner.Run(ctx, plan)
	if err != nil {
		return err
	}

	if auditLog != nil {
		if err := auditLog.WriteFooter(summary); err != nil {
			s.logger.Error(ctx, "failed to write audit footer", err, nil)
		}
	}

	if code := summary.Status().ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// openAuditLog opens the audit file of a mutating run and writes its header
func openAuditLog(cfg *config.Config, op *models.DedupeOperation) (*audit.Log, error) {
	path := dedupeFlags.AuditLog
	if path == "" {
		path = audit.DefaultPath(cfg.AuditDir(), op.ID, op.CreatedAt)
	}

	log, err := audit.Open(path)
	if err != nil {
		return nil, err
	}

	err = log.WriteHeader(audit.Header{
		RunID:     op.ID,
		Started:   op.CreatedAt,
		DirA:      op.DirA,
		DirB:      op.DirB,
		MasterDir: op.MasterDir,
		TargetDir: op.TargetDir,
		Action:    op.Action,
		Algorithm: op.Algorithm,
		Flags:     operationFlags(op),
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to write audit header: %w", err)
	}
	return log, nil
}

// createLogger creates a logger based on configuration
func createLogger(cfg *config.Config) (logging.Logger, error) {
	var loggers []logging.Logger

	if cfg.Logging.Enabled {
		format := logging.FormatText
		if cfg.Logging.Format == "json" {
			format = logging.FormatJSON
		}

		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.LogPath(),
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    int64(cfg.Logging.MaxSize),
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	if globalFlags.Verbose {
		loggers = append(loggers, logging.NewConsoleLogger(os.Stderr, logging.DebugLevel, !output.IsTerminal(os.Stderr)))
	}

	switch len(loggers) {
	case 0:
		return logging.NewNullLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return logging.NewMultiLogger(loggers...), nil
	}
}
