package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/sdejongh/dupelink/internal/platform"
	"github.com/sdejongh/dupelink/pkg/config"
	"github.com/sdejongh/dupelink/pkg/models"
)

// validateDirs checks that both trees exist and are distinct, non-nested
// directories
func validateDirs(dir1, dir2 string) error {
	for _, d := range []struct{ flag, path string }{{"dir1", dir1}, {"dir2", dir2}} {
		if err := platform.ValidatePath(d.path); err != nil {
			return fmt.Errorf("--%s: %w", d.flag, err)
		}
		info, err := os.Stat(d.path)
		if os.IsNotExist(err) {
			return fmt.Errorf("--%s path does not exist: %s", d.flag, d.path)
		} else if err != nil {
			return fmt.Errorf("failed to access --%s path: %w", d.flag, err)
		} else if !info.IsDir() {
			return fmt.Errorf("--%s path is not a directory: %s", d.flag, d.path)
		}
	}

	a, err := platform.Resolve(dir1)
	if err != nil {
		return fmt.Errorf("failed to resolve --dir1 path: %w", err)
	}
	b, err := platform.Resolve(dir2)
	if err != nil {
		return fmt.Errorf("failed to resolve --dir2 path: %w", err)
	}

	if a == b {
		return fmt.Errorf("--dir1 and --dir2 cannot be the same directory: %s", a)
	}
	if platform.Overlaps(a, b) {
		return fmt.Errorf("--dir1 and --dir2 cannot be nested: %s, %s", a, b)
	}
	return nil
}

// validatePlacement checks the master and target directories of op against
// its trees
func validatePlacement(op *models.DedupeOperation) error {
	a, err := platform.Resolve(op.DirA)
	if err != nil {
		return err
	}
	b, err := platform.Resolve(op.DirB)
	if err != nil {
		return err
	}

	if op.MasterDir != "" {
		m, err := platform.Resolve(op.MasterDir)
		if err != nil {
			return fmt.Errorf("failed to resolve master directory: %w", err)
		}
		if !platform.IsWithin(m, a) && !platform.IsWithin(m, b) {
			return fmt.Errorf("master directory must be inside --dir1 or --dir2: %s", op.MasterDir)
		}
	}

	if op.TargetDir != "" {
		t, err := platform.Resolve(op.TargetDir)
		if err != nil {
			return fmt.Errorf("failed to resolve target directory: %w", err)
		}
		if platform.Overlaps(t, a) || platform.Overlaps(t, b) {
			return fmt.Errorf("target directory cannot overlap the compared directories: %s", op.TargetDir)
		}
	}
	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// applyFlagsToConfig overrides config values with the flags set on the
// command line
func applyFlagsToConfig(flags *pflag.FlagSet, f *DedupeFlags, cfg *config.Config) error {
	if flags.Changed("action") {
		cfg.Dedupe.Action = f.Action
	}
	if flags.Changed("master") {
		cfg.Dedupe.MasterDir = f.Master
	}
	if flags.Changed("target") {
		cfg.Dedupe.TargetDir = f.Target
	}
	if flags.Changed("fallback-symlink") {
		cfg.Dedupe.FallbackSymlink = f.FallbackSymlink
	}
	if flags.Changed("different-names") {
		cfg.Dedupe.DifferentNamesOnly = f.DifferentNames
	}
	if flags.Changed("verify") {
		cfg.Dedupe.Verify = f.Verify
	}
	if flags.Changed("interactive") {
		cfg.Dedupe.Interactive = f.Interactive
	}

	// Hashing
	if flags.Changed("algorithm") {
		cfg.Hashing.Algorithm = f.Algorithm
	}
	if flags.Changed("fast") {
		cfg.Hashing.Fast = f.Fast
	}
	sizes := []struct {
		flag  string
		value string
		dest  *config.Size
	}{
		{"threshold", f.Threshold, &cfg.Hashing.Threshold},
		{"sample-size", f.SampleSize, &cfg.Hashing.SampleSize},
		{"min-size", f.MinSize, &cfg.Hashing.MinSize},
		{"io-limit", f.IOLimit, &cfg.Hashing.IOLimit},
	}
	for _, s := range sizes {
		if !flags.Changed(s.flag) {
			continue
		}
		if err := s.dest.UnmarshalText([]byte(s.value)); err != nil {
			return fmt.Errorf("--%s: %w", s.flag, err)
		}
	}

	// Exclude patterns
	if flags.Changed("exclude") {
		cfg.Exclude = f.Exclude
	}

	// Output
	if flags.Changed("output") {
		cfg.Output.Format = f.Output
	}
	if flags.Changed("show-unmatched") {
		cfg.Output.ShowUnmatched = f.ShowUnmatched
	}
	if f.NoColor {
		cfg.Output.Color = false
	}

	// Logging: --log-file enables file logging
	if flags.Changed("log-file") {
		cfg.Logging.Enabled = true
		cfg.Logging.File = f.LogFile
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = f.LogFormat
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}

	if f.NoAudit {
		cfg.Audit.Enabled = false
	}
	return nil
}

// createOperation creates a dedupe operation from configuration
func createOperation(cfg *config.Config, f *DedupeFlags) (*models.DedupeOperation, error) {
	action, err := models.ParseActionKind(cfg.Dedupe.Action)
	if err != nil {
		return nil, err
	}

	operation := &models.DedupeOperation{
		ID:                 uuid.New().String(),
		DirA:               f.Dir1,
		DirB:               f.Dir2,
		MasterDir:          cfg.Dedupe.MasterDir,
		TargetDir:          cfg.Dedupe.TargetDir,
		Action:             action,
		Algorithm:          models.Algorithm(cfg.Hashing.Algorithm),
		FastMode:           cfg.Hashing.Fast,
		FastThreshold:      int64(cfg.Hashing.Threshold),
		SampleSize:         int64(cfg.Hashing.SampleSize),
		MinSize:            int64(cfg.Hashing.MinSize),
		FallbackSymlink:    cfg.Dedupe.FallbackSymlink,
		DifferentNamesOnly: cfg.Dedupe.DifferentNamesOnly,
		Verify:             cfg.Dedupe.Verify,
		Interactive:        cfg.Dedupe.Interactive,
		ExcludePatterns:    cfg.Exclude,
		CreatedAt:          time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}

// operationFlags lists the enabled options of op for the audit header
func operationFlags(op *models.DedupeOperation) []string {
	var flags []string
	if op.Interactive {
		flags = append(flags, "interactive")
	}
	if op.FastMode {
		flags = append(flags, fmt.Sprintf("fast(threshold=%s, sample=%s)",
			config.Size(op.FastThreshold), config.Size(op.SampleSize)))
	}
	if op.FallbackSymlink {
		flags = append(flags, "fallback-symlink")
	}
	if op.DifferentNamesOnly {
		flags = append(flags, "different-names")
	}
	if op.Verify {
		flags = append(flags, "verify")
	}
	if op.MinSize > 0 {
		flags = append(flags, "min-size="+config.Size(op.MinSize).String())
	}
	return flags
}
