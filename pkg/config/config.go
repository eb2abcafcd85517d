package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"

	"github.com/sdejongh/dupelink/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Dedupe  DedupeConfig  `yaml:"dedupe" toml:"dedupe"`
	Hashing HashingConfig `yaml:"hashing" toml:"hashing"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Audit   AuditConfig   `yaml:"audit" toml:"audit"`
	Exclude []string      `yaml:"exclude" toml:"exclude"`
}

// DedupeConfig holds the defaults of the dedupe command
type DedupeConfig struct {
	Action             string `yaml:"action" toml:"action"`
	MasterDir          string `yaml:"master_dir" toml:"master_dir"`
	TargetDir          string `yaml:"target_dir" toml:"target_dir"`
	FallbackSymlink    bool   `yaml:"fallback_symlink" toml:"fallback_symlink"`
	DifferentNamesOnly bool   `yaml:"different_names_only" toml:"different_names_only"`
	Verify             bool   `yaml:"verify" toml:"verify"`
	Interactive        bool   `yaml:"interactive" toml:"interactive"`
}

// HashingConfig holds fingerprinting settings
type HashingConfig struct {
	Algorithm  string `yaml:"algorithm" toml:"algorithm"`
	Fast       bool   `yaml:"fast" toml:"fast"`
	Threshold  Size   `yaml:"threshold" toml:"threshold"`     // files at least this big are sampled in fast mode
	SampleSize Size   `yaml:"sample_size" toml:"sample_size"` // bytes per sample
	MinSize    Size   `yaml:"min_size" toml:"min_size"`       // smaller files are not indexed
	IOLimit    Size   `yaml:"io_limit" toml:"io_limit"`       // read bytes per second while hashing, 0 = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format        string `yaml:"format" toml:"format"` // "human", "progress" or "json"
	Color         bool   `yaml:"color" toml:"color"`
	ShowUnmatched bool   `yaml:"show_unmatched" toml:"show_unmatched"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Format     string `yaml:"format" toml:"format"` // "json" or "text"
	Level      string `yaml:"level" toml:"level"`   // "debug", "info", "warn", "error"
	File       string `yaml:"file" toml:"file"`     // empty = DefaultLogPath()
	MaxSize    Size   `yaml:"max_size" toml:"max_size"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// AuditConfig controls the per-run audit trail of mutating runs
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Dir     string `yaml:"dir" toml:"dir"` // empty = DefaultAuditDir()
}

// Size is a byte count written in config files as "100 MiB", "64KB" or a
// plain number of bytes
type Size int64

// UnmarshalText parses sizes accepted by humanize.ParseBytes
func (s *Size) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", text, err)
	}
	*s = Size(n)
	return nil
}

// MarshalText writes the size in the largest binary unit that is exact
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s Size) String() string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	v, i := int64(s), 0
	for v != 0 && v%1024 == 0 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%d %s", v, units[i])
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Dedupe: DedupeConfig{
			Action: string(models.ActionCompare),
		},
		Hashing: HashingConfig{
			Algorithm:  string(models.AlgorithmSHA256),
			Fast:       false,
			Threshold:  100 << 20,
			SampleSize: 1 << 20,
			MinSize:    0,
			IOLimit:    0,
		},
		Output: OutputConfig{
			Format: "human",
			Color:  true,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "json",
			Level:      "info",
			File:       "",
			MaxSize:    10 << 20,
			MaxBackups: 3,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		Exclude: []string{
			"*.dupelink.tmp",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	action, err := models.ParseActionKind(c.Dedupe.Action)
	if err != nil {
		return &models.ValidationError{Field: "dedupe.action", Message: "must be compare, hardlink, symlink or delete"}
	}

	if action == models.ActionDelete && c.Dedupe.TargetDir != "" {
		return &models.ValidationError{
			Field:   "dedupe.target_dir",
			Message: "cannot be used with the delete action",
		}
	}

	if !models.Algorithm(c.Hashing.Algorithm).Valid() {
		return &models.ValidationError{
			Field:   "hashing.algorithm",
			Message: "must be 'md5', 'sha256' or 'xxhash'",
		}
	}

	if c.Hashing.Fast && c.Hashing.Threshold < 1 {
		return &models.ValidationError{Field: "hashing.threshold", Message: "must be positive in fast mode"}
	}

	if c.Hashing.Fast && c.Hashing.SampleSize < 1 {
		return &models.ValidationError{Field: "hashing.sample_size", Message: "must be positive in fast mode"}
	}

	if c.Hashing.MinSize < 0 || c.Hashing.IOLimit < 0 {
		return &models.ValidationError{Field: "hashing", Message: "sizes must not be negative"}
	}

	validFormats := map[string]bool{"human": true, "progress": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'progress' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxBackups < 0 {
		return &models.ValidationError{Field: "logging.max_backups", Message: "must not be negative"}
	}

	return nil
}

// LogPath returns the configured log file or the default one
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return DefaultLogPath()
}

// AuditDir returns the configured audit directory or the default one
func (c *Config) AuditDir() string {
	if c.Audit.Dir != "" {
		return c.Audit.Dir
	}
	return DefaultAuditDir()
}

// DefaultLogPath is $XDG_STATE_HOME/dupelink/dupelink.log
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, appName, "dupelink.log")
}

// DefaultAuditDir is $XDG_STATE_HOME/dupelink/audit
func DefaultAuditDir() string {
	return filepath.Join(xdg.StateHome, appName, "audit")
}
