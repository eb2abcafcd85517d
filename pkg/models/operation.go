package models

import (
	"time"
)

// Algorithm defines how file fingerprints are computed
type Algorithm string

const (
	// AlgorithmMD5 hashes content with MD5
	AlgorithmMD5 Algorithm = "md5"
	// AlgorithmSHA256 hashes content with SHA-256
	AlgorithmSHA256 Algorithm = "sha256"
	// AlgorithmXXHash hashes content with 64-bit xxHash (non-cryptographic, fastest)
	AlgorithmXXHash Algorithm = "xxhash"
)

// Valid reports whether the algorithm is supported
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmMD5, AlgorithmSHA256, AlgorithmXXHash:
		return true
	default:
		return false
	}
}

// DedupeOperation represents the configuration of one run
type DedupeOperation struct {
	ID   string
	DirA string
	DirB string

	// MasterDir marks the tree whose files are preferred as masters (optional)
	MasterDir string

	// TargetDir places links in a separate tree instead of in place (optional)
	TargetDir string

	Action             ActionKind
	Algorithm          Algorithm
	FastMode           bool
	FastThreshold      int64
	SampleSize         int64
	MinSize            int64
	FallbackSymlink    bool
	DifferentNamesOnly bool
	Verify             bool
	Interactive        bool
	ExcludePatterns    []string
	CreatedAt          time.Time
}

// Validate checks if the operation configuration is valid
func (op *DedupeOperation) Validate() error {
	if op.DirA == "" {
		return &ValidationError{Field: "DirA", Message: "first directory is required"}
	}
	if op.DirB == "" {
		return &ValidationError{Field: "DirB", Message: "second directory is required"}
	}
	if !op.Algorithm.Valid() {
		return &ValidationError{Field: "Algorithm", Message: "must be md5, sha256 or xxhash"}
	}
	if _, err := ParseActionKind(string(op.Action)); err != nil {
		return err
	}
	if op.FastMode && op.FastThreshold < 1 {
		return &ValidationError{Field: "FastThreshold", Message: "must be positive in fast mode"}
	}
	if op.FastMode && op.SampleSize < 1 {
		return &ValidationError{Field: "SampleSize", Message: "must be positive in fast mode"}
	}
	if op.MinSize < 0 {
		return &ValidationError{Field: "MinSize", Message: "must not be negative"}
	}
	if op.TargetDir != "" && op.Action == ActionDelete {
		return &ValidationError{Field: "TargetDir", Message: "delete action cannot be used with a target directory"}
	}
	if op.Interactive && !op.Action.Mutates() {
		return &ValidationError{Field: "Interactive", Message: "interactive mode requires hardlink, symlink or delete"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
