// Package hasher computes content fingerprints for files, either over the
// whole content or over a handful of sampled regions for very large files.
package hasher

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/sdejongh/dupelink/pkg/models"
)

const (
	// DefaultChunkSize is the streaming read size
	DefaultChunkSize = 4 * 1024
	// DefaultFastThreshold is the file size from which fast mode samples instead of reading everything
	DefaultFastThreshold = 100 * 1024 * 1024
	// DefaultSampleSize is the length of each sampled region
	DefaultSampleSize = 1024 * 1024
)

// ReaderWrapper wraps the reader of a file being hashed (e.g., for rate limiting)
type ReaderWrapper func(ctx context.Context, r io.Reader) io.Reader

// Config holds hashing parameters
type Config struct {
	Algorithm     models.Algorithm
	FastMode      bool
	FastThreshold int64
	SampleSize    int64
	ChunkSize     int
}

// DefaultConfig returns sha256 full-content hashing
func DefaultConfig() Config {
	return Config{
		Algorithm:     models.AlgorithmSHA256,
		FastThreshold: DefaultFastThreshold,
		SampleSize:    DefaultSampleSize,
		ChunkSize:     DefaultChunkSize,
	}
}

// Hasher computes fingerprints. It is safe for concurrent use.
type Hasher struct {
	config         Config
	fs             afero.Fs
	bufferPool     *sync.Pool
	progressReport func(path string, current, total int64)
	readerWrapper  ReaderWrapper
}

// New creates a hasher reading from the OS filesystem
func New(config Config) (*Hasher, error) {
	if !config.Algorithm.Valid() {
		return nil, &models.ValidationError{Field: "algorithm", Message: fmt.Sprintf("unsupported algorithm %q", config.Algorithm)}
	}
	if config.FastMode && (config.FastThreshold < 1 || config.SampleSize < 1) {
		return nil, &models.ValidationError{Field: "fast_mode", Message: "threshold and sample size must be positive"}
	}
	if config.ChunkSize < DefaultChunkSize {
		config.ChunkSize = DefaultChunkSize
	}

	chunkSize := config.ChunkSize
	return &Hasher{
		config: config,
		fs:     afero.NewOsFs(),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, chunkSize)
				return &buf
			},
		},
	}, nil
}

// SetFs replaces the filesystem files are read from
func (h *Hasher) SetFs(fs afero.Fs) {
	h.fs = fs
}

// SetProgressCallback sets a callback for progress reporting during hashing
func (h *Hasher) SetProgressCallback(callback func(path string, current, total int64)) {
	h.progressReport = callback
}

// SetReaderWrapper sets a function to wrap readers (e.g., for rate limiting)
func (h *Hasher) SetReaderWrapper(wrapper ReaderWrapper) {
	h.readerWrapper = wrapper
}

// Algorithm returns the configured digest algorithm
func (h *Hasher) Algorithm() models.Algorithm {
	return h.config.Algorithm
}

// Hash returns the hex fingerprint of the file at path.
//
// In fast mode, files of at least FastThreshold bytes are fingerprinted from
// their decimal size followed by five sampled regions (see SampleOffsets).
// Two such files that differ only outside the sampled regions get the same
// fingerprint; use byte verification before acting on fast-mode matches
// when that matters.
func (h *Hasher) Hash(ctx context.Context, path string) (string, error) {
	f, err := h.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("failed to hash %s: is a directory", path)
	}
	size := info.Size()

	digest := h.newDigest()

	if h.config.FastMode && size >= h.config.FastThreshold {
		digest.Write([]byte(strconv.FormatInt(size, 10)))

		offsets := SampleOffsets(size, h.config.SampleSize)
		if offsets == nil {
			if _, err := h.stream(ctx, digest, f, path, 0, size); err != nil {
				return "", err
			}
		} else {
			// progress counts sampled bytes, not the file size
			total := int64(len(offsets)) * h.config.SampleSize
			var done int64
			for _, off := range offsets {
				section := io.NewSectionReader(f, off, h.config.SampleSize)
				n, err := h.stream(ctx, digest, section, path, done, total)
				if err != nil {
					return "", err
				}
				done += n
			}
		}
	} else if _, err := h.stream(ctx, digest, f, path, 0, size); err != nil {
		return "", err
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// SampleOffsets returns the start offsets of the sampled regions for a file of
// the given size, or nil when the file is small enough (size <= 3 * sample) to
// be hashed in full.
func SampleOffsets(size, sample int64) []int64 {
	if size <= 3*sample {
		return nil
	}

	half := sample / 2
	offsets := []int64{
		0,
		size/4 - half,
		size/2 - half,
		3*size/4 - half,
		size - sample,
	}
	for i, off := range offsets {
		if off < 0 {
			offsets[i] = 0
		}
	}
	return offsets
}

func (h *Hasher) newDigest() hash.Hash {
	switch h.config.Algorithm {
	case models.AlgorithmMD5:
		return md5.New()
	case models.AlgorithmXXHash:
		return xxhash.New()
	default:
		return sha256.New()
	}
}

// stream copies r into the digest chunk by chunk and returns the bytes read.
// Progress is reported as done plus the bytes read so far, out of total.
func (h *Hasher) stream(ctx context.Context, digest hash.Hash, r io.Reader, path string, done, total int64) (int64, error) {
	if h.readerWrapper != nil {
		r = h.readerWrapper(ctx, r)
	}

	bufPtr := h.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	const (
		progressReportInterval = 50 * time.Millisecond
		progressReportBytes    = 64 * 1024
	)
	var totalRead, lastReported int64
	lastReportTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return totalRead, ctx.Err()
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			digest.Write(buffer[:n])
			totalRead += int64(n)

			if h.progressReport != nil &&
				(totalRead-lastReported >= progressReportBytes || time.Since(lastReportTime) >= progressReportInterval) {
				h.progressReport(path, done+totalRead, total)
				lastReported = totalRead
				lastReportTime = time.Now()
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return totalRead, fmt.Errorf("failed to read file: %w", err)
		}
	}

	if h.progressReport != nil && totalRead > lastReported {
		h.progressReport(path, done+totalRead, total)
	}
	return totalRead, nil
}

// IsNotExist reports whether a hashing error was caused by a missing file
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
