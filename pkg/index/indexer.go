package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/dupelink/pkg/logging"
	"github.com/sdejongh/dupelink/pkg/models"
	"github.com/sdejongh/dupelink/pkg/storage"
)

// FileHasher computes the fingerprint of a file
type FileHasher interface {
	Hash(ctx context.Context, path string) (string, error)
}

// Options filter the files that are indexed
type Options struct {
	// Exclude holds glob patterns (see ExcludeRules)
	Exclude []string

	// MinSize skips files smaller than this many bytes (0 indexes empty files)
	MinSize int64
}

// Indexer walks a tree and fingerprints its files
type Indexer struct {
	hasher  FileHasher
	logger  logging.Logger
	options Options
	rules   *ExcludeRules
	onFile  func(path string, size int64)
}

// NewIndexer creates an indexer; a nil logger discards messages
func NewIndexer(hasher FileHasher, logger logging.Logger, options Options) (*Indexer, error) {
	rules, err := NewExcludeRules(options.Exclude)
	if err != nil {
		return nil, err
	}
	if options.MinSize < 0 {
		return nil, &models.ValidationError{Field: "min_size", Message: "must not be negative"}
	}

	return &Indexer{
		hasher:  hasher,
		logger:  logging.OrNull(logger),
		options: options,
		rules:   rules,
	}, nil
}

// SetFileCallback registers a function called after each file is hashed
func (ix *Indexer) SetFileCallback(fn func(path string, size int64)) {
	ix.onFile = fn
}

// Build indexes the tree at root. Files that cannot be read are logged and
// counted in Index.Skipped; only a failure to walk the root itself or a
// cancelled context aborts the build.
func (ix *Indexer) Build(ctx context.Context, root string) (*Index, error) {
	backend, err := storage.NewLocal(root)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	idx := New(backend.Root())
	logger := ix.logger.WithFields(logging.Fields{"root": backend.Root()})
	logger.Info(ctx, "indexing tree", logging.Fields{"exclude_rules": ix.rules.Len(), "min_size": ix.options.MinSize})

	err = backend.Walk(ctx, func(info storage.FileInfo, walkErr error) error {
		if walkErr != nil {
			idx.Skipped++
			logger.Warn(ctx, "skipping unreadable entry", logging.Fields{
				"path":  info.RelativePath,
				"error": walkErr.Error(),
			})
			return nil
		}

		if ix.rules.Match(info.RelativePath) || info.Size < ix.options.MinSize {
			idx.Excluded++
			logger.Debug(ctx, "excluded", logging.Fields{"path": info.RelativePath, "size": info.Size})
			return nil
		}

		sum, err := ix.hasher.Hash(ctx, info.Path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			idx.Skipped++
			logger.Warn(ctx, "failed to hash file", logging.Fields{
				"path":  info.Path,
				"error": err.Error(),
			})
			return nil
		}

		if !idx.Add(models.FileEntry{
			Path:    info.Path,
			Root:    idx.Root,
			Size:    info.Size,
			ModTime: info.ModTime,
			Hash:    sum,
		}) {
			logger.Debug(ctx, "already indexed through another path", logging.Fields{"path": info.Path, "via": info.RelativePath})
		}

		if ix.onFile != nil {
			ix.onFile(info.Path, info.Size)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", root, err)
	}

	logger.Info(ctx, "indexed tree", logging.Fields{
		"files":    idx.Len(),
		"hashes":   len(idx.order),
		"skipped":  idx.Skipped,
		"excluded": idx.Excluded,
	})
	return idx, nil
}
