package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is a tree on the local filesystem
type Local struct {
	rootPath string
}

// NewLocal creates a local backend. The root is made absolute and its
// symlinks are resolved, so every path reported by Walk is concrete.
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: resolved}, nil
}

// Root returns the resolved root directory
func (l *Local) Root() string {
	return l.rootPath
}

// Walk visits regular files in lexical order. Symlinks to files are
// followed and reported at their target; symlinks to directories are not
// descended into. Sockets, devices and named pipes are ignored.
func (l *Local) Walk(ctx context.Context, fn WalkFunc) error {
	err := filepath.WalkDir(l.rootPath, func(p string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(l.rootPath, p)
		if err != nil {
			return err
		}

		if walkErr != nil {
			if p == l.rootPath {
				return walkErr
			}
			if err := fn(FileInfo{Path: p, RelativePath: relPath}, walkErr); err != nil {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		switch {
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return fn(FileInfo{Path: p, RelativePath: relPath}, err)
			}
			return fn(FileInfo{
				Path:         p,
				RelativePath: relPath,
				Size:         info.Size(),
				ModTime:      info.ModTime(),
			}, nil)

		case d.Type()&fs.ModeSymlink != 0:
			return l.visitSymlink(p, relPath, fn)

		default:
			return nil
		}
	})

	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", l.rootPath, err)
	}
	return nil
}

func (l *Local) visitSymlink(p, relPath string, fn WalkFunc) error {
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return fn(FileInfo{Path: p, RelativePath: relPath, Symlink: true}, fmt.Errorf("broken symlink: %w", err))
	}

	info, err := os.Stat(target)
	if err != nil {
		return fn(FileInfo{Path: p, RelativePath: relPath, Symlink: true}, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	return fn(FileInfo{
		Path:         target,
		RelativePath: relPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		Symlink:      true,
	}, nil)
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
