package storage

import (
	"context"
	"time"
)

// FileInfo describes a regular file found while walking a tree
type FileInfo struct {
	// Path is the resolved absolute location of the content. For a symlink
	// this is the file the link points to.
	Path string

	// RelativePath is where the entry was found, relative to the tree root
	RelativePath string

	Size    int64
	ModTime time.Time

	// Symlink is set when the entry was reached through a symbolic link
	Symlink bool
}

// WalkFunc is called for every regular file of a tree. A non-nil err
// reports a path that could not be inspected (info.RelativePath is set);
// the walk continues unless WalkFunc returns an error.
type WalkFunc func(info FileInfo, err error) error

// Backend is a directory tree whose files can be enumerated
type Backend interface {
	// Root returns the resolved absolute root of the tree
	Root() string

	// Walk visits every regular file below the root
	Walk(ctx context.Context, fn WalkFunc) error

	// Close releases any resources held by the backend
	Close() error
}
