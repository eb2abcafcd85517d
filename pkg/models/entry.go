package models

import (
	"time"
)

// FileEntry represents a regular file observed while indexing a tree
type FileEntry struct {
	// Path is the resolved absolute path of the file
	Path string

	// Root is the absolute root of the tree the file was discovered in
	Root string

	// Size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Hash is the content fingerprint
	Hash string
}

// ActionKind represents what should be done with a duplicate file
type ActionKind string

const (
	// ActionCompare reports matches without touching the filesystem
	ActionCompare ActionKind = "compare"
	// ActionHardlink replaces the duplicate with a hardlink to the master
	ActionHardlink ActionKind = "hardlink"
	// ActionSymlink replaces the duplicate with a symlink to the master
	ActionSymlink ActionKind = "symlink"
	// ActionDelete removes the duplicate
	ActionDelete ActionKind = "delete"
)

// ParseActionKind parses an action name, defaulting to compare for an empty string
func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(s) {
	case "":
		return ActionCompare, nil
	case ActionCompare, ActionHardlink, ActionSymlink, ActionDelete:
		return ActionKind(s), nil
	default:
		return "", &ValidationError{
			Field:   "action",
			Message: "must be one of compare, hardlink, symlink, delete (got " + s + ")",
		}
	}
}

// Mutates reports whether the action changes the filesystem
func (a ActionKind) Mutates() bool {
	return a != ActionCompare
}

// CreatesLink reports whether the action leaves a link in place of the duplicate
func (a ActionKind) CreatesLink() bool {
	return a == ActionHardlink || a == ActionSymlink
}
