// Package fsprobe answers questions about how two paths relate on disk.
// Probes never return errors: a path that cannot be inspected is simply not
// linked to anything, and lives on an unknown (hence different) filesystem.
package fsprobe

import (
	"os"
	"path/filepath"
)

// IsHardlinkTo reports whether dup is a regular file sharing master's inode
func IsHardlinkTo(dup, master string) bool {
	di, err := os.Lstat(dup)
	if err != nil || !di.Mode().IsRegular() {
		return false
	}
	mi, err := os.Lstat(master)
	if err != nil || !mi.Mode().IsRegular() {
		return false
	}
	return sameFile(dup, di, master, mi)
}

// IsSymlinkTo reports whether dup is a symbolic link resolving to master
func IsSymlinkTo(dup, master string) bool {
	di, err := os.Lstat(dup)
	if err != nil || di.Mode()&os.ModeSymlink == 0 {
		return false
	}

	target, err := filepath.EvalSymlinks(dup)
	if err != nil {
		return false
	}
	resolvedMaster, err := filepath.EvalSymlinks(master)
	if err != nil {
		return false
	}
	return target == resolvedMaster
}

// IsLinkedTo reports whether dup already is a hardlink or symlink to master
func IsLinkedTo(dup, master string) bool {
	return IsHardlinkTo(dup, master) || IsSymlinkTo(dup, master)
}

// OnDifferentFilesystems reports whether a and b live on different devices.
// It returns true when either device cannot be determined.
func OnDifferentFilesystems(a, b string) bool {
	da, err := deviceOf(a)
	if err != nil {
		return true
	}
	db, err := deviceOf(b)
	if err != nil {
		return true
	}
	return da != db
}

// FilterAlreadyLinked splits dups into those already linked to master and
// those still to act on. Both keep the input order.
func FilterAlreadyLinked(master string, dups []string) (linked, actionable []string) {
	for _, d := range dups {
		if IsLinkedTo(d, master) {
			linked = append(linked, d)
		} else {
			actionable = append(actionable, d)
		}
	}
	return linked, actionable
}
