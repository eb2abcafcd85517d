//go:build !unix

package fsprobe

import (
	"errors"
	"os"
	"syscall"
)

// errNotSameDevice is ERROR_NOT_SAME_DEVICE on Windows
const errNotSameDevice = syscall.Errno(17)

func sameFile(_ string, a os.FileInfo, _ string, b os.FileInfo) bool {
	return os.SameFile(a, b)
}

// deviceOf cannot tell devices apart here; every path reports the same
// device and cross-device links are detected when they fail.
func deviceOf(path string) (uint64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return 0, nil
}

// LinkCount is not available on this platform
func LinkCount(path string) (uint64, error) {
	if _, err := os.Lstat(path); err != nil {
		return 0, err
	}
	return 1, nil
}

// IsCrossDevice reports whether err is the error returned when linking or
// renaming across filesystems
func IsCrossDevice(err error) bool {
	return errors.Is(err, errNotSameDevice)
}
