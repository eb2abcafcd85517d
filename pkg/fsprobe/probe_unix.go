//go:build unix

package fsprobe

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func sameFile(a string, _ os.FileInfo, b string, _ os.FileInfo) bool {
	var sa, sb unix.Stat_t
	if err := unix.Lstat(a, &sa); err != nil {
		return false
	}
	if err := unix.Lstat(b, &sb); err != nil {
		return false
	}
	return uint64(sa.Dev) == uint64(sb.Dev) && uint64(sa.Ino) == uint64(sb.Ino)
}

func deviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}

// LinkCount returns the number of hardlinks to the file at path
func LinkCount(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Nlink), nil
}

// IsCrossDevice reports whether err is the error returned when linking or
// renaming across filesystems
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
