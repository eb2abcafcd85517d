package action

import (
	"os"
)

// fileOps is the set of filesystem calls the executor makes
type fileOps interface {
	Rename(oldpath, newpath string) error
	Link(oldname, newname string) error
	Symlink(oldname, newname string) error
	Remove(name string) error
	Lstat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
}

type osOps struct{}

func (osOps) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }
func (osOps) Link(oldname, newname string) error           { return os.Link(oldname, newname) }
func (osOps) Symlink(oldname, newname string) error        { return os.Symlink(oldname, newname) }
func (osOps) Remove(name string) error                     { return os.Remove(name) }
func (osOps) Lstat(name string) (os.FileInfo, error)       { return os.Lstat(name) }
func (osOps) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
