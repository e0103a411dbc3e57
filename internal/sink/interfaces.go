package sink

import (
	"context"
	"os"
)

// Locker provides file locking for concurrent access safety.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// LockFactory returns the Locker guarding path.
type LockFactory func(path string) Locker

// FileSystem abstracts the file system operations a LocalSink needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	Rename(oldpath, newpath string) error
}

// OSFileSystem is the production implementation of FileSystem.
type OSFileSystem struct{}

func (fs *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (fs *OSFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (fs *OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// Rename is atomic on POSIX systems when both paths share a file system.
func (fs *OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
