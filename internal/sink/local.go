package sink

import (
	"context"
	"fmt"
	"path/filepath"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
)

// lockName is the per-directory lock shared by artifact writes and
// manifest updates.
const lockName = ".rita"

// LocalSink writes artifacts into a directory on the local file system.
type LocalSink struct {
	dir    string
	fs     FileSystem
	locker LockFactory
}

// NewLocalSink creates a sink rooted at dir. The directory is created on
// first write.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{
		dir:    filepath.Clean(dir),
		fs:     &OSFileSystem{},
		locker: fileLocker,
	}
}

func fileLocker(path string) Locker {
	return NewFileLock(path)
}

// Location returns the sink's directory.
func (s *LocalSink) Location() string {
	return s.dir
}

// Close is a no-op for local sinks.
func (s *LocalSink) Close() error {
	return nil
}

// Write stores data at dir/name with mode 0644, replacing any existing file.
// Readers never observe a partially written file.
func (s *LocalSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	target := filepath.Join(s.dir, filepath.Base(name))

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", &ritaerrors.SinkWriteError{Dest: s.dir, Err: err}
	}

	lock := s.locker(s.lockPath())
	if err := lock.Lock(ctx); err != nil {
		return "", &ritaerrors.SinkWriteError{Dest: target, Err: err}
	}
	defer func() { _ = lock.Unlock() }()

	if err := s.writeAtomic(target, data); err != nil {
		return "", &ritaerrors.SinkWriteError{Dest: target, Err: err}
	}

	return target, nil
}

func (s *LocalSink) writeAtomic(target string, data []byte) error {
	tempPath := target + ".tmp"
	if err := s.fs.WriteFile(tempPath, data, 0644); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := s.fs.Rename(tempPath, target); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *LocalSink) lockPath() string {
	return filepath.Join(s.dir, lockName)
}
