package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when a stream exceeds the limit passed to SaveLimited.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrInvalidPath is returned for names that would escape the base directory.
var ErrInvalidPath = errors.New("invalid storage path")

// LocalStorage persists blobs on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// SaveLimited copies at most limit bytes from r into name. The partial file is removed when the
// stream is larger than limit or the copy fails. It returns the number of bytes written.
func (s *LocalStorage) SaveLimited(name string, r io.Reader, limit int64) (int64, error) {
	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare storage directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}

	written, copyErr := io.Copy(file, io.LimitReader(r, limit+1))
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("write blob: %w", copyErr)
	case written > limit:
		_ = os.Remove(path)
		return 0, ErrTooLarge
	case closeErr != nil:
		_ = os.Remove(path)
		return 0, fmt.Errorf("close blob: %w", closeErr)
	}
	return written, nil
}

// Open returns a read-only handle for the stored blob.
func (s *LocalStorage) Open(name string) (*os.File, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return file, nil
}

// Delete removes a stored blob. Missing files are not an error.
func (s *LocalStorage) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Path exposes the absolute location of a blob.
func (s *LocalStorage) Path(name string) string {
	path, err := s.resolve(name)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", ErrInvalidPath
	}
	path := filepath.Join(s.baseDir, filepath.Clean(name))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(os.PathSeparator)) {
		return "", ErrInvalidPath
	}
	return path, nil
}
