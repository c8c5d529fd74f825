package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidPath is returned when a target directory cannot be used as a
	// filesystem location.
	ErrInvalidPath = errors.New("invalid storage path")
	// ErrInvalidFileName is returned when a file name is empty or contains
	// path separators.
	ErrInvalidFileName = errors.New("invalid file name")
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// It stores temporary files in a configurable directory and does not
// support S3 operations unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// The tempDir parameter specifies where temporary files are stored.
// If tempDir is empty, os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "ivcompressor")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// SaveTemp saves data to a temporary file and returns the file path.
// A partially written file is removed before the error is returned.
func (s *LocalStorage) SaveTemp(ctx context.Context, pattern string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// CreateTemp reserves an empty temporary file and returns its path.
func (s *LocalStorage) CreateTemp(ctx context.Context, pattern string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// LoadTemp reads a temporary file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered. Empty paths are skipped.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if p == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Store writes data to dir/fileName, overwriting any existing file, and
// returns the absolute path of the written file. When fileName does not end
// in ext, everything from its first '.' is replaced by ext.
func (s *LocalStorage) Store(ctx context.Context, data []byte, fileName, dir, ext string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if strings.TrimSpace(dir) == "" || strings.ContainsRune(dir, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, dir)
	}
	if fileName == "" || fileName != filepath.Base(fileName) || strings.ContainsRune(fileName, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	target := filepath.Join(absDir, WithExtension(fileName, ext))
	if err := os.WriteFile(target, data, 0640); err != nil { // #nosec G306 - stored results are shared with the group
		return "", fmt.Errorf("write file: %w", err)
	}
	return target, nil
}

// WithExtension returns fileName ending in ext. A name that already carries
// ext (case-insensitive) is returned unchanged; otherwise the name is cut at
// its first '.' and ext appended.
func WithExtension(fileName, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return fileName
	}
	if strings.EqualFold(filepath.Ext(fileName), "."+ext) {
		return fileName
	}
	if i := strings.Index(fileName, "."); i >= 0 {
		fileName = fileName[:i]
	}
	return fileName + "." + ext
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
