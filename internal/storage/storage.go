// Package storage provides temporary and persistent file storage capabilities.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for local disk and S3 storage.
package storage

import (
	"context"
	"io"
)

// TempStore is the subset of Storage used to stage files around an external
// encoder invocation.
type TempStore interface {
	// SaveTemp writes data to a new temporary file and returns its path.
	// pattern follows os.CreateTemp: the last "*" is replaced by a random string.
	SaveTemp(ctx context.Context, pattern string, data io.Reader) (path string, err error)

	// CreateTemp reserves a new, empty temporary file and returns its path.
	CreateTemp(ctx context.Context, pattern string) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}

// Storage defines the interface for temporary and persistent file storage.
type Storage interface {
	TempStore

	// Store writes data as fileName inside dir and returns the absolute path.
	// The file name's extension is rewritten to ext when it does not match.
	Store(ctx context.Context, data []byte, fileName, dir, ext string) (path string, err error)

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
