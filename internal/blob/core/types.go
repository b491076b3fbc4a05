// Package core defines the boundary contract with the remote document
// repository that holds the shared report file. The engine treats the
// repository as a collaborator: folders can be ensured, files read, replaced
// and deleted, nothing more.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete repository backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// Info describes a stored file.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// ErrNotFound is returned by Get when no file exists at the key. Callers
// distinguish it from transport failures with errors.Is.
var ErrNotFound = errors.New("blob: not found")

// Store is the interface for report repository backends.
//
// Put has overwrite semantics: uploading to an existing key atomically
// replaces the previous contents where the backend offers an atomic
// primitive (object PUT on S3, temp-file rename on the filesystem). There is
// no optimistic-concurrency check; the engine runs single-writer.
type Store interface {
	// EnsureFolder creates the folder path if missing. A folder that
	// already exists is success, not an error.
	EnsureFolder(ctx context.Context, path string) error
	// Get retrieves file contents and metadata. Missing keys return an
	// error wrapping ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Put uploads the file, replacing any previous contents at the key.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Delete removes a file. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// Driver returns the configured backend driver string.
	Driver() Driver
}
