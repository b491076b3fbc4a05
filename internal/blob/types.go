// Package blob re-exports the report repository abstractions for stable
// internal imports.
package blob

import (
	"fleetreports/internal/blob/core"
)

type (
	// Driver identifies a repository backend driver.
	Driver = core.Driver
	// PutOptions configures a file upload.
	PutOptions = core.PutOptions
	// Info describes stored file metadata.
	Info = core.Info
	// Store is the interface for repository backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound indicates no file exists at a key.
var ErrNotFound = core.ErrNotFound
