package blob

import (
	"context"
	"fmt"
	"os"

	fsstore "fleetreports/internal/infra/blob/fs"
	memorystore "fleetreports/internal/infra/blob/memory"
	s3store "fleetreports/internal/infra/blob/s3"
)

// OpenDriver constructs the named backend. Backend-specific settings still
// come from the environment:
//
//	FLEETREPORTS_BLOB_FS_ROOT: directory root when driver=fs (default ./reportdata)
//	(S3 specific variables documented in the s3 package)
func OpenDriver(ctx context.Context, driver Driver) (Store, error) {
	switch driver {
	case DriverFilesystem:
		root := os.Getenv("FLEETREPORTS_BLOB_FS_ROOT")
		return NewFilesystem(root)
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// Open selects the backend from FLEETREPORTS_BLOB_DRIVER (fs|s3|memory,
// default fs). Callers holding a validated configuration should use
// OpenDriver instead.
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FLEETREPORTS_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	return OpenDriver(ctx, Driver(driver))
}

// NewFilesystem constructs a filesystem-backed Store rooted at the provided
// path. Returns Store to keep call sites on the interface.
func NewFilesystem(root string) (Store, error) {
	return fsstore.New(root)
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
