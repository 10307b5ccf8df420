package blob

import (
	"context"
	"fmt"
	"os"
)

// Open selects a backend using environment variables. Defaults to the local
// filesystem when unset.
//
//	TALENTCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	TALENTCORE_BLOB_FS_ROOT: root directory when driver=fs (default ./blobdata)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("TALENTCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("TALENTCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
