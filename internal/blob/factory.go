package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Environment variables:
//
//	PIECECORE_BLOB_DRIVER=fs|s3|memory (default fs)
//	PIECECORE_BLOB_FS_ROOT=<dir> (fs driver, default ./imagedata)
//	PIECECORE_BLOB_S3_BUCKET=<bucket> (required for s3)
//	PIECECORE_BLOB_S3_REGION=<region> (default us-east-1)
//	PIECECORE_BLOB_S3_ENDPOINT=<url> (optional, for MinIO)
//	PIECECORE_BLOB_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// Open constructs a blob store from process environment.
func Open(ctx context.Context) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("PIECECORE_BLOB_DRIVER")))
	switch Driver(driver) {
	case DriverS3:
		bucket := os.Getenv("PIECECORE_BLOB_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("PIECECORE_BLOB_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, S3Config{
			Bucket:    bucket,
			Region:    os.Getenv("PIECECORE_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("PIECECORE_BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("PIECECORE_BLOB_S3_PATH_STYLE"), "true"),
		})
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem, Driver(""):
		return NewFilesystem(os.Getenv("PIECECORE_BLOB_FS_ROOT"))
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
