package storage

import (
	"context"
	"fmt"

	"github.com/adhamcharaf/Optiflow-VF/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the exports need.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// New returns an S3 client when an endpoint is configured, the local export directory otherwise.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	if cfg.Endpoint == "" {
		if cfg.ExportDir == "" {
			return nil, fmt.Errorf("storage: neither endpoint nor export dir configured")
		}
		return NewLocalStorage(cfg.ExportDir), nil
	}
	return NewS3Client(ctx, S3Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
}
