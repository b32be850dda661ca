package backup

import (
	"context"
	"fmt"

	"dataplug/pkg/backup"
	"dataplug/pkg/config"
)

// NewArchive builds the snapshot archive selected by configuration.
func NewArchive(ctx context.Context, cfg *config.Config) (*backup.Archive, error) {
	var storage backup.Storage
	switch cfg.Snapshots.Target {
	case "s3":
		s3Storage, err := backup.NewS3StorageFromEnv(ctx, cfg.Snapshots.S3Region, cfg.Snapshots.S3Bucket, cfg.Snapshots.S3Prefix)
		if err != nil {
			return nil, err
		}
		storage = s3Storage
	case "file", "":
		fileStorage, err := backup.NewFileStorage(cfg.Snapshots.Directory)
		if err != nil {
			return nil, err
		}
		storage = fileStorage
	default:
		return nil, fmt.Errorf("unknown snapshot target %q", cfg.Snapshots.Target)
	}
	return backup.NewArchive(storage, FormatVersion), nil
}
