package archive

import (
	"context"
	"fmt"

	"fsnap/internal/config"
	"fsnap/internal/snap"
)

// NewArchiveFromConfig creates an Archive implementation based on the archive
// config type. Type "none" yields a nil Archive: archival is disabled.
func NewArchiveFromConfig(ctx context.Context, cfg config.ArchiveConfig) (snap.Archive, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryArchive(), nil
	case "s3":
		a, err := NewS3Archive(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "filesystem":
		if cfg.FSArchiveRoot == "" {
			return nil, fmt.Errorf("filesystem archive requires fs_archive_root to be set")
		}
		a, err := NewFileSystemArchive(cfg.FSArchiveRoot)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
