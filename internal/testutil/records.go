package testutil

import "fsnap/internal/snap"

// Record builds a FileRecord at dir/base with sensible defaults, modified by
// the given options.
func Record(dirName, baseName string, opts ...RecordOption) snap.FileRecord {
	rec := snap.FileRecord{
		DirName:  dirName,
		BaseName: baseName,
		Created:  1000,
		Modified: 2000,
		Size:     64,
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// RecordOption mutates a record under construction.
type RecordOption func(*snap.FileRecord)

func WithDigest(hex ...byte) RecordOption {
	return func(r *snap.FileRecord) { r.Digest = snap.Digest(hex) }
}

func WithSize(size int64) RecordOption {
	return func(r *snap.FileRecord) { r.Size = size }
}

func WithModified(modified float64) RecordOption {
	return func(r *snap.FileRecord) { r.Modified = modified }
}

func WithArchived() RecordOption {
	return func(r *snap.FileRecord) { r.Archived = true }
}

func WithGroup(group string) RecordOption {
	return func(r *snap.FileRecord) { r.FileGroup = group }
}

func WithMetadata(metadata map[string]string) RecordOption {
	return func(r *snap.FileRecord) { r.Metadata = metadata }
}
