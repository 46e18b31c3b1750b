// Package snap defines the snapshot domain model — imports, file records,
// reconciliation actions — and the service that orchestrates scanning,
// persistence, and diffing across the store and archive backends.
package snap

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ImportID is the 128-bit opaque identifier of an import (one snapshot).
type ImportID [16]byte

// String returns the id as 32 lowercase hex characters.
func (id ImportID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether the id is the all-zero value.
func (id ImportID) IsZero() bool { return id == ImportID{} }

// ParseImportID parses a 32-character hex string into an ImportID.
func ParseImportID(s string) (ImportID, error) {
	var id ImportID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parsing import id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("parsing import id %q: expected %d bytes, got %d", s, len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Digest is a file content fingerprint (16 bytes for MD5). A zero-length
// digest is the sentinel for "not computed" — it never identifies content.
type Digest []byte

// Hex returns the digest as lowercase hex, or "" for the empty sentinel.
func (d Digest) Hex() string { return hex.EncodeToString(d) }

// Equal reports byte equality. Two empty sentinels compare equal here; the
// reconciliation layer decides whether that equality is meaningful.
func (d Digest) Equal(other Digest) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// FileRecord is one file as observed during a scan. Paths are relative to
// the scan root and slash-separated, split into directory and filename;
// within one import the (DirName, BaseName) pair is unique.
type FileRecord struct {
	Digest    Digest
	DirName   string
	BaseName  string
	Created   float64 // unix seconds, fractional
	Modified  float64 // unix seconds, fractional
	Size      int64
	Archived  bool
	FileGroup string // derived label; "" when no policy applied
	Metadata  map[string]string
}

// FileName joins DirName and BaseName. Records created at the scan root have
// an empty DirName, so FileName is just the BaseName.
func (f *FileRecord) FileName() string {
	if f.DirName == "" {
		return f.BaseName
	}
	return f.DirName + "/" + f.BaseName
}

// SamePath reports path-key equality: same directory and same filename.
func (f *FileRecord) SamePath(other *FileRecord) bool {
	return f.DirName == other.DirName && f.BaseName == other.BaseName
}

// SameContent reports content-key equality. With compareDigests set the key
// is the digest, and the empty sentinel never matches anything — not even
// another empty sentinel. Otherwise the key is the cheap (size, modified)
// proxy, which is also what legitimately un-digested records compare by.
func (f *FileRecord) SameContent(other *FileRecord, compareDigests bool) bool {
	if compareDigests {
		return len(f.Digest) > 0 && f.Digest.Equal(other.Digest)
	}
	return f.Size == other.Size && f.Modified == other.Modified
}

// MarshalJSON emits the record in the report wire format.
func (f *FileRecord) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type      string            `json:"$type"`
		Digest    string            `json:"digest"`
		DirName   string            `json:"dir_name"`
		BaseName  string            `json:"base_name"`
		FileName  string            `json:"file_name"`
		Created   float64           `json:"created"`
		Modified  float64           `json:"modified"`
		Size      int64             `json:"size"`
		Archived  bool              `json:"archived"`
		FileGroup string            `json:"file_group,omitempty"`
		Metadata  map[string]string `json:"metadata"`
	}
	md := f.Metadata
	if md == nil {
		md = map[string]string{}
	}
	return json.Marshal(wire{
		Type:      "FileRecord",
		Digest:    f.Digest.Hex(),
		DirName:   f.DirName,
		BaseName:  f.BaseName,
		FileName:  f.FileName(),
		Created:   f.Created,
		Modified:  f.Modified,
		Size:      f.Size,
		Archived:  f.Archived,
		FileGroup: f.FileGroup,
		Metadata:  md,
	})
}

// Import is one immutable, timestamped snapshot version. Imports sharing a
// Name form a lineage ordered by Timestamp.
type Import struct {
	ID        ImportID
	Timestamp time.Time
	Name      string
	Tags      map[string]string
}
