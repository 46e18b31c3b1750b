package snap

import "io"

// Archive mirrors the snapshot store off-host so the audit trail survives
// the machine that produced it. Items are small named blobs (the SQLite
// store snapshot) with a monotonic version stamp.
type Archive interface {
	// Put stores an item under name. size is the number of bytes that will
	// be read from r; version is stored alongside for staleness checks.
	Put(name string, r io.Reader, size int64, version int64) error

	// Get retrieves the item stored under name and writes it to w.
	Get(name string, w io.Writer) error

	// Version returns the version stamp recorded for name, or 0 when the
	// item has never been stored.
	Version(name string) (int64, error)

	// ValidateSetup verifies the backend is reachable and writable.
	ValidateSetup() error
}

// StoreItem is the archive item name under which the store snapshot lives.
const StoreItem = "store"
