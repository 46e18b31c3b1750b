package snap

// Store persists imports and their file records. Implementations must make
// CreateImport and each ImportFiles call atomic: a reader never observes an
// import with a partial record batch, nor records without their import row.
// Imports are immutable once created, so no cross-import locking is needed.
type Store interface {
	// CreateImport allocates a fresh id and persists the import row with an
	// empty record set. Tag keys are normalized to lower case.
	CreateImport(name string, tags map[string]string) (ImportID, error)

	// ImportFiles appends records to an import's owned set. Each call is one
	// atomic bulk insert; calls may come concurrently from scan workers.
	ImportFiles(id ImportID, records []FileRecord) error

	// FetchImport returns import metadata (no records). Returns ErrNotFound
	// if the id does not exist.
	FetchImport(id ImportID) (*Import, error)

	// LatestImportID returns the id of the import with the greatest
	// timestamp sharing the given lineage name, or ok=false when the
	// lineage has no imports.
	LatestImportID(name string) (id ImportID, ok bool, err error)

	// ListImports returns up to limit imports of a lineage, newest first,
	// each with its record count.
	ListImports(name string, limit int) ([]*ImportSummary, error)

	// FetchRecords returns all file records owned by an import.
	FetchRecords(id ImportID) ([]FileRecord, error)

	// FetchCorrespondence joins two imports' record sets on content key and
	// path key and returns one CompareState per joined pair or singleton,
	// with the duplicate-content tie-break already applied (IsCopy).
	FetchCorrespondence(prevID, nextID ImportID, compareDigests bool) ([]CompareState, error)

	// MaxImportTimestamp returns the greatest import timestamp in the store
	// as unix seconds, or 0 for an empty store. Used as the version stamp
	// for store archival.
	MaxImportTimestamp() (int64, error)

	// CheckMigrations verifies the backing schema is at the version this
	// binary expects.
	CheckMigrations() error

	// BackupTo writes a consistent point-in-time copy of the store to
	// destPath.
	BackupTo(destPath string) error

	// Close closes the underlying connection.
	Close() error
}

// ImportSummary is an import row plus its record count, for listings.
type ImportSummary struct {
	Import
	RecordCount int64
}
