// Package store implements the snap.Store interface on SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fsnap/internal/snap"
	"fsnap/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements snap.Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock snap.Clock
	idgen snap.IDGenerator
}

// NewSQLiteStore opens a SQLite-backed store. path can be a file path or
// ":memory:". clock and idgen may be nil, in which case the real clock and
// random uuid generation are used.
func NewSQLiteStore(path string, clock snap.Clock, idgen snap.IDGenerator) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStoreFromDB(db, path, clock, idgen), nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB, path string, clock snap.Clock, idgen snap.IDGenerator) *SQLiteStore {
	if clock == nil {
		clock = snap.RealClock{}
	}
	if idgen == nil {
		idgen = snap.UUIDGenerator{}
	}
	return &SQLiteStore{db: db, path: path, clock: clock, idgen: idgen}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// Every pooled connection to ":memory:" gets its own private database,
	// so the pool must be held to a single connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Foreign keys default to OFF in SQLite for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Scan workers insert concurrently over this handle; give writers a
	// grace period instead of failing immediately on a held lock.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CreateImport allocates a fresh id and persists the import row. The insert
// is a single statement, so the import becomes visible as a whole or not at
// all.
func (s *SQLiteStore) CreateImport(name string, tags map[string]string) (snap.ImportID, error) {
	id := s.idgen.New()
	_, err := s.db.Exec(
		`INSERT INTO imports (id, timestamp, name, tags) VALUES (?, ?, ?, ?)`,
		id[:], s.clock.Now().Unix(), name, serializeTags(tags),
	)
	if err != nil {
		return snap.ImportID{}, fmt.Errorf("creating import %q: %w", name, err)
	}
	return id, nil
}

// ImportFiles appends records to an import in one transaction.
func (s *SQLiteStore) ImportFiles(id snap.ImportID, records []snap.FileRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO file_records
			(digest, dir_name, base_name, created, modified, size, archived, file_group, tags, import_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var group sql.NullString
		if rec.FileGroup != "" {
			group = sql.NullString{String: rec.FileGroup, Valid: true}
		}
		digest := []byte(rec.Digest)
		if digest == nil {
			// a nil slice binds as NULL; the column is NOT NULL
			digest = []byte{}
		}
		_, err := stmt.Exec(
			digest, rec.DirName, rec.BaseName,
			rec.Created, rec.Modified, rec.Size,
			rec.Archived, group, serializeTags(rec.Metadata), id[:],
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.FileName(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record batch: %w", err)
	}
	return nil
}

// FetchImport returns import metadata only.
func (s *SQLiteStore) FetchImport(id snap.ImportID) (*snap.Import, error) {
	row := s.db.QueryRow(
		`SELECT id, timestamp, name, tags FROM imports WHERE id = ?`, id[:],
	)
	imp, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, snap.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching import: %w", err)
	}
	return imp, nil
}

// LatestImportID returns the newest import of a lineage. Ties on the
// one-second timestamp resolution break toward the later insert.
func (s *SQLiteStore) LatestImportID(name string) (snap.ImportID, bool, error) {
	var raw []byte
	err := s.db.QueryRow(
		`SELECT id FROM imports WHERE name = ? ORDER BY timestamp DESC, rowid DESC LIMIT 1`, name,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return snap.ImportID{}, false, nil
	}
	if err != nil {
		return snap.ImportID{}, false, fmt.Errorf("fetching latest import for %q: %w", name, err)
	}
	id, err := importIDFromBytes(raw)
	if err != nil {
		return snap.ImportID{}, false, err
	}
	return id, true, nil
}

// ListImports returns up to limit imports of a lineage, newest first.
func (s *SQLiteStore) ListImports(name string, limit int) ([]*snap.ImportSummary, error) {
	rows, err := s.db.Query(`
		SELECT i.id, i.timestamp, i.name, i.tags, COUNT(f.rowid)
		FROM imports i LEFT JOIN file_records f ON f.import_id = i.id
		WHERE i.name = ?
		GROUP BY i.rowid
		ORDER BY i.timestamp DESC, i.rowid DESC
		LIMIT ?`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("listing imports for %q: %w", name, err)
	}
	defer rows.Close()

	var summaries []*snap.ImportSummary
	for rows.Next() {
		var (
			raw       []byte
			ts        int64
			impName   string
			rawTags   string
			recordCnt int64
		)
		if err := rows.Scan(&raw, &ts, &impName, &rawTags, &recordCnt); err != nil {
			return nil, fmt.Errorf("scanning import row: %w", err)
		}
		id, err := importIDFromBytes(raw)
		if err != nil {
			return nil, err
		}
		tags, err := deserializeTags(rawTags)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &snap.ImportSummary{
			Import: snap.Import{
				ID:        id,
				Timestamp: time.Unix(ts, 0).UTC(),
				Name:      impName,
				Tags:      tags,
			},
			RecordCount: recordCnt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing imports for %q: %w", name, err)
	}
	return summaries, nil
}

// FetchRecords returns all records owned by an import in path order.
func (s *SQLiteStore) FetchRecords(id snap.ImportID) ([]snap.FileRecord, error) {
	rows, err := s.db.Query(`
		SELECT digest, dir_name, base_name, created, modified, size, archived, file_group, tags
		FROM file_records
		WHERE import_id = ?
		ORDER BY dir_name, base_name`, id[:])
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}
	defer rows.Close()

	var records []snap.FileRecord
	for rows.Next() {
		var (
			rec     snap.FileRecord
			digest  []byte
			group   sql.NullString
			rawTags string
		)
		err := rows.Scan(&digest, &rec.DirName, &rec.BaseName,
			&rec.Created, &rec.Modified, &rec.Size, &rec.Archived, &group, &rawTags)
		if err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		rec.Digest = snap.Digest(digest)
		rec.FileGroup = group.String
		if rec.Metadata, err = deserializeTags(rawTags); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}
	return records, nil
}

// MaxImportTimestamp returns the greatest import timestamp in the store.
func (s *SQLiteStore) MaxImportTimestamp() (int64, error) {
	var ts int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(timestamp), 0) FROM imports`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("fetching max import timestamp: %w", err)
	}
	return ts, nil
}

// Path returns the store file path (or ":memory:").
func (s *SQLiteStore) Path() string { return s.path }

// CheckMigrations verifies the store schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckStoreMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the store at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up store: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImport(row rowScanner) (*snap.Import, error) {
	var (
		raw     []byte
		ts      int64
		name    string
		rawTags string
	)
	if err := row.Scan(&raw, &ts, &name, &rawTags); err != nil {
		return nil, err
	}
	id, err := importIDFromBytes(raw)
	if err != nil {
		return nil, err
	}
	tags, err := deserializeTags(rawTags)
	if err != nil {
		return nil, err
	}
	return &snap.Import{ID: id, Timestamp: time.Unix(ts, 0).UTC(), Name: name, Tags: tags}, nil
}

func importIDFromBytes(raw []byte) (snap.ImportID, error) {
	var id snap.ImportID
	if len(raw) != len(id) {
		return id, fmt.Errorf("import id column holds %d bytes, expected %d", len(raw), len(id))
	}
	copy(id[:], raw)
	return id, nil
}

// Compile-time check that SQLiteStore implements the snap.Store interface.
var _ snap.Store = (*SQLiteStore)(nil)
