package store

// Schema is the store schema as produced by applying all migrations in
// migrations/files. It is kept in sync by hand and exists so tests can set
// up an in-memory store without running the migration machinery.
const Schema = `
CREATE TABLE imports (
    id BLOB PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    name TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_imports_name_timestamp ON imports (name, timestamp);

CREATE TABLE file_records (
    digest BLOB NOT NULL DEFAULT x'',
    dir_name TEXT NOT NULL,
    base_name TEXT NOT NULL,
    created REAL NOT NULL,
    modified REAL NOT NULL,
    size INTEGER NOT NULL,
    archived INTEGER NOT NULL DEFAULT 0,
    file_group TEXT,
    tags TEXT NOT NULL DEFAULT '',
    import_id BLOB NOT NULL REFERENCES imports (id),
    UNIQUE (import_id, dir_name, base_name)
);

CREATE INDEX idx_file_records_import_digest ON file_records (import_id, digest);
CREATE INDEX idx_file_records_import_size_modified ON file_records (import_id, size, modified);
`
