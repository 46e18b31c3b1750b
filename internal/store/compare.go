package store

import (
	"database/sql"
	"fmt"

	"fsnap/internal/snap"
)

// The correspondence between two imports is computed as one set query with
// six disjoint buckets over the content-key/path-key join:
//
//	previous-only        -> Removed candidates
//	relocated            -> content persists at a new path, nothing unchanged
//	copied               -> content persists at a new path AND unchanged at
//	                        its old one (the duplicate-content tie-break)
//	modified             -> same path, different content
//	unchanged            -> same path, same content (no action)
//	next-only            -> Created candidates
//
// The "unchanged" CTE collects the content keys of pairs that match on both
// keys; the relocated/copied split consults it so that a file that was both
// kept in place and duplicated elsewhere is never misread as a move.
const correspondenceQuery = `
WITH unchanged AS (
    SELECT p.digest AS digest, p.size AS size, p.modified AS modified
    FROM file_records p
    JOIN file_records n ON n.import_id = ?2 AND %[2]s AND %[1]s
    WHERE p.import_id = ?1
)
SELECT * FROM (
SELECT p.digest    AS digest_prev,
       p.dir_name  AS dir_name_prev,
       p.base_name AS base_name_prev,
       p.created, p.modified, p.size, p.archived, p.file_group, p.tags,
       NULL        AS digest_next,
       NULL        AS dir_name_next,
       NULL        AS base_name_next,
       NULL, NULL, NULL, NULL, NULL, NULL,
       0 AS is_copy
FROM file_records p
WHERE p.import_id = ?1
  AND NOT EXISTS (
      SELECT 1 FROM file_records n
      WHERE n.import_id = ?2 AND (%[1]s OR %[2]s))

UNION ALL

SELECT p.digest, p.dir_name, p.base_name, p.created, p.modified, p.size, p.archived, p.file_group, p.tags,
       n.digest, n.dir_name, n.base_name, n.created, n.modified, n.size, n.archived, n.file_group, n.tags,
       0
FROM file_records p
JOIN file_records n ON n.import_id = ?2 AND %[1]s AND NOT %[2]s
WHERE p.import_id = ?1
  AND NOT EXISTS (SELECT 1 FROM unchanged u WHERE %[3]s)

UNION ALL

SELECT p.digest, p.dir_name, p.base_name, p.created, p.modified, p.size, p.archived, p.file_group, p.tags,
       n.digest, n.dir_name, n.base_name, n.created, n.modified, n.size, n.archived, n.file_group, n.tags,
       1
FROM file_records p
JOIN file_records n ON n.import_id = ?2 AND %[1]s AND NOT %[2]s
WHERE p.import_id = ?1
  AND EXISTS (SELECT 1 FROM unchanged u WHERE %[3]s)

UNION ALL

SELECT p.digest, p.dir_name, p.base_name, p.created, p.modified, p.size, p.archived, p.file_group, p.tags,
       n.digest, n.dir_name, n.base_name, n.created, n.modified, n.size, n.archived, n.file_group, n.tags,
       0
FROM file_records p
JOIN file_records n ON n.import_id = ?2 AND %[2]s AND NOT %[1]s
WHERE p.import_id = ?1

UNION ALL

SELECT p.digest, p.dir_name, p.base_name, p.created, p.modified, p.size, p.archived, p.file_group, p.tags,
       n.digest, n.dir_name, n.base_name, n.created, n.modified, n.size, n.archived, n.file_group, n.tags,
       0
FROM file_records p
JOIN file_records n ON n.import_id = ?2 AND %[2]s AND %[1]s
WHERE p.import_id = ?1

UNION ALL

SELECT NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL,
       n.digest, n.dir_name, n.base_name, n.created, n.modified, n.size, n.archived, n.file_group, n.tags,
       0
FROM file_records n
WHERE n.import_id = ?2
  AND NOT EXISTS (
      SELECT 1 FROM file_records p
      WHERE p.import_id = ?1 AND (%[1]s OR %[2]s))
)
ORDER BY COALESCE(dir_name_prev, dir_name_next), COALESCE(base_name_prev, base_name_next)
`

const pathMatchExpr = `(p.dir_name = n.dir_name AND p.base_name = n.base_name)`

// contentMatchExprs returns the content-key equality expression for the
// prev/next join and for the unchanged-CTE lookup. With compareDigests the
// key is the digest, guarded so the empty not-computed sentinel never
// matches anything; otherwise the key is the (size, modified) proxy.
func contentMatchExprs(compareDigests bool) (joinExpr, unchangedExpr string) {
	if compareDigests {
		return `(length(p.digest) > 0 AND p.digest = n.digest)`,
			`(length(p.digest) > 0 AND u.digest = p.digest)`
	}
	return `(p.size = n.size AND p.modified = n.modified)`,
		`(u.size = p.size AND u.modified = p.modified)`
}

// FetchCorrespondence joins two imports' record sets per the bucket
// semantics above. A record that matches several counterparts by one key
// appears in one row per counterpart (fan-out is preserved, not
// deduplicated); the reconciler classifies each pair independently.
func (s *SQLiteStore) FetchCorrespondence(prevID, nextID snap.ImportID, compareDigests bool) ([]snap.CompareState, error) {
	joinExpr, unchangedExpr := contentMatchExprs(compareDigests)
	query := fmt.Sprintf(correspondenceQuery, joinExpr, pathMatchExpr, unchangedExpr)

	rows, err := s.db.Query(query, prevID[:], nextID[:])
	if err != nil {
		return nil, fmt.Errorf("querying correspondence: %w", err)
	}
	defer rows.Close()

	var states []snap.CompareState
	for rows.Next() {
		state, err := scanCompareState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading correspondence: %w", err)
	}
	return states, nil
}

// nullableRecord holds one side of a correspondence row. The side is absent
// when its dir_name is NULL (dir_name is NOT NULL in the schema, so NULL can
// only come from the bucket's NULL padding).
type nullableRecord struct {
	digest    []byte
	dirName   sql.NullString
	baseName  sql.NullString
	created   sql.NullFloat64
	modified  sql.NullFloat64
	size      sql.NullInt64
	archived  sql.NullBool
	fileGroup sql.NullString
	tags      sql.NullString
}

func (r *nullableRecord) fields() []any {
	return []any{
		&r.digest, &r.dirName, &r.baseName, &r.created, &r.modified,
		&r.size, &r.archived, &r.fileGroup, &r.tags,
	}
}

func (r *nullableRecord) present() bool { return r.dirName.Valid }

func (r *nullableRecord) toRecord() (*snap.FileRecord, error) {
	metadata, err := deserializeTags(r.tags.String)
	if err != nil {
		return nil, err
	}
	return &snap.FileRecord{
		Digest:    snap.Digest(r.digest),
		DirName:   r.dirName.String,
		BaseName:  r.baseName.String,
		Created:   r.created.Float64,
		Modified:  r.modified.Float64,
		Size:      r.size.Int64,
		Archived:  r.archived.Bool,
		FileGroup: r.fileGroup.String,
		Metadata:  metadata,
	}, nil
}

func scanCompareState(rows *sql.Rows) (snap.CompareState, error) {
	var prev, next nullableRecord
	var isCopy bool

	dest := append(prev.fields(), next.fields()...)
	dest = append(dest, &isCopy)
	if err := rows.Scan(dest...); err != nil {
		return snap.CompareState{}, fmt.Errorf("scanning correspondence row: %w", err)
	}

	var state snap.CompareState
	state.IsCopy = isCopy
	if prev.present() {
		rec, err := prev.toRecord()
		if err != nil {
			return snap.CompareState{}, err
		}
		state.Original = rec
	}
	if next.present() {
		rec, err := next.toRecord()
		if err != nil {
			return snap.CompareState{}, err
		}
		state.New = rec
	}
	if state.Original == nil && state.New == nil {
		return snap.CompareState{}, fmt.Errorf("correspondence row with neither side set")
	}
	return state, nil
}
