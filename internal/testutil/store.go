package testutil

import (
	"testing"

	"fsnap/internal/snap"
	"fsnap/internal/store"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) snap.Store {
	t.Helper()
	return NewTestStoreWith(t, nil, nil)
}

// NewTestStoreWith is NewTestStore with an injected clock and ID generator.
func NewTestStoreWith(t *testing.T, clock snap.Clock, idgen snap.IDGenerator) snap.Store {
	t.Helper()

	sqlDB, err := store.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if _, err := sqlDB.Exec(store.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	s := store.NewSQLiteStoreFromDB(sqlDB, ":memory:", clock, idgen)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
