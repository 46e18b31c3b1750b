package store_test

import (
	"testing"

	"fsnap/internal/snap"
	"fsnap/internal/testutil"
)

func createImport(t *testing.T, s snap.Store, records ...snap.FileRecord) snap.ImportID {
	t.Helper()

	id, err := s.CreateImport("music", nil)
	if err != nil {
		t.Fatalf("CreateImport() error = %v", err)
	}
	if err := s.ImportFiles(id, records); err != nil {
		t.Fatalf("ImportFiles() error = %v", err)
	}
	return id
}

func record(dir, base string, digest ...byte) snap.FileRecord {
	return testutil.Record(dir, base, testutil.WithDigest(digest...))
}

// findState returns the single state whose sides sit at the given paths; an
// empty path means that side must be absent.
func findState(t *testing.T, states []snap.CompareState, prevPath, nextPath string) snap.CompareState {
	t.Helper()

	var found []snap.CompareState
	for _, st := range states {
		p, n := "", ""
		if st.Original != nil {
			p = st.Original.FileName()
		}
		if st.New != nil {
			n = st.New.FileName()
		}
		if p == prevPath && n == nextPath {
			found = append(found, st)
		}
	}
	if len(found) != 1 {
		t.Fatalf("found %d states for (%q, %q) in %s, want 1", len(found), prevPath, nextPath, describe(states))
	}
	return found[0]
}

func describe(states []snap.CompareState) string {
	out := "["
	for _, st := range states {
		p, n := "-", "-"
		if st.Original != nil {
			p = st.Original.FileName()
		}
		if st.New != nil {
			n = st.New.FileName()
		}
		out += "(" + p + " -> " + n + ") "
	}
	return out + "]"
}

func TestFetchCorrespondence_Unchanged(t *testing.T) {
	s, _ := newTestStore(t)

	prev := createImport(t, s, record("a", "1.csv", 0x01))
	next := createImport(t, s, record("a", "1.csv", 0x01))

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("got %d states, want 1: %s", len(states), describe(states))
	}

	st := states[0]
	if st.Original == nil || st.New == nil {
		t.Fatal("unchanged state must carry both sides")
	}
	if st.IsCopy {
		t.Error("IsCopy = true, want false")
	}
}

func TestFetchCorrespondence_RemovedAndCreated(t *testing.T) {
	s, _ := newTestStore(t)

	prev := createImport(t, s, record("a", "old.csv", 0x01))
	next := createImport(t, s, record("b", "new.csv", 0x02))

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2: %s", len(states), describe(states))
	}

	removed := findState(t, states, "a/old.csv", "")
	if removed.New != nil {
		t.Error("removed state has a new side")
	}

	created := findState(t, states, "", "b/new.csv")
	if created.Original != nil {
		t.Error("created state has an original side")
	}
}

func TestFetchCorrespondence_Relocated(t *testing.T) {
	s, _ := newTestStore(t)

	prev := createImport(t, s, record("a", "1.csv", 0x01))
	next := createImport(t, s, record("b", "1.csv", 0x01))

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("got %d states, want 1: %s", len(states), describe(states))
	}

	st := findState(t, states, "a/1.csv", "b/1.csv")
	if st.IsCopy {
		t.Error("IsCopy = true for a relocation, want false")
	}
}

func TestFetchCorrespondence_CopyKeepsOriginalUnchanged(t *testing.T) {
	s, _ := newTestStore(t)

	// a/1.csv survives in place AND its content shows up at b/1.csv: the
	// new appearance is a copy, not a move.
	prev := createImport(t, s, record("a", "1.csv", 0x01))
	next := createImport(t, s,
		record("a", "1.csv", 0x01),
		record("b", "1.csv", 0x01),
	)

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}

	unchanged := findState(t, states, "a/1.csv", "a/1.csv")
	if unchanged.IsCopy {
		t.Error("unchanged pair flagged as copy")
	}

	copied := findState(t, states, "a/1.csv", "b/1.csv")
	if !copied.IsCopy {
		t.Error("IsCopy = false for a duplicate whose original survived, want true")
	}
}

func TestFetchCorrespondence_Modified(t *testing.T) {
	s, _ := newTestStore(t)

	prev := createImport(t, s, record("a", "1.csv", 0x01))
	next := createImport(t, s, record("a", "1.csv", 0x02))

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("got %d states, want 1: %s", len(states), describe(states))
	}

	st := findState(t, states, "a/1.csv", "a/1.csv")
	if st.Original.Digest.Equal(st.New.Digest) {
		t.Error("modified pair has equal digests")
	}
}

func TestFetchCorrespondence_FanOut(t *testing.T) {
	s, _ := newTestStore(t)

	// One original, two new homes for the same content, original path gone:
	// both pairs surface and neither is a copy.
	prev := createImport(t, s, record("a", "1.csv", 0x01))
	next := createImport(t, s,
		record("b", "1.csv", 0x01),
		record("c", "1.csv", 0x01),
	)

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2: %s", len(states), describe(states))
	}

	for _, path := range []string{"b/1.csv", "c/1.csv"} {
		st := findState(t, states, "a/1.csv", path)
		if st.IsCopy {
			t.Errorf("pair to %s flagged as copy, want relocation", path)
		}
	}
}

func TestFetchCorrespondence_EmptyDigestNeverMatchesContent(t *testing.T) {
	s, _ := newTestStore(t)

	// Digest comparison with no digests computed: identical empty digests
	// must not read as equal content.
	prev := createImport(t, s, record("a", "1.csv"))
	next := createImport(t, s, record("b", "1.csv"))

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2: %s", len(states), describe(states))
	}

	findState(t, states, "a/1.csv", "")
	findState(t, states, "", "b/1.csv")
}

func TestFetchCorrespondence_SizeModifiedFallback(t *testing.T) {
	s, _ := newTestStore(t)

	t.Run("relocation detected by size and mtime", func(t *testing.T) {
		prev := createImport(t, s, record("a", "1.csv"))
		next := createImport(t, s, record("b", "1.csv"))

		states, err := s.FetchCorrespondence(prev, next, false)
		if err != nil {
			t.Fatalf("FetchCorrespondence() error = %v", err)
		}
		if len(states) != 1 {
			t.Fatalf("got %d states, want 1: %s", len(states), describe(states))
		}
		findState(t, states, "a/1.csv", "b/1.csv")
	})

	t.Run("changed mtime at same path is a modification pair", func(t *testing.T) {
		touched := record("a", "1.csv")
		touched.Modified = 9999

		prev := createImport(t, s, record("a", "1.csv"))
		next := createImport(t, s, touched)

		states, err := s.FetchCorrespondence(prev, next, false)
		if err != nil {
			t.Fatalf("FetchCorrespondence() error = %v", err)
		}
		if len(states) != 1 {
			t.Fatalf("got %d states, want 1: %s", len(states), describe(states))
		}
		st := findState(t, states, "a/1.csv", "a/1.csv")
		if st.New.Modified != 9999 {
			t.Errorf("New.Modified = %v, want 9999", st.New.Modified)
		}
	})
}

func TestFetchCorrespondence_OnlyComparesGivenImports(t *testing.T) {
	s, _ := newTestStore(t)

	// An unrelated older import must not leak into the comparison.
	createImport(t, s, record("z", "stale.csv", 0x77))
	prev := createImport(t, s, record("a", "1.csv", 0x01))
	next := createImport(t, s, record("a", "1.csv", 0x01))

	states, err := s.FetchCorrespondence(prev, next, true)
	if err != nil {
		t.Fatalf("FetchCorrespondence() error = %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("got %d states, want 1: %s", len(states), describe(states))
	}
	findState(t, states, "a/1.csv", "a/1.csv")
}
