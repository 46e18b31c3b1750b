package snap

import (
	"encoding/json"
	"testing"
)

func marshalAction(t *testing.T, a Action) map[string]any {
	t.Helper()
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal(%T): %v", a, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return m
}

func TestActionMarshalJSON(t *testing.T) {
	orig := rec("a", "f.txt", 1)
	next := rec("b", "f.txt", 1)

	t.Run("created", func(t *testing.T) {
		m := marshalAction(t, Created{New: next})
		if m["$type"] != "Created" {
			t.Errorf("$type = %v", m["$type"])
		}
		nw, ok := m["new"].(map[string]any)
		if !ok || nw["file_name"] != "b/f.txt" {
			t.Errorf("new = %v", m["new"])
		}
	})

	t.Run("removed", func(t *testing.T) {
		m := marshalAction(t, Removed{Original: orig})
		if m["$type"] != "Removed" {
			t.Errorf("$type = %v", m["$type"])
		}
		o, ok := m["original"].(map[string]any)
		if !ok || o["file_name"] != "a/f.txt" {
			t.Errorf("original = %v", m["original"])
		}
	})

	t.Run("copied", func(t *testing.T) {
		m := marshalAction(t, Copied{Original: orig, Copy: next})
		if m["$type"] != "Copied" {
			t.Errorf("$type = %v", m["$type"])
		}
		c, ok := m["copy"].(map[string]any)
		if !ok || c["dir_name"] != "b" {
			t.Errorf("copy = %v", m["copy"])
		}
	})

	t.Run("moved", func(t *testing.T) {
		m := marshalAction(t, Moved{
			Original:    orig,
			NewDirName:  "b",
			NewMetadata: map[string]string{"zone": "b"},
		})
		if m["$type"] != "Moved" {
			t.Errorf("$type = %v", m["$type"])
		}
		if m["dir_name"] != "b" {
			t.Errorf("dir_name = %v", m["dir_name"])
		}
		md, ok := m["metadata"].(map[string]any)
		if !ok || md["zone"] != "b" {
			t.Errorf("metadata = %v", m["metadata"])
		}
	})

	t.Run("renamed", func(t *testing.T) {
		m := marshalAction(t, Renamed{Original: orig, NewBaseName: "g.txt"})
		if m["$type"] != "Renamed" {
			t.Errorf("$type = %v", m["$type"])
		}
		if m["base_name"] != "g.txt" {
			t.Errorf("base_name = %v", m["base_name"])
		}
	})

	t.Run("archived", func(t *testing.T) {
		m := marshalAction(t, Archived{Original: orig, NewDirName: "archive/2026"})
		if m["$type"] != "Archived" {
			t.Errorf("$type = %v", m["$type"])
		}
		if m["dir_name"] != "archive/2026" {
			t.Errorf("dir_name = %v", m["dir_name"])
		}
	})

	t.Run("modified", func(t *testing.T) {
		m := marshalAction(t, Modified{
			Original:    orig,
			NewModified: 3000,
			NewSize:     128,
			NewDigest:   Digest{0xff},
		})
		if m["$type"] != "Modified" {
			t.Errorf("$type = %v", m["$type"])
		}
		if m["modified"] != float64(3000) || m["size"] != float64(128) {
			t.Errorf("modified = %v, size = %v", m["modified"], m["size"])
		}
		if m["digest"] != "ff" {
			t.Errorf("digest = %v", m["digest"])
		}
	})
}

func TestActionKinds(t *testing.T) {
	actions := []Action{
		Created{}, Removed{}, Copied{}, Moved{}, Renamed{}, Archived{}, Modified{},
	}
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		kind := a.Kind()
		if kind == "" {
			t.Errorf("%T has an empty kind", a)
		}
		if seen[kind] {
			t.Errorf("kind %q is not unique", kind)
		}
		seen[kind] = true
	}
}
