package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"fsnap/internal/snap"
)

// MemoryArchive is an in-memory implementation of the Archive interface,
// useful for testing. It is safe for concurrent use.
type MemoryArchive struct {
	items    map[string][]byte
	versions map[string]int64
	mu       sync.RWMutex
}

// NewMemoryArchive creates a new empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		items:    make(map[string][]byte),
		versions: make(map[string]int64),
	}
}

// Put stores an item along with its version stamp.
func (m *MemoryArchive) Put(name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read item: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[name] = data
	m.versions[name] = version
	return nil
}

// Get retrieves an item by name.
func (m *MemoryArchive) Get(name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.items[name]
	if !ok {
		return fmt.Errorf("archive item not found: %s", name)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write item: %w", err)
	}

	return nil
}

// Version returns the version stamp for a named item.
// Returns 0 if the item has never been stored.
func (m *MemoryArchive) Version(name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[name], nil
}

// ValidateSetup always succeeds for the in-memory archive.
func (m *MemoryArchive) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryArchive implements the Archive interface
var _ snap.Archive = (*MemoryArchive)(nil)
