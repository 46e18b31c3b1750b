package testutil

import (
	"encoding/binary"
	"sync"
	"time"

	"fsnap/internal/snap"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2026-03-10 09:15:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential import IDs: SeqImportID(1), SeqImportID(2), etc.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter uint64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() snap.ImportID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return SeqImportID(g.counter)
}

// SeqImportID builds the import ID the StubIDGenerator hands out on its n-th call.
func SeqImportID(n uint64) snap.ImportID {
	var id snap.ImportID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}
