package snap

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts import id generation so tests are deterministic.
type IDGenerator interface {
	New() ImportID
}

// UUIDGenerator produces random 128-bit ids.
type UUIDGenerator struct{}

func (UUIDGenerator) New() ImportID { return ImportID(uuid.New()) }
