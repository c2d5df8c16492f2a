package core

import (
	"time"
)

const (
	// DefaultBorrowPeriod is the time between borrowing an item and its due date.
	DefaultBorrowPeriod = 7 * 24 * time.Hour

	// DefaultMaxConcurrentLoans is the loan limit applied when no borrowing rule is active.
	DefaultMaxConcurrentLoans = 3
)

// Timestamp represents a point in time as stored and compared by the engine.
type Timestamp = time.Time

// ToTimestamp converts a time to Timestamp with UTC normalization and microsecond precision.
func ToTimestamp(t time.Time) Timestamp {
	return t.UTC().Truncate(time.Microsecond)
}

// ToUnixMicro converts a time to its storage representation.
func ToUnixMicro(t time.Time) int64 {
	return ToTimestamp(t).UnixMicro()
}

// FromUnixMicro converts the storage representation back to a Timestamp.
func FromUnixMicro(v int64) Timestamp {
	return time.UnixMicro(v).UTC()
}
