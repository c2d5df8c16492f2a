package core

import (
	"time"

	"github.com/google/uuid"
)

// LoanState is the lifecycle state of a Loan as observed at a point in time.
type LoanState string

const (
	// LoanStateOpen is a loan whose item has not been returned yet.
	LoanStateOpen LoanState = "open"

	// LoanStateOverdue is an open loan whose due date has passed. It is never persisted.
	LoanStateOverdue LoanState = "overdue"

	// LoanStateReturned is terminal.
	LoanStateReturned LoanState = "returned"
)

// Loan records that a member holds (or held) an item.
type Loan struct {
	ID         uuid.UUID
	MemberID   uuid.UUID
	ItemID     uuid.UUID
	BorrowedAt Timestamp
	DueAt      Timestamp
	ReturnedAt *Timestamp
}

// OpenLoan creates a new open Loan due one borrow period after borrowedAt.
func OpenLoan(id, memberID, itemID uuid.UUID, borrowedAt time.Time, period time.Duration) Loan {
	borrowed := ToTimestamp(borrowedAt)

	return Loan{
		ID:         id,
		MemberID:   memberID,
		ItemID:     itemID,
		BorrowedAt: borrowed,
		DueAt:      ToTimestamp(borrowed.Add(period)),
	}
}

// IsOpen reports whether the loan has not been closed.
func (l Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// IsOverdueAt reports whether the loan is open and its due date lies before now.
func (l Loan) IsOverdueAt(now time.Time) bool {
	return l.IsOpen() && l.DueAt.Before(ToTimestamp(now))
}

// StateAt computes the state of the loan relative to now.
func (l Loan) StateAt(now time.Time) LoanState {
	switch {
	case !l.IsOpen():
		return LoanStateReturned
	case l.IsOverdueAt(now):
		return LoanStateOverdue
	default:
		return LoanStateOpen
	}
}

// Closed returns a copy of the loan with its return time set.
func (l Loan) Closed(returnedAt time.Time) Loan {
	ts := ToTimestamp(returnedAt)
	l.ReturnedAt = &ts

	return l
}
