package core

import (
	"time"
)

// Standing is the derived borrowing situation of a member.
// It is a cacheable projection of the member's open loans and never a source of truth.
type Standing struct {
	OpenLoanCount int

	// EarliestDueAt is the smallest due date among open loans, zero when there are none.
	EarliestDueAt Timestamp
}

// DeriveStanding projects the standing from a member's loans. Closed loans are ignored.
func DeriveStanding(loans []Loan) Standing {
	s := Standing{}

	for _, loan := range loans {
		if !loan.IsOpen() {
			continue
		}

		s.OpenLoanCount++

		if s.EarliestDueAt.IsZero() || loan.DueAt.Before(s.EarliestDueAt) {
			s.EarliestDueAt = loan.DueAt
		}
	}

	return s
}

// HasOverdueLoanAt reports whether at least one open loan was due before now.
func (s Standing) HasOverdueLoanAt(now time.Time) bool {
	return s.OpenLoanCount > 0 && s.EarliestDueAt.Before(ToTimestamp(now))
}
