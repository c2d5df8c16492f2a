package core

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidLoanLimit is returned when a rule would allow fewer than one concurrent loan.
var ErrInvalidLoanLimit = errors.New("max concurrent loans must be positive")

// BorrowingRule caps the number of concurrent open loans per member.
// At most one rule is active at any time.
type BorrowingRule struct {
	ID                 uuid.UUID
	Name               string
	MaxConcurrentLoans int
	Active             bool
}

// BuildBorrowingRule creates a validated BorrowingRule.
func BuildBorrowingRule(id uuid.UUID, name string, maxConcurrentLoans int, active bool) (BorrowingRule, error) {
	if maxConcurrentLoans <= 0 {
		return BorrowingRule{}, ErrInvalidLoanLimit
	}

	return BorrowingRule{
		ID:                 id,
		Name:               name,
		MaxConcurrentLoans: maxConcurrentLoans,
		Active:             active,
	}, nil
}
