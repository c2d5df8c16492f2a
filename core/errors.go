package core

import (
	"errors"
)

var (
	ErrItemNotFound      = errors.New(ReasonItemNotFound.Description())
	ErrMemberNotFound    = errors.New(ReasonMemberNotFound.Description())
	ErrMemberBlocked     = errors.New(ReasonMemberBlocked.Description())
	ErrMemberOverdue     = errors.New(ReasonMemberOverdue.Description())
	ErrItemNotBorrowable = errors.New(ReasonItemNotBorrowable.Description())
	ErrItemNotAvailable  = errors.New(ReasonItemNotAvailable.Description())
	ErrLoanLimitExceeded = errors.New(ReasonLoanLimitExceeded.Description())
	ErrLoanNotFound      = errors.New(ReasonLoanNotFound.Description())
	ErrAlreadyReturned   = errors.New(ReasonAlreadyReturned.Description())
	ErrItemHasOpenLoan   = errors.New(ReasonItemHasOpenLoan.Description())

	// ErrInfrastructure marks failures of the storage or transport below the engine.
	ErrInfrastructure = errors.New("infrastructure failure")

	errUnknownReason = errors.New(Reason("").Description())
)

// sentinelFor maps a reason to its sentinel so that errors.Is works on typed errors.
func sentinelFor(r Reason) error {
	switch r {
	case ReasonItemNotFound:
		return ErrItemNotFound
	case ReasonMemberNotFound:
		return ErrMemberNotFound
	case ReasonMemberBlocked:
		return ErrMemberBlocked
	case ReasonMemberOverdue:
		return ErrMemberOverdue
	case ReasonItemNotBorrowable:
		return ErrItemNotBorrowable
	case ReasonItemNotAvailable:
		return ErrItemNotAvailable
	case ReasonLoanLimitExceeded:
		return ErrLoanLimitExceeded
	case ReasonLoanNotFound:
		return ErrLoanNotFound
	case ReasonAlreadyReturned:
		return ErrAlreadyReturned
	case ReasonItemHasOpenLoan:
		return ErrItemHasOpenLoan
	default:
		return errUnknownReason
	}
}

// BorrowError is returned by BorrowItem when the member may not borrow the item.
type BorrowError struct {
	Reason Reason
}

func (e *BorrowError) Error() string {
	return "borrowing refused: " + e.Reason.Description()
}

func (e *BorrowError) Unwrap() error {
	return sentinelFor(e.Reason)
}

// ReturnError is returned by ReturnItem when the loan cannot be closed.
type ReturnError struct {
	Reason Reason
}

func (e *ReturnError) Error() string {
	return "return refused: " + e.Reason.Description()
}

func (e *ReturnError) Unwrap() error {
	return sentinelFor(e.Reason)
}

// AvailabilityError is returned when an administrative availability change is refused.
type AvailabilityError struct {
	Reason Reason
}

func (e *AvailabilityError) Error() string {
	return "availability change refused: " + e.Reason.Description()
}

func (e *AvailabilityError) Unwrap() error {
	return sentinelFor(e.Reason)
}

// InfrastructureError wraps a failure that is not a business outcome, e.g. an unreachable store.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return ErrInfrastructure.Error() + " during " + e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() []error {
	return []error{ErrInfrastructure, e.Err}
}

// NewInfrastructureError wraps err unless it is nil or already an InfrastructureError.
func NewInfrastructureError(op string, err error) error {
	if err == nil {
		return nil
	}

	var infraErr *InfrastructureError
	if errors.As(err, &infraErr) {
		return err
	}

	return &InfrastructureError{Op: op, Err: err}
}

// ReasonOf extracts the business reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var borrowErr *BorrowError
	if errors.As(err, &borrowErr) {
		return borrowErr.Reason, true
	}

	var returnErr *ReturnError
	if errors.As(err, &returnErr) {
		return returnErr.Reason, true
	}

	var availabilityErr *AvailabilityError
	if errors.As(err, &availabilityErr) {
		return availabilityErr.Reason, true
	}

	return "", false
}

// IsBusinessError reports whether err is an expected, typed business outcome.
func IsBusinessError(err error) bool {
	_, ok := ReasonOf(err)
	return ok
}
