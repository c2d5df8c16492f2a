package core

// Reason is the typed outcome of an eligibility check or a lifecycle operation.
type Reason string

const (
	ReasonNone              Reason = "none"
	ReasonItemNotFound      Reason = "item_not_found"
	ReasonMemberNotFound    Reason = "member_not_found"
	ReasonMemberBlocked     Reason = "member_blocked"
	ReasonMemberOverdue     Reason = "member_overdue"
	ReasonItemNotBorrowable Reason = "item_not_borrowable"
	ReasonItemNotAvailable  Reason = "item_not_available"
	ReasonLoanLimitExceeded Reason = "loan_limit_exceeded"
	ReasonLoanNotFound      Reason = "loan_not_found"
	ReasonAlreadyReturned   Reason = "already_returned"
	ReasonItemHasOpenLoan   Reason = "item_has_open_loan"
)

// Reasons lists every failure reason, used to keep message mappings total.
func Reasons() []Reason {
	return []Reason{
		ReasonItemNotFound,
		ReasonMemberNotFound,
		ReasonMemberBlocked,
		ReasonMemberOverdue,
		ReasonItemNotBorrowable,
		ReasonItemNotAvailable,
		ReasonLoanLimitExceeded,
		ReasonLoanNotFound,
		ReasonAlreadyReturned,
		ReasonItemHasOpenLoan,
	}
}

// String returns the identifier of the reason.
func (r Reason) String() string {
	return string(r)
}

// Description returns a short human-readable explanation of the reason.
func (r Reason) Description() string {
	switch r {
	case ReasonNone:
		return "eligible"
	case ReasonItemNotFound:
		return "item does not exist"
	case ReasonMemberNotFound:
		return "member does not exist or is inactive"
	case ReasonMemberBlocked:
		return "member is blocked"
	case ReasonMemberOverdue:
		return "member has an overdue loan"
	case ReasonItemNotBorrowable:
		return "item kind cannot be borrowed"
	case ReasonItemNotAvailable:
		return "item is not available"
	case ReasonLoanLimitExceeded:
		return "member reached the maximum number of concurrent loans"
	case ReasonLoanNotFound:
		return "loan does not exist"
	case ReasonAlreadyReturned:
		return "loan was already returned"
	case ReasonItemHasOpenLoan:
		return "item has an open loan"
	default:
		return "unknown reason"
	}
}
