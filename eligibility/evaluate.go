package eligibility

import (
	"time"

	"github.com/mediatheque-go/lending/core"
)

// Snapshot is the state an eligibility decision is made against.
// Member and Item are nil when they do not exist.
type Snapshot struct {
	Member       *core.Member
	Item         *core.Item
	Standing     core.Standing
	Rule         *core.BorrowingRule
	DefaultLimit int
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Eligible bool
	Reason   core.Reason
}

func eligible() Decision {
	return Decision{Eligible: true, Reason: core.ReasonNone}
}

func refused(reason core.Reason) Decision {
	return Decision{Eligible: false, Reason: reason}
}

// Evaluate decides whether the snapshot's member may borrow the snapshot's item at now.
func Evaluate(s Snapshot, now time.Time) Decision {
	if s.Item == nil {
		return refused(core.ReasonItemNotFound)
	}

	if s.Member == nil {
		return refused(core.ReasonMemberNotFound)
	}

	if s.Member.Blocked {
		return refused(core.ReasonMemberBlocked)
	}

	// An inactive member is treated as unknown, but a block is reported first.
	if !s.Member.Active {
		return refused(core.ReasonMemberNotFound)
	}

	if s.Standing.HasOverdueLoanAt(now) {
		return refused(core.ReasonMemberOverdue)
	}

	if !s.Item.Borrowable {
		return refused(core.ReasonItemNotBorrowable)
	}

	if !s.Item.Available {
		return refused(core.ReasonItemNotAvailable)
	}

	if s.Standing.OpenLoanCount >= Limit(s.Rule, s.DefaultLimit) {
		return refused(core.ReasonLoanLimitExceeded)
	}

	return eligible()
}

// Limit returns the concurrent loan limit in effect: the active rule's, else defaultLimit,
// else core.DefaultMaxConcurrentLoans.
func Limit(rule *core.BorrowingRule, defaultLimit int) int {
	if rule != nil && rule.Active && rule.MaxConcurrentLoans > 0 {
		return rule.MaxConcurrentLoans
	}

	if defaultLimit > 0 {
		return defaultLimit
	}

	return core.DefaultMaxConcurrentLoans
}

// HasError returns the typed error BorrowItem reports for a refusal, nil when eligible.
func (d Decision) HasError() error {
	if d.Eligible {
		return nil
	}

	return &core.BorrowError{Reason: d.Reason}
}
