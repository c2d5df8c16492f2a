// Package lifecycle is the loan lifecycle service: the imperative shell around the
// eligibility rules.
//
// BorrowItem and ReturnItem run as a single ledger transaction each. Inside it the
// service locks the rows it decides on, re-reads the member's open loans from the
// ledger, evaluates eligibility and writes the loan together with the item's new
// availability. Refusals are returned as typed errors from package core and never
// mutate anything:
//
//	loan, err := service.BorrowItem(ctx, memberID, itemID, time.Now())
//	if reason, ok := core.ReasonOf(err); ok {
//		// business refusal, e.g. core.ReasonLoanLimitExceeded
//	}
//
// Errors that are not business outcomes are wrapped in *core.InfrastructureError.
// The service never retries; see package shell for caller-side retries.
//
// Read-only operations (CheckEligibility, MemberStanding) are served from the
// standing cache, which the service invalidates whenever a loan of the member is
// opened or closed.
package lifecycle
