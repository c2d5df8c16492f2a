// Package eligibility implements the borrowing eligibility decision.
//
// Evaluate is a pure function with no side effects: it takes a read-only Snapshot of the
// member, the item, the member's derived standing and the active borrowing rule, and answers
// whether the member may borrow the item at the given time.
//
// The checks run in a fixed order and the first failing check wins, so a refusal always
// carries exactly one reason:
//
//  1. item exists                 -> ItemNotFound
//  2. member exists and is active -> MemberNotFound
//  3. member is not blocked       -> MemberBlocked
//  4. member has no overdue loan  -> MemberOverdue
//  5. item is borrowable          -> ItemNotBorrowable
//  6. item is available           -> ItemNotAvailable
//  7. member is below the limit   -> LoanLimitExceeded
//
// Blocked and overdue members are refused before anything about the item is considered.
package eligibility
