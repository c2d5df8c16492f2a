// Package standingcache caches the derived standing of members.
//
// The cache is read-through: a miss loads the standing from the ledger, concurrent
// misses for the same member share one load. Entries expire after a TTL and are
// dropped by Invalidate, which the lifecycle service calls whenever a loan of the
// member is opened or closed. A load that overlaps an invalidation is not stored,
// so the cache never resurrects a standing older than the last invalidation.
//
// The cache is a derived view and never decides on its own whether a borrow is
// allowed. BorrowItem re-reads the ledger inside its transaction.
package standingcache
