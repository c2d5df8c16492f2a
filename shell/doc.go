// Package shell holds caller-side helpers around the lending engine.
//
// The lifecycle service never retries on its own. Callers that want to survive
// transient database conflicts (deadlocks, serialization failures, a busy SQLite
// file) wrap their calls in RetryWithExponentialBackoff. Business refusals and all
// other failures are returned immediately.
package shell
