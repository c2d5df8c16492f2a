// Package memoryengine provides an in-process implementation of ledger.Store.
//
// Transactions are serialized by a single mutex and run against a copy of the
// state which replaces the committed state only when the transaction function
// succeeds. Row locks are therefore implicit. The engine is meant for tests and
// for the simulation command, it keeps nothing on disk.
package memoryengine
