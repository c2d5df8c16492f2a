// Package core contains the functional core of the media lending domain:
// items, members, loans, borrowing rules, the derived member standing and the
// typed business outcomes returned to callers.
//
// Nothing in this package performs I/O. Persistence lives in package ledger
// and its engines, the orchestration of borrow/return in package lifecycle.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'domain' layer.
package core
