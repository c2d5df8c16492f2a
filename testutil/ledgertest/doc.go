// Package ledgertest provides the behavioral test suite every ledger.Store engine must pass.
package ledgertest
