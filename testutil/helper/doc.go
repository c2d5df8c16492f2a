// Package helper provides fixtures, Given* arrangement functions and observability spies
// shared by the test suites of the ledger engines and the lifecycle service.
package helper
