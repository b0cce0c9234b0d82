// Package engine implements the fund balance consistency engine: every
// expense mutation flows through it so that each fund's cached balance stays
// equal to its initial balance plus the signed deltas of the expenses
// referencing it.
package engine

import (
	"fmt"
	"strings"
)

// ValidationError reports that a proposed mutation was rejected before any
// state changed. Errors are blocking; warnings are advisory and appear here
// only when they accompany a rejection.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ConsistencyError reports that a balance step failed after the expense
// record was already written inside the same unit of work. The enclosing
// transaction is rolled back, so no partial state survives; the error exists
// so callers can distinguish this from an up-front rejection.
type ConsistencyError struct {
	Err       error
	Op        string
	ExpenseID string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s %s: balance mutation failed after record write: %v", e.Op, e.ExpenseID, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}
