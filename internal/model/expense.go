package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a single financial record. Every expense debits its
// source fund; when DestinationFundID is set the expense is an inter-fund
// transfer and credits the destination fund by the same amount.
type Expense struct {
	Date              time.Time
	CreatedAt         time.Time
	ID                string
	Description       string
	PaymentMethod     string
	Amount            decimal.Decimal
	DestinationFundID *int64
	CategoryID        int64
	SourceFundID      int64
}

// IsTransfer reports whether the expense moves money between two funds.
func (e *Expense) IsTransfer() bool {
	return e.DestinationFundID != nil
}

// ExpenseUpdate carries a partial update to an expense. Nil fields retain the
// stored value. DestinationFundID and ClearDestination are a tri-state:
// nil+false keeps the stored destination, non-nil sets a new one, and
// ClearDestination removes it (turning a transfer into a plain spend).
type ExpenseUpdate struct {
	Date              *time.Time
	Description       *string
	PaymentMethod     *string
	Amount            *decimal.Decimal
	CategoryID        *int64
	SourceFundID      *int64
	DestinationFundID *int64
	ClearDestination  bool
}

// IsEmpty reports whether the update supplies no fields at all.
func (u *ExpenseUpdate) IsEmpty() bool {
	return u.Date == nil &&
		u.Description == nil &&
		u.PaymentMethod == nil &&
		u.Amount == nil &&
		u.CategoryID == nil &&
		u.SourceFundID == nil &&
		u.DestinationFundID == nil &&
		!u.ClearDestination
}

// ApplyTo merges the update over an existing expense and returns the merged
// record. The receiver and argument are not modified.
func (u *ExpenseUpdate) ApplyTo(old Expense) Expense {
	merged := old
	if old.DestinationFundID != nil {
		dest := *old.DestinationFundID
		merged.DestinationFundID = &dest
	}
	if u.Date != nil {
		merged.Date = *u.Date
	}
	if u.Description != nil {
		merged.Description = *u.Description
	}
	if u.PaymentMethod != nil {
		merged.PaymentMethod = *u.PaymentMethod
	}
	if u.Amount != nil {
		merged.Amount = *u.Amount
	}
	if u.CategoryID != nil {
		merged.CategoryID = *u.CategoryID
	}
	if u.SourceFundID != nil {
		merged.SourceFundID = *u.SourceFundID
	}
	switch {
	case u.ClearDestination:
		merged.DestinationFundID = nil
	case u.DestinationFundID != nil:
		dest := *u.DestinationFundID
		merged.DestinationFundID = &dest
	}
	return merged
}
