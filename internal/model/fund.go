package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund represents an envelope-style bucket of money with a cached running
// balance. InitialBalance is the immutable baseline; CurrentBalance is
// maintained by the balance engine and must always equal InitialBalance plus
// the signed deltas of every expense referencing the fund.
type Fund struct {
	CreatedAt      time.Time
	Name           string
	Description    string
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	ID             int64
	IsActive       bool
}
