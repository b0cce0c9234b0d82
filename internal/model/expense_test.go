package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExpenseIsTransfer(t *testing.T) {
	dest := int64(2)

	expense := Expense{SourceFundID: 1}
	if expense.IsTransfer() {
		t.Error("expense without destination should not be a transfer")
	}

	expense.DestinationFundID = &dest
	if !expense.IsTransfer() {
		t.Error("expense with destination should be a transfer")
	}
}

func TestExpenseUpdateIsEmpty(t *testing.T) {
	amount := decimal.NewFromInt(5)

	tests := []struct {
		name   string
		update ExpenseUpdate
		want   bool
	}{
		{name: "zero value", update: ExpenseUpdate{}, want: true},
		{name: "amount set", update: ExpenseUpdate{Amount: &amount}, want: false},
		{name: "clear destination only", update: ExpenseUpdate{ClearDestination: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.update.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpenseUpdateApplyTo(t *testing.T) {
	oldDest := int64(3)
	base := Expense{
		ID:                "exp-1",
		CategoryID:        1,
		SourceFundID:      2,
		DestinationFundID: &oldDest,
		Amount:            decimal.RequireFromString("10.00"),
		Date:              time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description:       "original",
		PaymentMethod:     "card",
	}

	t.Run("empty update copies the record", func(t *testing.T) {
		var update ExpenseUpdate
		merged := update.ApplyTo(base)

		if merged.Description != base.Description || !merged.Amount.Equal(base.Amount) {
			t.Errorf("empty update changed fields: %+v", merged)
		}
		if merged.DestinationFundID == base.DestinationFundID {
			t.Error("merged record should not share the destination pointer")
		}
		if *merged.DestinationFundID != oldDest {
			t.Errorf("destination = %d, want %d", *merged.DestinationFundID, oldDest)
		}
	})

	t.Run("supplied fields replace stored values", func(t *testing.T) {
		amount := decimal.RequireFromString("25.50")
		category := int64(7)
		description := "groceries"
		update := ExpenseUpdate{
			Amount:      &amount,
			CategoryID:  &category,
			Description: &description,
		}

		merged := update.ApplyTo(base)

		if !merged.Amount.Equal(amount) {
			t.Errorf("amount = %s, want %s", merged.Amount, amount)
		}
		if merged.CategoryID != category {
			t.Errorf("category = %d, want %d", merged.CategoryID, category)
		}
		if merged.Description != description {
			t.Errorf("description = %q, want %q", merged.Description, description)
		}
		if merged.SourceFundID != base.SourceFundID {
			t.Errorf("source fund changed unexpectedly to %d", merged.SourceFundID)
		}
		if base.Description != "original" {
			t.Error("ApplyTo modified its argument")
		}
	})

	t.Run("new destination replaces stored one", func(t *testing.T) {
		newDest := int64(9)
		update := ExpenseUpdate{DestinationFundID: &newDest}

		merged := update.ApplyTo(base)

		if merged.DestinationFundID == nil || *merged.DestinationFundID != newDest {
			t.Errorf("destination = %v, want %d", merged.DestinationFundID, newDest)
		}
		if merged.DestinationFundID == update.DestinationFundID {
			t.Error("merged record should not share the update's pointer")
		}
	})

	t.Run("clear destination removes the transfer leg", func(t *testing.T) {
		update := ExpenseUpdate{ClearDestination: true}

		merged := update.ApplyTo(base)

		if merged.DestinationFundID != nil {
			t.Errorf("destination = %d, want nil", *merged.DestinationFundID)
		}
		if base.DestinationFundID == nil {
			t.Error("ApplyTo modified its argument")
		}
	})

	t.Run("clear wins over a supplied destination", func(t *testing.T) {
		newDest := int64(9)
		update := ExpenseUpdate{DestinationFundID: &newDest, ClearDestination: true}

		merged := update.ApplyTo(base)

		if merged.DestinationFundID != nil {
			t.Errorf("destination = %d, want nil", *merged.DestinationFundID)
		}
	})
}
