package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionStatusTerminal(t *testing.T) {
	if TransactionStatusPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
	if !TransactionStatusSuccessful.Terminal() {
		t.Fatal("successful must be terminal")
	}
	if !TransactionStatusFailed.Terminal() {
		t.Fatal("failed must be terminal")
	}
}

func TestTransactionAmountMinor(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"100.00", 10000},
		{"0.01", 1},
		{"250.50", 25050},
		{"1", 100},
	}
	for _, c := range cases {
		amount, err := decimal.NewFromString(c.amount)
		if err != nil {
			t.Fatalf("parsing %s: %v", c.amount, err)
		}
		tx := Transaction{Amount: amount}
		if got := tx.AmountMinor(); got != c.want {
			t.Fatalf("AmountMinor(%s) = %d, want %d", c.amount, got, c.want)
		}
	}
}
