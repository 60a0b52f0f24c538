package repository

import (
	"encoding/json"
	"testing"
	"time"

	"realtypay/internal/domain/entities"

	"github.com/shopspring/decimal"
)

func TestTransactionItemMapping(t *testing.T) {
	paidAt := time.Date(2026, 8, 30, 12, 0, 0, 123456789, time.UTC)
	tx := entities.Transaction{
		ID:               "tx-1",
		Reference:        "ref-internal",
		GatewayReference: "ref_123",
		PayableType:      "property",
		PayableID:        42,
		UserID:           "user-1",
		Gateway:          "paystack",
		Amount:           decimal.NewFromFloat(100.5),
		Currency:         "NGN",
		Status:           entities.TransactionStatusSuccessful,
		GatewayResponse:  json.RawMessage(`{"data":{"status":"success"}}`),
		PaidAt:           &paidAt,
		CreatedAt:        time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	got := fromTransactionItem(toTransactionItem(tx))

	// Amounts are stored with exactly two decimal places.
	if got.Amount.StringFixed(2) != "100.50" {
		t.Fatalf("expected amount 100.50, got %s", got.Amount.StringFixed(2))
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Fatalf("amount changed value: %s vs %s", got.Amount, tx.Amount)
	}
	if got.Status != entities.TransactionStatusSuccessful {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Fatalf("paid_at not preserved: %v", got.PaidAt)
	}
	if string(got.GatewayResponse) != `{"data":{"status":"success"}}` {
		t.Fatalf("gateway response not preserved: %s", got.GatewayResponse)
	}
	if got.ID != tx.ID || got.Reference != tx.Reference || got.GatewayReference != tx.GatewayReference {
		t.Fatalf("identifiers not preserved: %+v", got)
	}
}

func TestTransactionItemMapping_PendingWithoutOptionalFields(t *testing.T) {
	tx := entities.Transaction{
		ID:        "tx-2",
		Reference: "ref-2",
		UserID:    "user-1",
		Gateway:   "flutterwave",
		Amount:    decimal.NewFromInt(250),
		Currency:  "USD",
		Status:    entities.TransactionStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	got := fromTransactionItem(toTransactionItem(tx))

	if got.PaidAt != nil {
		t.Fatalf("expected nil paid_at, got %v", got.PaidAt)
	}
	if got.GatewayResponse != nil {
		t.Fatalf("expected nil gateway response, got %s", got.GatewayResponse)
	}
	if got.GatewayReference != "" {
		t.Fatalf("expected empty gateway reference, got %q", got.GatewayReference)
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Fatalf("expected amount 250, got %s", got.Amount)
	}
}
