package entities

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the payment state machine.
//
// pending is the only initial state. successful and failed are terminal:
// once reached, no further signal (verify result, webhook event, duplicate
// delivery) may move the transaction again. Transitions out of pending are
// applied as status-guarded conditional updates, so concurrent writers race
// safely and the first terminal state wins.

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusSuccessful || s == TransactionStatusFailed
}

// Transaction is the payment record persisted per initiation attempt.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI (transaction_reference-index): transaction_reference
//   - GSI (gateway_reference-index): gateway_reference
//
// Reference is generated internally at initiation and is the correlation key
// sent to the gateway; GatewayReference is the provider's own identifier and
// stays empty until a successful initiate (or webhook) reports one. Both are
// immutable once set, as are Amount and Currency.
//
// Amount is held in major units with two decimal places; conversion to the
// minor units providers expect happens only at the gateway boundary.

type Transaction struct {
	ID               string            `json:"id"`
	Reference        string            `json:"transaction_reference"`
	GatewayReference string            `json:"gateway_reference,omitempty"`
	PayableType      string            `json:"payable_type,omitempty"`
	PayableID        int64             `json:"payable_id,omitempty"`
	UserID           string            `json:"user_id"`
	Gateway          string            `json:"payment_gateway"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Status           TransactionStatus `json:"status"`

	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AmountMinor returns the amount in the smallest currency unit, the form
// every provider API expects.
func (t Transaction) AmountMinor() int64 {
	return t.Amount.Shift(2).IntPart()
}
