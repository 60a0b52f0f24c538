package response

import (
	"encoding/json"
	"time"

	"realtypay/internal/domain/entities"
	"realtypay/internal/usecase"
)

type TransactionResponse struct {
	ID               string          `json:"id"`
	Reference        string          `json:"transaction_reference"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	PayableType      string          `json:"payable_type,omitempty"`
	PayableID        int64           `json:"payable_id,omitempty"`
	PaymentGateway   string          `json:"payment_gateway"`
	Amount           string          `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	GatewayResponse  json.RawMessage `json:"gateway_response,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func FromTransaction(t entities.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               t.ID,
		Reference:        t.Reference,
		GatewayReference: t.GatewayReference,
		PayableType:      t.PayableType,
		PayableID:        t.PayableID,
		PaymentGateway:   t.Gateway,
		Amount:           t.Amount.StringFixed(2),
		Currency:         t.Currency,
		Status:           string(t.Status),
		GatewayResponse:  t.GatewayResponse,
		PaidAt:           t.PaidAt,
		CreatedAt:        t.CreatedAt,
	}
}

// InitiatePaymentResponse returns the provider redirect payload alongside
// the internal reference the client will use for verification.
type InitiatePaymentResponse struct {
	Reference string         `json:"transaction_reference"`
	Status    string         `json:"status"`
	Redirect  map[string]any `json:"redirect,omitempty"`
}

func FromInitiateResult(r usecase.InitiatePaymentResult) InitiatePaymentResponse {
	return InitiatePaymentResponse{
		Reference: r.Transaction.Reference,
		Status:    string(r.Transaction.Status),
		Redirect:  r.Redirect,
	}
}

// VerifyPaymentResponse mirrors the message/data envelope the verify
// endpoint exposes.
type VerifyPaymentResponse struct {
	Message string              `json:"message"`
	Data    TransactionResponse `json:"data"`
}
