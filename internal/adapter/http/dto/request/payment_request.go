package request

import (
	"strings"

	"realtypay/internal/usecase"

	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest is the payload for POST /payment/initiate.
//
// Amount is accepted in major units and rounded to two decimal places;
// conversion to the provider's minor units happens inside the payment core.
type InitiatePaymentRequest struct {
	Amount         float64 `json:"amount" binding:"required,gt=0"`
	Currency       string  `json:"currency" binding:"required,min=3,max=10"`
	PaymentGateway string  `json:"payment_gateway" binding:"required"`
	ItemID         int64   `json:"item_id" binding:"required,gt=0"`
	ItemType       string  `json:"item_type" binding:"required"`
	Description    string  `json:"description" binding:"omitempty,max=255"`
	CallbackURL    string  `json:"callback_url" binding:"omitempty,url"`
}

// ToInput attaches the caller identity established by the auth middleware.
func (r InitiatePaymentRequest) ToInput(userID, email string) usecase.InitiatePaymentInput {
	return usecase.InitiatePaymentInput{
		UserID:      userID,
		Email:       email,
		Amount:      decimal.NewFromFloat(r.Amount).Round(2),
		Currency:    strings.TrimSpace(r.Currency),
		Gateway:     strings.TrimSpace(r.PaymentGateway),
		ItemID:      r.ItemID,
		ItemType:    strings.TrimSpace(r.ItemType),
		Description: strings.TrimSpace(r.Description),
		CallbackURL: strings.TrimSpace(r.CallbackURL),
	}
}
