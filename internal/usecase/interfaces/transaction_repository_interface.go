package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"realtypay/internal/domain/entities"
)

// ITransactionRepository abstracts DynamoDB persistence for Transaction.
//
// Lookups return a zero-value Transaction (ID == "") when nothing matches.
//
// The Mark* methods are the only way out of pending: each issues a single
// conditional update guarded by the currently stored status and reports
// applied=false when the guard failed because the transaction is already
// terminal. Callers treat applied=false as a benign idempotent no-op.
type ITransactionRepository interface {
	Create(ctx context.Context, t entities.Transaction) (entities.Transaction, error)
	GetByReference(ctx context.Context, reference string) (entities.Transaction, error)
	GetByGatewayReference(ctx context.Context, gatewayReference string) (entities.Transaction, error)

	// SetGatewayReference records the provider-assigned reference after a
	// successful initiate. The field is write-once; a second call for the
	// same transaction leaves the stored value untouched.
	SetGatewayReference(ctx context.Context, id, gatewayReference string) (entities.Transaction, error)

	MarkSuccessful(ctx context.Context, id string, raw json.RawMessage, paidAt time.Time) (entities.Transaction, bool, error)
	MarkFailed(ctx context.Context, id string, raw json.RawMessage) (entities.Transaction, bool, error)
}
