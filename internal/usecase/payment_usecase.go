package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"realtypay/internal/domain/entities"
	"realtypay/internal/usecase/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidCurrency     = errors.New("currency must be 3 to 10 characters")
	ErrInvalidPayable      = errors.New("invalid payable reference")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrGatewayDeclined means the provider explicitly rejected the charge.
	// Terminal for this attempt: the transaction is marked failed before
	// this error reaches the caller.
	ErrGatewayDeclined = errors.New("payment gateway declined")

	// ErrPersistence wraps local store failures. The transaction, if it was
	// already created, remains in its last committed state.
	ErrPersistence = errors.New("transaction store failure")
)

// InitiatePaymentInput carries a validated, authenticated initiate request.
// UserID and Email come from the caller identity established at the boundary.
type InitiatePaymentInput struct {
	UserID      string
	Email       string
	Amount      decimal.Decimal
	Currency    string
	Gateway     string
	ItemID      int64
	ItemType    string
	Description string
	CallbackURL string
}

// InitiatePaymentResult pairs the created transaction with the provider's
// redirect payload the client needs to complete the charge.
type InitiatePaymentResult struct {
	Transaction entities.Transaction
	Redirect    map[string]any
}

// IPaymentUseCase is the payment orchestrator: it drives the
// initiate / verify / webhook-ingest flows and keeps the locally stored
// status consistent with what the gateway reports.

type IPaymentUseCase interface {
	Initiate(ctx context.Context, in InitiatePaymentInput) (InitiatePaymentResult, error)
	Verify(ctx context.Context, reference string) (entities.Transaction, error)
	IngestWebhook(ctx context.Context, gateway string, req interfaces.WebhookRequest) error
	GetByReference(ctx context.Context, userID, reference string) (entities.Transaction, error)
}

type PaymentUseCase struct {
	repo     interfaces.ITransactionRepository
	registry interfaces.IGatewayRegistry
}

var _ IPaymentUseCase = (*PaymentUseCase)(nil)

func NewPaymentUseCase(repo interfaces.ITransactionRepository, registry interfaces.IGatewayRegistry) *PaymentUseCase {
	return &PaymentUseCase{repo: repo, registry: registry}
}

// Initiate validates the request, persists a pending transaction and only
// then performs the outbound gateway call. The ordering is load-bearing:
// every outbound attempt has a local record even if the process dies or the
// call never returns, so no payment can exist at the provider without a
// reference on our side.
func (u *PaymentUseCase) Initiate(ctx context.Context, in InitiatePaymentInput) (InitiatePaymentResult, error) {
	log.Printf("[payment][usecase] initiate start user_id=%s gateway=%s amount=%s currency=%s", in.UserID, in.Gateway, in.Amount, in.Currency)

	if !in.Amount.IsPositive() {
		return InitiatePaymentResult{}, ErrInvalidAmount
	}
	cur := strings.ToUpper(strings.TrimSpace(in.Currency))
	if len(cur) < 3 || len(cur) > 10 {
		return InitiatePaymentResult{}, ErrInvalidCurrency
	}
	if in.ItemID <= 0 || strings.TrimSpace(in.ItemType) == "" {
		return InitiatePaymentResult{}, ErrInvalidPayable
	}

	gw, err := u.registry.Resolve(in.Gateway)
	if err != nil {
		log.Printf("[payment][usecase] initiate unsupported gateway=%s user_id=%s", in.Gateway, in.UserID)
		return InitiatePaymentResult{}, err
	}

	now := time.Now().UTC()
	tx := entities.Transaction{
		ID:          uuid.NewString(),
		Reference:   uuid.NewString(),
		PayableType: strings.TrimSpace(in.ItemType),
		PayableID:   in.ItemID,
		UserID:      in.UserID,
		Gateway:     strings.ToLower(strings.TrimSpace(in.Gateway)),
		Amount:      in.Amount.Round(2),
		Currency:    cur,
		Status:      entities.TransactionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err = u.repo.Create(ctx, tx)
	if err != nil {
		log.Printf("[payment][usecase] initiate create failed reference=%s err=%v", tx.Reference, err)
		return InitiatePaymentResult{}, fmt.Errorf("%w: creating transaction %s: %v", ErrPersistence, tx.Reference, err)
	}
	log.Printf("[payment][usecase] transaction created reference=%s status=%s", tx.Reference, tx.Status)

	data := interfaces.PaymentData{
		AmountMinor: tx.AmountMinor(),
		Currency:    tx.Currency,
		Reference:   tx.Reference,
		Email:       in.Email,
		CallbackURL: in.CallbackURL,
		Description: in.Description,
		Metadata: map[string]any{
			"transaction_id": tx.ID,
			"item_id":        tx.PayableID,
			"item_type":      tx.PayableType,
		},
	}

	result, err := gw.InitiatePayment(ctx, data)
	if err != nil {
		// Transport failure: the charge may or may not exist on the provider
		// side. The transaction stays pending so a later verify can settle it.
		log.Printf("[payment][usecase] initiate gateway transport failure reference=%s err=%v", tx.Reference, err)
		return InitiatePaymentResult{Transaction: tx}, err
	}

	if !result.Succeeded {
		if _, _, mErr := u.repo.MarkFailed(ctx, tx.ID, result.Raw); mErr != nil {
			log.Printf("[payment][usecase] initiate mark-failed error reference=%s err=%v", tx.Reference, mErr)
		}
		log.Printf("[payment][usecase] initiate declined reference=%s gateway=%s", tx.Reference, tx.Gateway)
		return InitiatePaymentResult{Transaction: tx}, fmt.Errorf("%w: initiating %s", ErrGatewayDeclined, tx.Reference)
	}

	if result.GatewayReference != "" {
		tx, err = u.repo.SetGatewayReference(ctx, tx.ID, result.GatewayReference)
		if err != nil {
			log.Printf("[payment][usecase] initiate set gateway reference failed reference=%s err=%v", tx.Reference, err)
			return InitiatePaymentResult{}, fmt.Errorf("%w: storing gateway reference for %s: %v", ErrPersistence, tx.Reference, err)
		}
	}
	log.Printf("[payment][usecase] initiate success reference=%s gateway_reference=%s", tx.Reference, tx.GatewayReference)

	return InitiatePaymentResult{Transaction: tx, Redirect: result.Redirect}, nil
}

// Verify re-queries the provider and settles a pending transaction. It is
// idempotent: a terminal transaction is re-verified against the provider
// (harmless) but its stored status never reverts; the guarded update simply
// does not apply.
func (u *PaymentUseCase) Verify(ctx context.Context, reference string) (entities.Transaction, error) {
	reference = strings.TrimSpace(reference)
	log.Printf("[payment][usecase] verify start reference=%s", reference)

	tx, err := u.repo.GetByReference(ctx, reference)
	if err != nil {
		return entities.Transaction{}, fmt.Errorf("%w: loading %s: %v", ErrPersistence, reference, err)
	}
	if tx.ID == "" {
		log.Printf("[payment][usecase] verify not-found reference=%s", reference)
		return entities.Transaction{}, ErrTransactionNotFound
	}

	gw, err := u.registry.Resolve(tx.Gateway)
	if err != nil {
		return entities.Transaction{}, err
	}

	// The provider reference is the lookup key when we have one; otherwise
	// the internal reference covers charges created with it before the
	// initiate response ever reached us.
	lookup := tx.GatewayReference
	if lookup == "" {
		lookup = tx.Reference
	}

	result, err := gw.VerifyPayment(ctx, lookup)
	if err != nil {
		log.Printf("[payment][usecase] verify gateway transport failure reference=%s err=%v", tx.Reference, err)
		return tx, err
	}

	if result.Succeeded {
		updated, applied, err := u.repo.MarkSuccessful(ctx, tx.ID, result.Raw, time.Now().UTC())
		if err != nil {
			log.Printf("[payment][usecase] verify mark-successful failed reference=%s err=%v", tx.Reference, err)
			return entities.Transaction{}, fmt.Errorf("%w: settling %s: %v", ErrPersistence, tx.Reference, err)
		}
		if !applied {
			log.Printf("[payment][usecase] verify no-op, already terminal reference=%s status=%s", tx.Reference, tx.Status)
			return tx, nil
		}
		log.Printf("[payment][usecase] verify success reference=%s", tx.Reference)
		return updated, nil
	}

	updated, applied, err := u.repo.MarkFailed(ctx, tx.ID, result.Raw)
	if err != nil {
		log.Printf("[payment][usecase] verify mark-failed failed reference=%s err=%v", tx.Reference, err)
		return entities.Transaction{}, fmt.Errorf("%w: settling %s: %v", ErrPersistence, tx.Reference, err)
	}
	if !applied {
		log.Printf("[payment][usecase] verify no-op, already terminal reference=%s status=%s", tx.Reference, tx.Status)
		return tx, nil
	}
	log.Printf("[payment][usecase] verify reported failure reference=%s", tx.Reference)
	return updated, fmt.Errorf("%w: verifying %s", ErrGatewayDeclined, tx.Reference)
}

// IngestWebhook authenticates and applies one provider notification.
//
// Signature verification happens before anything else; a rejected request
// mutates nothing. An authenticated event for a transaction we do not know
// is logged and swallowed: the provider gets its acknowledgement either way,
// because returning an error would only trigger a retry storm for an event
// this system can never apply.
func (u *PaymentUseCase) IngestWebhook(ctx context.Context, gateway string, req interfaces.WebhookRequest) error {
	log.Printf("[payment][webhook] ingest start gateway=%s body_len=%d", gateway, len(req.Body))

	gw, err := u.registry.Resolve(gateway)
	if err != nil {
		return err
	}

	event, err := gw.HandleWebhook(req)
	if err != nil {
		// Deliberately no detail about why verification failed.
		log.Printf("[payment][webhook] rejected gateway=%s err=%v", gateway, err)
		return err
	}

	if event.Kind == interfaces.WebhookEventIgnored {
		log.Printf("[payment][webhook] ignored event gateway=%s", gateway)
		return nil
	}
	if event.GatewayReference == "" {
		log.Printf("[payment][webhook] event without reference gateway=%s kind=%s", gateway, event.Kind)
		return nil
	}

	tx, err := u.findByAnyReference(ctx, event.GatewayReference)
	if err != nil {
		return fmt.Errorf("%w: locating webhook transaction: %v", ErrPersistence, err)
	}
	if tx.ID == "" {
		log.Printf("[payment][webhook] unknown transaction gateway=%s reference=%s", gateway, event.GatewayReference)
		return nil
	}

	switch event.Kind {
	case interfaces.WebhookEventChargeSucceeded:
		_, applied, err := u.repo.MarkSuccessful(ctx, tx.ID, event.Raw, time.Now().UTC())
		if err != nil {
			log.Printf("[payment][webhook] mark-successful failed reference=%s err=%v", tx.Reference, err)
			return fmt.Errorf("%w: applying webhook to %s: %v", ErrPersistence, tx.Reference, err)
		}
		if !applied {
			log.Printf("[payment][webhook] duplicate or late event reference=%s status=%s", tx.Reference, tx.Status)
			return nil
		}
		log.Printf("[payment][webhook] transaction successful reference=%s", tx.Reference)
	case interfaces.WebhookEventChargeFailed:
		_, applied, err := u.repo.MarkFailed(ctx, tx.ID, event.Raw)
		if err != nil {
			log.Printf("[payment][webhook] mark-failed failed reference=%s err=%v", tx.Reference, err)
			return fmt.Errorf("%w: applying webhook to %s: %v", ErrPersistence, tx.Reference, err)
		}
		if !applied {
			log.Printf("[payment][webhook] duplicate or late event reference=%s status=%s", tx.Reference, tx.Status)
			return nil
		}
		log.Printf("[payment][webhook] transaction failed reference=%s", tx.Reference)
	}

	return nil
}

// GetByReference returns the caller's own transaction. References belonging
// to other users are reported as not found, not as forbidden.
func (u *PaymentUseCase) GetByReference(ctx context.Context, userID, reference string) (entities.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return entities.Transaction{}, ErrTransactionNotFound
	}

	tx, err := u.repo.GetByReference(ctx, reference)
	if err != nil {
		return entities.Transaction{}, fmt.Errorf("%w: loading %s: %v", ErrPersistence, reference, err)
	}
	if tx.ID == "" || tx.UserID != userID {
		return entities.Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

// findByAnyReference resolves a webhook reference against the gateway
// reference first, then against the internal reference. Providers that echo
// our own reference back only ever match the second lookup.
func (u *PaymentUseCase) findByAnyReference(ctx context.Context, reference string) (entities.Transaction, error) {
	tx, err := u.repo.GetByGatewayReference(ctx, reference)
	if err != nil {
		return entities.Transaction{}, err
	}
	if tx.ID != "" {
		return tx, nil
	}
	return u.repo.GetByReference(ctx, reference)
}
