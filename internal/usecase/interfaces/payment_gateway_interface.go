package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrGatewayTransport marks network-level failures talking to a provider
	// (connection refused, timeout, 5xx). Transient: the caller may retry
	// the whole operation. Distinct from a provider-reported decline, which
	// is not an error at this interface.
	ErrGatewayTransport = errors.New("payment gateway unreachable")

	// ErrInvalidSignature is returned by HandleWebhook when the recomputed
	// HMAC over the received body does not match the signature header. The
	// payload must not be trusted in any way after this.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedWebhook is returned when an authenticated webhook body
	// cannot be parsed into a provider event.
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)

// PaymentData is the provider-agnostic charge request assembled by the
// orchestrator. Reference is the internally generated transaction reference
// and is sent as the provider-visible reference, so verification and webhook
// delivery can always be correlated back to the local record.
type PaymentData struct {
	AmountMinor int64
	Currency    string
	Reference   string
	Email       string
	CallbackURL string
	Description string
	Metadata    map[string]any
}

// GatewayResult is the normalized outcome of an initiate or verify call.
// Succeeded=false is an ordinary business failure (declined, invalid params)
// and is never reported as an error; only transport failures are.
type GatewayResult struct {
	Succeeded        bool
	GatewayReference string
	// Redirect carries the provider's redirect/session payload from a
	// successful initiate (authorization URL, access code, ...).
	Redirect map[string]any
	Raw      json.RawMessage
}

// WebhookRequest is the raw inbound notification exactly as received.
// Body must be the unmodified bytes the provider signed.
type WebhookRequest struct {
	Body   []byte
	Header http.Header
}

type WebhookEventKind string

const (
	WebhookEventChargeSucceeded WebhookEventKind = "charge_succeeded"
	WebhookEventChargeFailed    WebhookEventKind = "charge_failed"
	WebhookEventIgnored         WebhookEventKind = "ignored"
)

// WebhookEvent is a provider notification normalized after signature
// verification. GatewayReference carries whatever reference the provider
// included; for providers that echo our own reference back it equals the
// internal transaction reference.
type WebhookEvent struct {
	Kind             WebhookEventKind
	GatewayReference string
	Raw              json.RawMessage
}

// IPaymentGateway abstracts one external payment provider.
//
// Implementations are stateless capability objects configured with provider
// credentials at construction. Every outbound call is bounded by the HTTP
// client timeout threaded in from config.
type IPaymentGateway interface {
	InitiatePayment(ctx context.Context, data PaymentData) (GatewayResult, error)
	// VerifyPayment queries the provider for the current charge status.
	// Callers pass the stored gateway reference, or the internal reference
	// when no gateway reference was ever recorded.
	VerifyPayment(ctx context.Context, reference string) (GatewayResult, error)
	// HandleWebhook verifies authenticity of the raw request before any of
	// its content is trusted, then maps it to a normalized event. Returns
	// ErrInvalidSignature or ErrMalformedWebhook without partial results.
	HandleWebhook(req WebhookRequest) (WebhookEvent, error)
}
