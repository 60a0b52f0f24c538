package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"realtypay/internal/usecase/interfaces"
)

const paystackSignatureHeader = "x-paystack-signature"

var ErrMissingPaystackSecretKey = errors.New("missing PAYSTACK_SECRET_KEY")

// PaystackConfig carries the credentials and limits for one Paystack
// account. Secrets arrive here explicitly from the process config; the
// client never reads the environment.
type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// PaystackGateway talks to the Paystack REST API.
//
// Webhooks are authenticated with an HMAC-SHA512 of the exact raw body,
// keyed with the account secret, carried in the x-paystack-signature header.
type PaystackGateway struct {
	cfg    PaystackConfig
	client *http.Client
}

var _ interfaces.IPaymentGateway = (*PaystackGateway)(nil)

func NewPaystackGateway(cfg PaystackConfig) (*PaystackGateway, error) {
	if cfg.SecretKey == "" {
		log.Printf("[payment][paystack] missing secret key")
		return nil, ErrMissingPaystackSecretKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &PaystackGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	PaidAt    string `json:"paid_at"`
}

func (g *PaystackGateway) InitiatePayment(ctx context.Context, data interfaces.PaymentData) (interfaces.GatewayResult, error) {
	log.Printf("[payment][paystack] initialize start reference=%s amount_minor=%d currency=%s", data.Reference, data.AmountMinor, data.Currency)

	payload := map[string]any{
		"amount":    data.AmountMinor,
		"currency":  data.Currency,
		"reference": data.Reference,
		"email":     data.Email,
		"metadata":  data.Metadata,
	}
	if data.CallbackURL != "" {
		payload["callback_url"] = data.CallbackURL
	}

	body, env, err := g.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return interfaces.GatewayResult{}, err
	}

	if !env.Status {
		log.Printf("[payment][paystack] initialize declined reference=%s message=%s", data.Reference, env.Message)
		return interfaces.GatewayResult{Succeeded: false, Raw: body}, nil
	}

	var init paystackInitializeData
	if err := json.Unmarshal(env.Data, &init); err != nil {
		log.Printf("[payment][paystack] initialize data unmarshal failed reference=%s err=%v", data.Reference, err)
		return interfaces.GatewayResult{Succeeded: false, Raw: body}, nil
	}
	log.Printf("[payment][paystack] initialize success reference=%s gateway_reference=%s", data.Reference, init.Reference)

	return interfaces.GatewayResult{
		Succeeded:        true,
		GatewayReference: init.Reference,
		Redirect: map[string]any{
			"authorization_url": init.AuthorizationURL,
			"access_code":       init.AccessCode,
			"reference":         init.Reference,
		},
		Raw: body,
	}, nil
}

func (g *PaystackGateway) VerifyPayment(ctx context.Context, reference string) (interfaces.GatewayResult, error) {
	log.Printf("[payment][paystack] verify start reference=%s", reference)

	body, env, err := g.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return interfaces.GatewayResult{}, err
	}

	var data paystackVerifyData
	if env.Status {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			log.Printf("[payment][paystack] verify data unmarshal failed reference=%s err=%v", reference, err)
		}
	}

	succeeded := env.Status && data.Status == "success"
	log.Printf("[payment][paystack] verify done reference=%s charge_status=%s succeeded=%t", reference, data.Status, succeeded)

	return interfaces.GatewayResult{
		Succeeded:        succeeded,
		GatewayReference: data.Reference,
		Raw:              body,
	}, nil
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

func (g *PaystackGateway) HandleWebhook(req interfaces.WebhookRequest) (interfaces.WebhookEvent, error) {
	signature := req.Header.Get(paystackSignatureHeader)

	mac := hmac.New(sha512.New, []byte(g.cfg.SecretKey))
	mac.Write(req.Body)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time compare; the reason for a mismatch is never reported.
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return interfaces.WebhookEvent{}, interfaces.ErrInvalidSignature
	}

	var payload paystackWebhookPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return interfaces.WebhookEvent{}, interfaces.ErrMalformedWebhook
	}

	kind := interfaces.WebhookEventIgnored
	switch payload.Event {
	case "charge.success":
		kind = interfaces.WebhookEventChargeSucceeded
	case "charge.failed", "charge.error":
		kind = interfaces.WebhookEventChargeFailed
	}

	return interfaces.WebhookEvent{
		Kind:             kind,
		GatewayReference: payload.Data.Reference,
		Raw:              json.RawMessage(req.Body),
	}, nil
}

// do performs one bounded API call. Network errors, timeouts and 5xx
// responses all surface as ErrGatewayTransport; everything else is decoded
// into the standard Paystack envelope.
func (g *PaystackGateway) do(ctx context.Context, method, path string, payload any) (json.RawMessage, paystackEnvelope, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, paystackEnvelope{}, fmt.Errorf("paystack: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, paystackEnvelope{}, fmt.Errorf("paystack: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, paystackEnvelope{}, fmt.Errorf("paystack: %s %s: %w: %v", method, path, interfaces.ErrGatewayTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, paystackEnvelope{}, fmt.Errorf("paystack: reading response: %w: %v", interfaces.ErrGatewayTransport, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, paystackEnvelope{}, fmt.Errorf("paystack: %s %s: %w: status %d", method, path, interfaces.ErrGatewayTransport, resp.StatusCode)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[payment][paystack] non-json response status=%d body_len=%d", resp.StatusCode, len(body))
		return body, paystackEnvelope{}, nil
	}
	return body, env, nil
}
