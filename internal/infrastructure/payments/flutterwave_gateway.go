package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"realtypay/internal/usecase/interfaces"

	"github.com/shopspring/decimal"
)

const flutterwaveHashHeader = "verif-hash"

var ErrMissingFlutterwaveSecretKey = errors.New("missing FLUTTERWAVE_SECRET_KEY")

type FlutterwaveConfig struct {
	SecretKey string
	// WebhookSecret keys the HMAC-SHA256 over inbound webhook bodies.
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// FlutterwaveGateway talks to the Flutterwave v3 REST API.
//
// Unlike Paystack, the initiate response carries no provider transaction id,
// so the gateway reference stays empty until the webhook or a verify call
// reports one; correlation falls back to the internal reference (tx_ref).
type FlutterwaveGateway struct {
	cfg    FlutterwaveConfig
	client *http.Client
}

var _ interfaces.IPaymentGateway = (*FlutterwaveGateway)(nil)

func NewFlutterwaveGateway(cfg FlutterwaveConfig) (*FlutterwaveGateway, error) {
	if cfg.SecretKey == "" {
		log.Printf("[payment][flutterwave] missing secret key")
		return nil, ErrMissingFlutterwaveSecretKey
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.SecretKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.flutterwave.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &FlutterwaveGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type flutterwaveEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (g *FlutterwaveGateway) InitiatePayment(ctx context.Context, data interfaces.PaymentData) (interfaces.GatewayResult, error) {
	log.Printf("[payment][flutterwave] initiate start reference=%s amount_minor=%d currency=%s", data.Reference, data.AmountMinor, data.Currency)

	// Flutterwave takes amounts in major units.
	payload := map[string]any{
		"tx_ref":   data.Reference,
		"amount":   decimal.New(data.AmountMinor, -2).String(),
		"currency": data.Currency,
		"customer": map[string]any{"email": data.Email},
		"meta":     data.Metadata,
	}
	if data.CallbackURL != "" {
		payload["redirect_url"] = data.CallbackURL
	}
	if data.Description != "" {
		payload["customizations"] = map[string]any{"description": data.Description}
	}

	body, env, err := g.do(ctx, http.MethodPost, "/v3/payments", payload)
	if err != nil {
		return interfaces.GatewayResult{}, err
	}

	if env.Status != "success" {
		log.Printf("[payment][flutterwave] initiate declined reference=%s message=%s", data.Reference, env.Message)
		return interfaces.GatewayResult{Succeeded: false, Raw: body}, nil
	}

	var init struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(env.Data, &init); err != nil {
		log.Printf("[payment][flutterwave] initiate data unmarshal failed reference=%s err=%v", data.Reference, err)
		return interfaces.GatewayResult{Succeeded: false, Raw: body}, nil
	}
	log.Printf("[payment][flutterwave] initiate success reference=%s", data.Reference)

	return interfaces.GatewayResult{
		Succeeded: true,
		Redirect: map[string]any{
			"link":   init.Link,
			"tx_ref": data.Reference,
		},
		Raw: body,
	}, nil
}

func (g *FlutterwaveGateway) VerifyPayment(ctx context.Context, reference string) (interfaces.GatewayResult, error) {
	log.Printf("[payment][flutterwave] verify start reference=%s", reference)

	path := "/v3/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	body, env, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return interfaces.GatewayResult{}, err
	}

	var data struct {
		Status string `json:"status"`
		FlwRef string `json:"flw_ref"`
		TxRef  string `json:"tx_ref"`
	}
	if env.Status == "success" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			log.Printf("[payment][flutterwave] verify data unmarshal failed reference=%s err=%v", reference, err)
		}
	}

	succeeded := env.Status == "success" && data.Status == "successful"
	log.Printf("[payment][flutterwave] verify done reference=%s charge_status=%s succeeded=%t", reference, data.Status, succeeded)

	return interfaces.GatewayResult{
		Succeeded:        succeeded,
		GatewayReference: data.FlwRef,
		Raw:              body,
	}, nil
}

type flutterwaveWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Status string `json:"status"`
		TxRef  string `json:"tx_ref"`
		FlwRef string `json:"flw_ref"`
	} `json:"data"`
}

func (g *FlutterwaveGateway) HandleWebhook(req interfaces.WebhookRequest) (interfaces.WebhookEvent, error) {
	signature := req.Header.Get(flutterwaveHashHeader)

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(req.Body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return interfaces.WebhookEvent{}, interfaces.ErrInvalidSignature
	}

	var payload flutterwaveWebhookPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return interfaces.WebhookEvent{}, interfaces.ErrMalformedWebhook
	}

	kind := interfaces.WebhookEventIgnored
	if payload.Event == "charge.completed" {
		switch payload.Data.Status {
		case "successful":
			kind = interfaces.WebhookEventChargeSucceeded
		case "failed":
			kind = interfaces.WebhookEventChargeFailed
		}
	}

	// tx_ref is our internal reference; prefer it so lookup succeeds even
	// when no flw_ref was ever stored locally.
	reference := payload.Data.TxRef
	if reference == "" {
		reference = payload.Data.FlwRef
	}

	return interfaces.WebhookEvent{
		Kind:             kind,
		GatewayReference: reference,
		Raw:              json.RawMessage(req.Body),
	}, nil
}

func (g *FlutterwaveGateway) do(ctx context.Context, method, path string, payload any) (json.RawMessage, flutterwaveEnvelope, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, flutterwaveEnvelope{}, fmt.Errorf("flutterwave: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, flutterwaveEnvelope{}, fmt.Errorf("flutterwave: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, flutterwaveEnvelope{}, fmt.Errorf("flutterwave: %s %s: %w: %v", method, path, interfaces.ErrGatewayTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, flutterwaveEnvelope{}, fmt.Errorf("flutterwave: reading response: %w: %v", interfaces.ErrGatewayTransport, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, flutterwaveEnvelope{}, fmt.Errorf("flutterwave: %s %s: %w: status %d", method, path, interfaces.ErrGatewayTransport, resp.StatusCode)
	}

	var env flutterwaveEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[payment][flutterwave] non-json response status=%d body_len=%d", resp.StatusCode, len(body))
		return body, flutterwaveEnvelope{}, nil
	}
	return body, env, nil
}
