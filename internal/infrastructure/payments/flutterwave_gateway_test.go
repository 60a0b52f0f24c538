package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"realtypay/internal/usecase/interfaces"
)

const flutterwaveTestSecret = "FLWSECK_TEST-secret"

func newFlutterwaveForTest(t *testing.T, baseURL string) *FlutterwaveGateway {
	t.Helper()
	gw, err := NewFlutterwaveGateway(FlutterwaveConfig{SecretKey: flutterwaveTestSecret, BaseURL: baseURL})
	if err != nil {
		t.Fatalf("constructing gateway: %v", err)
	}
	return gw
}

func flutterwaveSign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(flutterwaveTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestFlutterwaveGateway_InitiatePayment(t *testing.T) {
	t.Run("success leaves gateway reference empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v3/payments" {
				t.Fatalf("unexpected path: %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			var payload map[string]any
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("request body not json: %v", err)
			}
			// 10000 minor units arrive as "100" major units.
			if payload["amount"] != "100" {
				t.Fatalf("expected major-unit amount 100, got %v", payload["amount"])
			}
			if payload["tx_ref"] != "ref-internal" {
				t.Fatalf("unexpected tx_ref: %v", payload["tx_ref"])
			}
			w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/xyz"}}`))
		}))
		defer server.Close()

		gw := newFlutterwaveForTest(t, server.URL)
		result, err := gw.InitiatePayment(context.Background(), interfaces.PaymentData{
			AmountMinor: 10000,
			Currency:    "NGN",
			Reference:   "ref-internal",
			Email:       "payer@example.com",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Succeeded {
			t.Fatal("expected success")
		}
		if result.GatewayReference != "" {
			t.Fatalf("initiate carries no provider reference, got %q", result.GatewayReference)
		}
		if result.Redirect["link"] != "https://checkout.flutterwave.com/v3/hosted/pay/xyz" {
			t.Fatalf("unexpected redirect: %v", result.Redirect)
		}
	})

	t.Run("error envelope is a decline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":"error","message":"Invalid currency"}`))
		}))
		defer server.Close()

		gw := newFlutterwaveForTest(t, server.URL)
		result, err := gw.InitiatePayment(context.Background(), interfaces.PaymentData{Reference: "ref-x", Currency: "XXX"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Succeeded {
			t.Fatal("expected declined result")
		}
	})
}

func TestFlutterwaveGateway_VerifyPayment(t *testing.T) {
	t.Run("successful charge reports provider reference", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v3/transactions/verify_by_reference" {
				t.Fatalf("unexpected path: %s", r.URL.Path)
			}
			if r.URL.Query().Get("tx_ref") != "ref-internal" {
				t.Fatalf("unexpected tx_ref: %s", r.URL.Query().Get("tx_ref"))
			}
			w.Write([]byte(`{"status":"success","message":"Transaction fetched successfully","data":{"status":"successful","flw_ref":"FLW-MOCK-1","tx_ref":"ref-internal"}}`))
		}))
		defer server.Close()

		gw := newFlutterwaveForTest(t, server.URL)
		result, err := gw.VerifyPayment(context.Background(), "ref-internal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Succeeded {
			t.Fatal("expected success")
		}
		if result.GatewayReference != "FLW-MOCK-1" {
			t.Fatalf("unexpected gateway reference: %q", result.GatewayReference)
		}
	})

	t.Run("failed charge", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success","message":"Transaction fetched successfully","data":{"status":"failed","flw_ref":"FLW-MOCK-2","tx_ref":"ref-internal"}}`))
		}))
		defer server.Close()

		gw := newFlutterwaveForTest(t, server.URL)
		result, err := gw.VerifyPayment(context.Background(), "ref-internal")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Succeeded {
			t.Fatal("failed charge must not verify as success")
		}
	})

	t.Run("server error is transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		gw := newFlutterwaveForTest(t, server.URL)
		_, err := gw.VerifyPayment(context.Background(), "ref-internal")
		if !errors.Is(err, interfaces.ErrGatewayTransport) {
			t.Fatalf("expected ErrGatewayTransport, got %v", err)
		}
	})
}

func TestFlutterwaveGateway_HandleWebhook(t *testing.T) {
	gw := newFlutterwaveForTest(t, "http://unused")

	t.Run("charge completed successful", func(t *testing.T) {
		body := []byte(`{"event":"charge.completed","data":{"status":"successful","tx_ref":"ref-internal","flw_ref":"FLW-MOCK-1"}}`)
		header := http.Header{}
		header.Set("verif-hash", flutterwaveSign(body))

		event, err := gw.HandleWebhook(interfaces.WebhookRequest{Body: body, Header: header})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Kind != interfaces.WebhookEventChargeSucceeded {
			t.Fatalf("unexpected kind: %s", event.Kind)
		}
		if event.GatewayReference != "ref-internal" {
			t.Fatalf("expected tx_ref preferred for lookup, got %q", event.GatewayReference)
		}
	})

	t.Run("charge completed failed", func(t *testing.T) {
		body := []byte(`{"event":"charge.completed","data":{"status":"failed","tx_ref":"ref-internal"}}`)
		header := http.Header{}
		header.Set("verif-hash", flutterwaveSign(body))

		event, err := gw.HandleWebhook(interfaces.WebhookRequest{Body: body, Header: header})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Kind != interfaces.WebhookEventChargeFailed {
			t.Fatalf("unexpected kind: %s", event.Kind)
		}
	})

	t.Run("wrong hash", func(t *testing.T) {
		body := []byte(`{"event":"charge.completed","data":{"status":"successful","tx_ref":"ref-internal"}}`)
		header := http.Header{}
		header.Set("verif-hash", "not-the-hash")

		_, err := gw.HandleWebhook(interfaces.WebhookRequest{Body: body, Header: header})
		if !errors.Is(err, interfaces.ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("other event is ignored", func(t *testing.T) {
		body := []byte(`{"event":"transfer.completed","data":{"status":"successful","tx_ref":"ref-internal"}}`)
		header := http.Header{}
		header.Set("verif-hash", flutterwaveSign(body))

		event, err := gw.HandleWebhook(interfaces.WebhookRequest{Body: body, Header: header})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if event.Kind != interfaces.WebhookEventIgnored {
			t.Fatalf("unexpected kind: %s", event.Kind)
		}
	})
}
