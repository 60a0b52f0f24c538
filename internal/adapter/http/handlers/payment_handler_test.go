package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mock_usecase "realtypay/internal/adapter/http/handlers/mocks"
	"realtypay/internal/domain/entities"
	"realtypay/internal/usecase"
	"realtypay/internal/usecase/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withIdentity(userID, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserEmailKey, email)
	}
}

func newTestRouter(h *PaymentHandler) *gin.Engine {
	r := gin.New()
	auth := withIdentity("user-1", "payer@example.com")
	r.POST("/payment/initiate", auth, h.Initiate)
	r.GET("/payment/verify/:reference", auth, h.Verify)
	r.GET("/payment/transactions/:reference", auth, h.GetTransaction)
	r.POST("/payment/webhook/:gateway", h.Webhook)
	return r
}

func initiateBody() string {
	return `{"amount":100.00,"currency":"NGN","payment_gateway":"paystack","item_id":42,"item_type":"property"}`
}

func TestPaymentHandler_Initiate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().Initiate(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in usecase.InitiatePaymentInput) (usecase.InitiatePaymentResult, error) {
				if in.UserID != "user-1" || in.Email != "payer@example.com" {
					t.Fatalf("identity not propagated: %+v", in)
				}
				if !in.Amount.Equal(decimal.NewFromFloat(100.00)) {
					t.Fatalf("unexpected amount: %s", in.Amount)
				}
				return usecase.InitiatePaymentResult{
					Transaction: entities.Transaction{
						Reference: "ref-1",
						Status:    entities.TransactionStatusPending,
					},
					Redirect: map[string]any{"authorization_url": "https://checkout.example/abc"},
				}, nil
			})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/initiate", strings.NewReader(initiateBody()))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json response: %v", err)
		}
		if resp["transaction_reference"] != "ref-1" {
			t.Fatalf("unexpected response: %v", resp)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/initiate", strings.NewReader(`{"amount":-5}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", w.Code)
		}
		assertErrorCode(t, w.Body.Bytes(), "VALIDATION_FAILED")
	})

	t.Run("unsupported gateway", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().Initiate(gomock.Any(), gomock.Any()).Return(usecase.InitiatePaymentResult{}, interfaces.ErrUnsupportedGateway)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/initiate", strings.NewReader(initiateBody()))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		assertErrorCode(t, w.Body.Bytes(), "GATEWAY_NOT_SUPPORTED")
	})

	t.Run("gateway declined", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().Initiate(gomock.Any(), gomock.Any()).Return(usecase.InitiatePaymentResult{}, fmt.Errorf("%w: initiating ref-1", usecase.ErrGatewayDeclined))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/initiate", strings.NewReader(initiateBody()))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		assertErrorCode(t, w.Body.Bytes(), "PAYMENT_FAILED")
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().Initiate(gomock.Any(), gomock.Any()).Return(usecase.InitiatePaymentResult{}, fmt.Errorf("%w: connection refused", interfaces.ErrGatewayTransport))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/initiate", strings.NewReader(initiateBody()))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
		assertErrorCode(t, w.Body.Bytes(), "GATEWAY_UNREACHABLE")
	})
}

func TestPaymentHandler_Verify(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().Verify(gomock.Any(), "ref-1").Return(entities.Transaction{
			ID:        "tx-1",
			Reference: "ref-1",
			Amount:    decimal.NewFromFloat(100.00),
			Status:    entities.TransactionStatusSuccessful,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/payment/verify/ref-1", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Message string `json:"message"`
			Data    struct {
				Status string `json:"status"`
				Amount string `json:"amount"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json response: %v", err)
		}
		if resp.Data.Status != "successful" || resp.Data.Amount != "100.00" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().Verify(gomock.Any(), "nope").Return(entities.Transaction{}, usecase.ErrTransactionNotFound)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/payment/verify/nope", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		assertErrorCode(t, w.Body.Bytes(), "TRANSACTION_NOT_FOUND")
	})
}

func TestPaymentHandler_Webhook(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		body := `{"event":"charge.success","data":{"reference":"ref_123"}}`
		uc.EXPECT().IngestWebhook(gomock.Any(), "paystack", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, req interfaces.WebhookRequest) error {
				if !bytes.Equal(req.Body, []byte(body)) {
					t.Fatal("raw body not forwarded verbatim")
				}
				if req.Header.Get("X-Paystack-Signature") == "" {
					t.Fatal("signature header not forwarded")
				}
				return nil
			})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", strings.NewReader(body))
		req.Header.Set("X-Paystack-Signature", "deadbeef")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().IngestWebhook(gomock.Any(), "paystack", gomock.Any()).Return(interfaces.ErrInvalidSignature)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", strings.NewReader(`{}`))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		assertErrorCode(t, w.Body.Bytes(), "INVALID_WEBHOOK")
	})

	t.Run("unknown transaction still acknowledged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		// The usecase swallows unknown references, so the handler sees nil.
		uc.EXPECT().IngestWebhook(gomock.Any(), "paystack", gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", strings.NewReader(`{"event":"charge.success","data":{"reference":"ghost"}}`))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})
}

func TestPaymentHandler_GetTransaction(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().GetByReference(gomock.Any(), "user-1", "ref-1").Return(entities.Transaction{
			ID:        "tx-1",
			Reference: "ref-1",
			UserID:    "user-1",
			Amount:    decimal.NewFromFloat(250.50),
			Status:    entities.TransactionStatusPending,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/payment/transactions/ref-1", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("someone else's transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		uc := mock_usecase.NewMockIPaymentUseCase(ctrl)
		router := newTestRouter(NewPaymentHandler(uc))

		uc.EXPECT().GetByReference(gomock.Any(), "user-1", "ref-2").Return(entities.Transaction{}, usecase.ErrTransactionNotFound)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/payment/transactions/ref-2", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

func assertErrorCode(t *testing.T, body []byte, want string) {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error.Code != want {
		t.Fatalf("expected error code %s, got %s", want, resp.Error.Code)
	}
}
