package handlers

import (
	"errors"
	"log"
	"net/http"

	request "realtypay/internal/adapter/http/dto/request"
	response "realtypay/internal/adapter/http/dto/response"
	"realtypay/internal/usecase"
	"realtypay/internal/usecase/interfaces"
	"realtypay/pkg"

	"github.com/gin-gonic/gin"
)

// Identity keys set by the auth middleware.
const (
	ContextUserIDKey    = "user_id"
	ContextUserEmailKey = "user_email"
)

// PaymentHandler handles HTTP requests for payment transactions.

type PaymentHandler struct {
	usecase usecase.IPaymentUseCase
}

func NewPaymentHandler(uc usecase.IPaymentUseCase) *PaymentHandler {
	return &PaymentHandler{usecase: uc}
}

// Initiate starts a payment with the requested gateway.
//
// @Summary      Initiate a payment
// @Tags         payment
// @Accept       json
// @Produce      json
// @Param        payload body request.InitiatePaymentRequest true "payment request"
// @Success      200 {object} response.InitiatePaymentResponse
// @Failure      400 {object} pkg.HTTPError
// @Failure      422 {object} pkg.HTTPError
// @Failure      500 {object} pkg.HTTPError
// @Security     Bearer
// @Router       /payment/initiate [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	userID := c.GetString(ContextUserIDKey)
	email := c.GetString(ContextUserEmailKey)
	log.Printf("[payment][handler] initiate start user_id=%s", userID)

	var payload request.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("[payment][handler] initiate invalid payload user_id=%s err=%v", userID, err)
		appErr := pkg.NewDomainErrorSimple("VALIDATION_FAILED", "Invalid payment request", http.StatusUnprocessableEntity)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	result, err := h.usecase.Initiate(c.Request.Context(), payload.ToInput(userID, email))
	if err != nil {
		log.Printf("[payment][handler] initiate failed user_id=%s err=%v", userID, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	log.Printf("[payment][handler] initiate success user_id=%s reference=%s", userID, result.Transaction.Reference)

	c.JSON(http.StatusOK, response.FromInitiateResult(result))
}

// Verify settles a transaction against the gateway by internal reference.
//
// @Summary      Verify a payment
// @Tags         payment
// @Produce      json
// @Param        reference path string true "internal transaction reference"
// @Success      200 {object} response.VerifyPaymentResponse
// @Failure      400 {object} pkg.HTTPError
// @Failure      404 {object} pkg.HTTPError
// @Security     Bearer
// @Router       /payment/verify/{reference} [get]
func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Param("reference")
	log.Printf("[payment][handler] verify start reference=%s", reference)

	tx, err := h.usecase.Verify(c.Request.Context(), reference)
	if err != nil {
		log.Printf("[payment][handler] verify failed reference=%s err=%v", reference, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	log.Printf("[payment][handler] verify success reference=%s status=%s", reference, tx.Status)

	c.JSON(http.StatusOK, response.VerifyPaymentResponse{
		Message: "Payment successful",
		Data:    response.FromTransaction(tx),
	})
}

// Webhook ingests a provider notification.
//
// Authenticated by per-provider signature, not by user session. Once the
// signature and payload check out the response is always 200, even for
// transactions this system does not recognize: an error status would only
// make the provider retry an event we can never apply.
//
// @Summary      Payment gateway webhook
// @Tags         payment
// @Accept       json
// @Produce      json
// @Param        gateway path string true "gateway name"
// @Success      200 {object} map[string]string
// @Failure      400 {object} pkg.HTTPError
// @Router       /payment/webhook/{gateway} [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	gateway := c.Param("gateway")

	body, err := c.GetRawData()
	if err != nil {
		log.Printf("[payment][webhook] body read failed gateway=%s err=%v", gateway, err)
		appErr := pkg.NewDomainErrorSimple("INVALID_WEBHOOK", "Invalid webhook data", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	req := interfaces.WebhookRequest{Body: body, Header: c.Request.Header}
	if err := h.usecase.IngestWebhook(c.Request.Context(), gateway, req); err != nil {
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook received and processed"})
}

// GetTransaction returns the caller's stored transaction by reference.
//
// @Summary      Get a transaction
// @Tags         payment
// @Produce      json
// @Param        reference path string true "internal transaction reference"
// @Success      200 {object} response.TransactionResponse
// @Failure      404 {object} pkg.HTTPError
// @Security     Bearer
// @Router       /payment/transactions/{reference} [get]
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	userID := c.GetString(ContextUserIDKey)
	reference := c.Param("reference")

	tx, err := h.usecase.GetByReference(c.Request.Context(), userID, reference)
	if err != nil {
		log.Printf("[payment][handler] get failed user_id=%s reference=%s err=%v", userID, reference, err)
		appErr := mapPaymentError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	c.JSON(http.StatusOK, response.FromTransaction(tx))
}

func mapPaymentError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidAmount),
		errors.Is(err, usecase.ErrInvalidCurrency),
		errors.Is(err, usecase.ErrInvalidPayable):
		return pkg.NewDomainErrorSimple("VALIDATION_FAILED", "Invalid payment request", http.StatusUnprocessableEntity)
	case errors.Is(err, interfaces.ErrUnsupportedGateway):
		return pkg.NewDomainErrorSimple("GATEWAY_NOT_SUPPORTED", "Payment gateway not supported", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrTransactionNotFound):
		return pkg.NewDomainErrorSimple("TRANSACTION_NOT_FOUND", "Transaction not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrGatewayDeclined):
		return pkg.NewDomainErrorSimple("PAYMENT_FAILED", "Payment failed", http.StatusBadRequest)
	case errors.Is(err, interfaces.ErrGatewayTransport):
		return pkg.NewDomainErrorSimple("GATEWAY_UNREACHABLE", "Payment gateway unreachable, please retry", http.StatusBadGateway)
	case errors.Is(err, interfaces.ErrInvalidSignature), errors.Is(err, interfaces.ErrMalformedWebhook):
		return pkg.NewDomainErrorSimple("INVALID_WEBHOOK", "Invalid webhook data", http.StatusBadRequest)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}
