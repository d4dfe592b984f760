package handler

import (
	"io"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderGatewaySignature carries the gateway's HMAC over the webhook body.
const HeaderGatewaySignature = "x-paystack-signature"

// DepositHandler handles deposit initialization, status, the gateway
// redirect callback, and the settlement webhook.
type DepositHandler struct {
	depositSvc ports.DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(depositSvc ports.DepositService) *DepositHandler {
	return &DepositHandler{depositSvc: depositSvc}
}

// Initiate handles POST /api/v1/wallet/deposit.
func (h *DepositHandler) Initiate(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated(""))
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.depositSvc.Initiate(c.Request.Context(), caller, req.Amount, c.GetHeader("Origin"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Deposit initialized", result)
}

// Status handles GET /api/v1/wallet/deposit/:reference/status.
func (h *DepositHandler) Status(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated(""))
		return
	}

	result, err := h.depositSvc.Status(c.Request.Context(), caller, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// Callback handles GET /api/v1/wallet/deposit/callback, the browser redirect
// after the gateway checkout page. It reconciles an unsuccessful charge but
// never credits; crediting happens only through the webhook.
func (h *DepositHandler) Callback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		response.Error(c, apperror.Validation("missing reference"))
		return
	}

	result, err := h.depositSvc.ConfirmCallback(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// Webhook handles POST /api/v1/wallet/paystack/webhook. The signature covers the
// raw body, so the body is read before any JSON decoding. Anything past
// signature verification is acknowledged to stop gateway redelivery.
func (h *DepositHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	signature := c.GetHeader(HeaderGatewaySignature)
	if err := h.depositSvc.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		response.Error(c, err)
		return
	}

	response.Ack(c)
}
