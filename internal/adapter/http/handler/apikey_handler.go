package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIKeyHandler handles API key issuance and rollover.
type APIKeyHandler struct {
	keySvc ports.APIKeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keySvc ports.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keySvc: keySvc}
}

// Create handles POST /api/v1/keys.
func (h *APIKeyHandler) Create(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated(""))
		return
	}

	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	permissions := make([]domain.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		permissions = append(permissions, domain.Permission(p))
	}

	key, err := h.keySvc.Create(c.Request.Context(), caller, req.Name, permissions, req.ExpiresIn)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "API key created. The secret is shown only once.", key)
}

// Rollover handles POST /api/v1/keys/rollover.
func (h *APIKeyHandler) Rollover(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated(""))
		return
	}

	var req dto.RolloverKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	keyID, err := uuid.Parse(req.ExpiredKeyID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid key id"))
		return
	}

	key, err := h.keySvc.Rollover(c.Request.Context(), caller, keyID, req.ExpiresIn)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "API key rolled over. The secret is shown only once.", key)
}
