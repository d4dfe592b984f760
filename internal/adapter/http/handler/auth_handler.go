package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles the Google sign-in flow.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// SignIn handles GET /api/v1/auth/google. It redirects the browser to the
// provider consent screen.
func (h *AuthHandler) SignIn(c *gin.Context) {
	state := make([]byte, 16)
	if _, err := rand.Read(state); err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.authSvc.SignInURL(hex.EncodeToString(state)))
}

// Callback handles GET /api/v1/auth/google/callback. It exchanges the
// provider code, provisioning the user and wallet on first sign-in.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.Error(c, apperror.Validation("missing authorization code"))
		return
	}

	result, err := h.authSvc.CompleteSignIn(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// HealthCheck handles GET /health. It pings every registered dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
