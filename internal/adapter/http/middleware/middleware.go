package middleware

import (
	"net/http"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Header carrying an API key credential.
	HeaderAPIKey = "X-API-Key"

	// Context keys
	CtxCaller = "caller"
)

// Authenticate resolves the caller from either a bearer token or an API
// key and stores the resulting identity in the request context. A bearer
// token takes precedence when both credentials are present.
func Authenticate(authSvc ports.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bearer string
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			bearer = strings.TrimPrefix(h, "Bearer ")
		}
		apiKey := c.GetHeader(HeaderAPIKey)

		caller, err := authSvc.Authenticate(c.Request.Context(), bearer, apiKey)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("authentication rejected")
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxCaller, caller)
		c.Next()
	}
}

// CallerFrom extracts the authenticated caller placed by Authenticate.
func CallerFrom(c *gin.Context) (*domain.Caller, bool) {
	v, ok := c.Get(CtxCaller)
	if !ok {
		return nil, false
	}
	caller, ok := v.(*domain.Caller)
	return caller, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
