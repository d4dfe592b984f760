package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	DepositSvc     ports.DepositService
	APIKeySvc      ports.APIKeyService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	Metrics        *middleware.Metrics        // nil = metrics disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.BodyLimit(1 << 20)) // 1 MB request body limit
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument())
	}

	// Health check verifies PostgreSQL and Redis connectivity.
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.GET("/google", authHandler.SignIn)
		auth.GET("/google/callback", authHandler.Callback)
	}

	depositHandler := NewDepositHandler(deps.DepositSvc)

	// Gateway-facing routes. The webhook authenticates by body signature,
	// the checkout redirect carries only a reference and never credits.
	v1.POST("/wallet/paystack/webhook", rl("webhook"), depositHandler.Webhook)
	v1.GET("/wallet/deposit/callback", depositHandler.Callback)

	// --- Authenticated routes (bearer token or API key) ---
	authn := middleware.Authenticate(deps.AuthSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	wallet := v1.Group("/wallet", authn)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/transfer", rl("transfer"), walletHandler.Transfer)
		wallet.POST("/deposit", rl("deposit"), depositHandler.Initiate)
		wallet.GET("/deposit/:reference/status", rl("wallet"), depositHandler.Status)
	}

	keyHandler := NewAPIKeyHandler(deps.APIKeySvc)
	keys := v1.Group("/keys", authn)
	{
		keys.POST("", rl("keys"), keyHandler.Create)
		keys.POST("/rollover", rl("keys"), keyHandler.Rollover)
	}

	return r
}
