package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func authedRouter(authSvc *mocks.MockAuthService) *gin.Engine {
	r := gin.New()
	r.Use(Authenticate(authSvc, zerolog.Nop()))
	r.GET("/me", func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			response.Error(c, apperror.InternalError(nil))
			return
		}
		response.OK(c, gin.H{"user_id": caller.UserID.String(), "kind": string(caller.Kind)})
	})
	return r
}

func TestAuthenticate_BearerToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	caller := &domain.Caller{UserID: uuid.New(), Kind: domain.CallerKindUser}
	mockAuth.EXPECT().Authenticate(gomock.Any(), "tok123", "").Return(caller, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	authedRouter(mockAuth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), caller.UserID.String())
}

func TestAuthenticate_APIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	caller := &domain.Caller{UserID: uuid.New(), Kind: domain.CallerKindService}
	mockAuth.EXPECT().Authenticate(gomock.Any(), "", "sk_live_abc").Return(caller, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderAPIKey, "sk_live_abc")
	authedRouter(mockAuth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "service")
}

func TestAuthenticate_MalformedAuthorizationHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	// Non-bearer scheme is ignored, leaving no credentials.
	mockAuth.EXPECT().Authenticate(gomock.Any(), "", "").
		Return(nil, apperror.ErrUnauthenticated(""))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	authedRouter(mockAuth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_Rejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	mockAuth.EXPECT().Authenticate(gomock.Any(), "bad", "").
		Return(nil, apperror.ErrUnauthenticated("Invalid or expired token"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bad")
	authedRouter(mockAuth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := redisStore.NewRateLimitStore(client)

	r := gin.New()
	rule := RateLimitRule{Limit: 2, Window: time.Minute}
	r.GET("/ping", RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := redisStore.NewRateLimitStore(client)
	mr.Close() // store unreachable

	r := gin.New()
	rule := RateLimitRule{Limit: 1, Window: time.Minute}
	r.GET("/ping", RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_Panic(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}
