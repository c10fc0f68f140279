package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainpark/internal/ratelimit/models"
	id "domainpark/pkg/domain"
	"domainpark/pkg/requestcontext"
)

type stubLimiter struct {
	result *models.RateLimitResult
	err    error

	gotIP    string
	gotUser  string
	gotClass models.EndpointClass
}

func (s *stubLimiter) CheckBoth(_ context.Context, ip, userID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	s.gotIP, s.gotUser, s.gotClass = ip, userID, class
	return s.result, s.err
}

func serve(t *testing.T, m *Middleware, class models.EndpointClass) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	h := m.RateLimitAuthenticated(class)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/domains/register", nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), "192.0.2.10", "test")
	ctx = requestcontext.WithUserID(ctx, id.UserID(uuidFixture))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec, called
}

var uuidFixture = [16]byte{0x55, 0x0e, 0x84, 0x00, 0xe2, 0x9b, 0x41, 0xd4, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRateLimitAuthenticated(t *testing.T) {
	reset := time.Date(2025, 6, 1, 9, 1, 0, 0, time.UTC)

	t.Run("allowed request carries headers", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.RateLimitResult{Allowed: true, Limit: 20, Remaining: 19, ResetAt: reset}}
		rec, called := serve(t, New(limiter, quiet()), models.ClassRegistrar)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "19", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "192.0.2.10", limiter.gotIP)
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", limiter.gotUser)
		assert.Equal(t, models.ClassRegistrar, limiter.gotClass)
	})

	t.Run("exceeded request is rejected", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.RateLimitResult{Allowed: false, Limit: 20, ResetAt: reset, RetryAfter: 42}}
		rec, called := serve(t, New(limiter, quiet()), models.ClassRegistrar)

		assert.False(t, called)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))

		var body models.RateLimitExceededResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "rate_limit_exceeded", body.Error)
		assert.Equal(t, 42, body.RetryAfter)
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		rec, called := serve(t, New(limiter, quiet()), models.ClassRead)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("disabled middleware skips the limiter", func(t *testing.T) {
		limiter := &stubLimiter{result: &models.RateLimitResult{Allowed: false}}
		_, called := serve(t, New(limiter, quiet(), WithDisabled(true)), models.ClassRead)

		assert.True(t, called)
		assert.Empty(t, limiter.gotUser)
	})
}
