package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "domainpark/pkg/domain"
	authmw "domainpark/pkg/platform/middleware/auth"
	"domainpark/pkg/requestcontext"
)

type stubValidator struct {
	userID id.UserID
}

func (v stubValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &authmw.JWTClaims{UserID: v.userID.String()}, nil
}

// echoRoutes answers with the authenticated user id so tests can see what
// the middleware chain put in context.
type echoRoutes struct{}

func (echoRoutes) Register(r chi.Router) {
	r.Get("/domains", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(requestcontext.UserID(r.Context()).String()))
	})
}

func (echoRoutes) RegisterAdmin(r chi.Router) {
	r.Post("/admin/domains/reconcile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestRouter(health HealthChecker) (http.Handler, id.UserID) {
	user := id.NewUserID()
	return NewRouter(Deps{
		Routes:       echoRoutes{},
		JWTValidator: stubValidator{userID: user},
		AdminToken:   "admin-secret",
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Health:  health,
		Version: "test",
	}), user
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterAuthentication(t *testing.T) {
	router, user := newTestRouter(nil)

	t.Run("missing bearer token", func(t *testing.T) {
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/domains", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid bearer token reaches the handler with the user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/domains", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := serve(router, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.String(), rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestRouterAdmin(t *testing.T) {
	router, _ := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/domains/reconcile", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/domains/reconcile", nil)
	req.Header.Set("X-Admin-Token", "admin-secret")
	assert.Equal(t, http.StatusOK, serve(router, req).Code)

	// bearer tokens do not open admin routes
	req = httptest.NewRequest(http.MethodPost, "/admin/domains/reconcile", nil)
	req.Header.Set("Authorization", "Bearer good")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	t.Run("health ok", func(t *testing.T) {
		router, _ := newTestRouter(func(context.Context) error { return nil })
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
	})

	t.Run("health reports failing dependencies", func(t *testing.T) {
		router, _ := newTestRouter(func(context.Context) error { return errors.New("database: connection refused") })
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})

	t.Run("metrics are public", func(t *testing.T) {
		router, _ := newTestRouter(nil)
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# metrics", rec.Body.String())
	})
}
