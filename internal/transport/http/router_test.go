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
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authmw "walletgate/pkg/platform/middleware/auth"
	"walletgate/pkg/platform/secrets"
	"walletgate/pkg/requestcontext"
)

const adminToken = "back-office"

type staticValidator struct {
	accountID string
}

func (v staticValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &authmw.JWTClaims{AccountID: v.accountID}, nil
}

type pingRoutes struct {
	path string
}

func (p pingRoutes) Register(r chi.Router) {
	r.Get(p.path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Account", requestcontext.AccountID(r.Context()).String())
		w.WriteHeader(http.StatusNoContent)
	})
}

func (p pingRoutes) RegisterAdmin(r chi.Router) {
	r.Get("/admin"+p.path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func newRouter(t *testing.T, adminHash string, health map[string]HealthCheck) (http.Handler, string) {
	t.Helper()
	accountID := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(Dependencies{
		Logger:         logger,
		Validator:      staticValidator{accountID: accountID},
		AdminTokenHash: adminHash,
		Public:         []Routes{pingRoutes{path: "/public"}},
		Account:        []Routes{pingRoutes{path: "/private"}},
		Admin:          []AdminRoutes{pingRoutes{path: "/ops"}},
		Health:         health,
	}), accountID
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AccountRoutesRequireBearer(t *testing.T) {
	h, accountID := newRouter(t, "", nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = serve(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, accountID, rec.Header().Get("X-Account"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_PublicRoutesSkipAuth(t *testing.T) {
	h, _ := newRouter(t, "", nil)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	t.Run("disabled without a token hash", func(t *testing.T) {
		h, _ := newRouter(t, "", nil)
		req := httptest.NewRequest(http.MethodGet, "/admin/ops", nil)
		req.Header.Set("X-Admin-Token", adminToken)
		assert.Equal(t, http.StatusNotFound, serve(h, req).Code)
	})

	t.Run("gated by the admin token", func(t *testing.T) {
		hash, err := secrets.HashWithCost(adminToken, bcrypt.MinCost)
		require.NoError(t, err)
		h, _ := newRouter(t, hash, nil)

		rec := serve(h, httptest.NewRequest(http.MethodGet, "/admin/ops", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/admin/ops", nil)
		req.Header.Set("X-Admin-Token", adminToken)
		assert.Equal(t, http.StatusNoContent, serve(h, req).Code)
	})
}

func TestRouter_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h, _ := newRouter(t, "", map[string]HealthCheck{"postgres": ok})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)

	h, _ = newRouter(t, "", map[string]HealthCheck{"postgres": ok, "redis": down})
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestRouter_LimitersWrapTheirGroups(t *testing.T) {
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRouter(Dependencies{
		Logger:      logger,
		Validator:   staticValidator{accountID: uuid.NewString()},
		PublicLimit: reject,
		Public:      []Routes{pingRoutes{path: "/public"}},
		Account:     []Routes{pingRoutes{path: "/private"}},
	})

	assert.Equal(t, http.StatusTooManyRequests, serve(h, httptest.NewRequest(http.MethodGet, "/public", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	assert.Equal(t, http.StatusNoContent, serve(h, req).Code)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}
