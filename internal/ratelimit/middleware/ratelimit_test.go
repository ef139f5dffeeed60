package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletgate/internal/ratelimit/models"
	"walletgate/internal/ratelimit/store/bucket"
	id "walletgate/pkg/domain"
	"walletgate/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, models.Limit) (*models.Result, error) {
	return nil, errors.New("redis: connection refused")
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func requestFrom(ip string, accountID id.AccountID) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/wallet/send", nil)
	ctx := requestcontext.WithClientIP(r.Context(), ip)
	if !accountID.IsNil() {
		ctx = requestcontext.WithAccountID(ctx, accountID)
	}
	return r.WithContext(ctx)
}

func TestPerAccount(t *testing.T) {
	m := New(bucket.NewInMemory(), discard())
	h := m.PerAccount(models.Limit{Requests: 2, Window: time.Minute})(ok)
	alice := id.AccountID(uuid.New())
	bob := id.AccountID(uuid.New())

	for range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestFrom("10.0.0.1", alice))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1", alice))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// Same IP, different account.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("10.0.0.1", bob))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPerIP(t *testing.T) {
	m := New(bucket.NewInMemory(), discard())
	h := m.PerIP(models.Limit{Requests: 1, Window: time.Minute})(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.10", id.AccountID{}))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.10", id.AccountID{}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.11", id.AccountID{}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStoreErrorFailsOpen(t *testing.T) {
	m := New(failingStore{}, discard())
	h := m.PerIP(models.Limit{Requests: 1, Window: time.Minute})(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.10", id.AccountID{}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDisabledOrZeroLimitPassesThrough(t *testing.T) {
	disabled := New(failingStore{}, discard(), WithDisabled(true))
	h := disabled.PerIP(models.Limit{Requests: 1, Window: time.Minute})(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.10", id.AccountID{}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))

	unlimited := New(failingStore{}, discard())
	h = unlimited.PerAccount(models.Limit{})(ok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("192.0.2.10", id.AccountID{}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
