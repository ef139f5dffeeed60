package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"walletgate/internal/ratelimit/metrics"
	"walletgate/internal/ratelimit/models"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/requestcontext"
)

// Store checks and records one request against a bucket.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every limiter into a pass-through (local runs, load tests).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerAccount limits authenticated callers by account id. Requests without an
// account in context fall back to the client IP.
func (m *Middleware) PerAccount(limit models.Limit) func(http.Handler) http.Handler {
	return m.limit(limit, func(ctx context.Context) (models.Scope, string) {
		if accountID := requestcontext.AccountID(ctx); !accountID.IsNil() {
			return models.ScopeAccount, accountID.String()
		}
		return models.ScopeIP, requestcontext.ClientIP(ctx)
	})
}

// PerIP limits unauthenticated callers such as provider webhooks.
func (m *Middleware) PerIP(limit models.Limit) func(http.Handler) http.Handler {
	return m.limit(limit, func(ctx context.Context) (models.Scope, string) {
		return models.ScopeIP, requestcontext.ClientIP(ctx)
	})
}

func (m *Middleware) limit(limit models.Limit, identify func(ctx context.Context) (models.Scope, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.disabled || !limit.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope, identifier := identify(ctx)

			result, err := m.store.Allow(ctx, models.Key(scope, identifier), limit)
			if err != nil {
				// Fail open on store errors.
				m.metrics.IncrementStoreErrors()
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"scope", scope,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementRejections(string(scope))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"scope", scope,
					"request_id", request.GetRequestID(ctx),
				)
				writeExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
