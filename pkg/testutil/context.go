package testutil

import (
	"context"
	"net/http"
	"time"

	id "walletgate/pkg/domain"
	"walletgate/pkg/requestcontext"
)

// WithAccountID adds an account ID to the request context, as the auth
// middleware does for authenticated requests. Invalid IDs are ignored.
func WithAccountID(req *http.Request, accountID string) *http.Request {
	parsed, err := id.ParseAccountID(accountID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAccountID(req.Context(), parsed))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// AsAccount is middleware that authenticates every request as accountID.
// Routers under test use it in place of bearer-token auth.
func AsAccount(accountID id.AccountID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccountID(r.Context(), accountID)))
		})
	}
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
