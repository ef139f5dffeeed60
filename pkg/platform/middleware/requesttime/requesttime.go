// Package requesttime pins a single "now" per request so domain timestamps,
// audit events and activity rows written by one request agree.
package requesttime

import (
	"net/http"
	"time"

	"walletgate/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
