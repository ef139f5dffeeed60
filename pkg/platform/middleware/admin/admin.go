package admin

import (
	"log/slog"
	"net/http"

	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/platform/secrets"
)

// RequireAdminToken guards the review back office with a shared X-Admin-Token,
// checked against its bcrypt hash. An empty hash disables the routes entirely.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secrets.Matches(r.Header.Get("X-Admin-Token"), tokenHash) {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
