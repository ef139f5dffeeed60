package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/requestcontext"
)

// JWTValidator checks a bearer token and returns the claims the account API needs.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type JWTClaims struct {
	AccountID string
	// JTI is logged so a leaked token can be traced.
	JTI string
}

type unauthorized struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// RequireAuth resolves the bearer token to an account and stores it on the
// request context. Every failure answers 401 with the same envelope.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason, description string, err error) {
				logger.WarnContext(ctx, "account request rejected",
					"reason", reason,
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteJSON(w, http.StatusUnauthorized, unauthorized{Error: "unauthorized", Description: description})
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reject("missing_token", "Missing or invalid Authorization header", nil)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject("invalid_token", "Invalid or expired token", err)
				return
			}
			accountID, err := id.ParseAccountID(claims.AccountID)
			if err != nil {
				reject("bad_account_claim", "Invalid or expired token", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccountID(ctx, accountID)))
		})
	}
}
