package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	id "walletgate/pkg/domain"
	"walletgate/pkg/requestcontext"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountID := id.AccountID(uuid.New())

	tests := []struct {
		name        string
		header      string
		validator   stubValidator
		wantStatus  int
		description string
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized, "Missing or invalid Authorization header"},
		{"wrong scheme", "Basic abc", stubValidator{}, http.StatusUnauthorized, "Missing or invalid Authorization header"},
		{"invalid token", "Bearer bad", stubValidator{err: errors.New("nope")}, http.StatusUnauthorized, "Invalid or expired token"},
		{"bad account claim", "Bearer ok", stubValidator{claims: &JWTClaims{AccountID: "x"}}, http.StatusUnauthorized, "Invalid or expired token"},
		{"valid", "Bearer ok", stubValidator{claims: &JWTClaims{AccountID: accountID.String()}}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got id.AccountID
			h := RequireAuth(tt.validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = requestcontext.AccountID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, accountID, got)
				return
			}
			assert.JSONEq(t, `{"error":"unauthorized","error_description":"`+tt.description+`"}`, rr.Body.String())
		})
	}
}
