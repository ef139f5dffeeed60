package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"walletgate/internal/provider"
	"walletgate/internal/verification/models"
	"walletgate/internal/verification/service"
	profilestore "walletgate/internal/verification/store/profile"
	reviewstore "walletgate/internal/verification/store/review"
	id "walletgate/pkg/domain"
	adminmw "walletgate/pkg/platform/middleware/admin"
	"walletgate/pkg/platform/secrets"
	"walletgate/pkg/testutil"
)

const adminToken = "review-token"

type fixture struct {
	router    http.Handler
	sandbox   *provider.Sandbox
	accountID id.AccountID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sandbox := provider.NewSandbox()
	svc, err := service.New(profilestore.NewInMemory(), reviewstore.NewInMemory(), sandbox, service.WithLogger(logger))
	require.NoError(t, err)
	h := New(svc, logger)

	adminHash, err := secrets.HashWithCost(adminToken, bcrypt.MinCost)
	require.NoError(t, err)

	accountID := id.AccountID(uuid.New())
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(testutil.AsAccount(accountID))
		h.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(adminHash, logger))
		h.RegisterAdmin(r)
	})
	return &fixture{router: r, sandbox: sandbox, accountID: accountID}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	req.Header.Set("X-Admin-Token", adminToken)
	rr := testutil.DoRequest(f.router, req)
	var out map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr.Code, out
}

func TestVerificationFlow(t *testing.T) {
	f := newFixture(t)

	testutil.Given(t, "no profile", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/verification/profile", nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "not_found", body["error"])
	})

	testutil.When(t, "an individual profile is started and terms accepted", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/verification/profile", models.StartProfileRequest{SubjectType: "Individual"})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "not_started", body["status"])

		code, _ = f.do(t, http.MethodPost, "/verification/terms", models.AcceptTermsRequest{SignedAgreementID: "tos-v3"})
		require.Equal(t, http.StatusOK, code)
	})

	testutil.Then(t, "a submission without ssn reports the field", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/verification/individual",
			models.FieldsRequest{Fields: map[string]string{"first_name": "Ada"}}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
		assert.Contains(t, testutil.UnmarshalErrorResponse(t, rr).FieldNames(), "ssn")
		assert.Zero(t, f.sandbox.Calls("CreateOrUpdateIndividual"))
	})

	testutil.Then(t, "field visibility follows the table", func(t *testing.T) {
		code, body := f.do(t, http.MethodGet, "/verification/fields/ssn", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["show"])

		_, body = f.do(t, http.MethodGet, "/verification/fields/occupation", nil)
		assert.Equal(t, false, body["show"])
	})
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/verification/profile", models.StartProfileRequest{SubjectType: "business"})
	require.Equal(t, http.StatusCreated, code)
	profileID := body["id"].(string)

	t.Run("token required", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/verification/"+profileID+"/refill", models.IssueRefillRequest{})
		rr := testutil.DoRequest(f.router, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("refill is visible after refresh", func(t *testing.T) {
		code, _ := f.do(t, http.MethodPost, "/admin/verification/"+profileID+"/refill", models.IssueRefillRequest{
			Fields:     []string{"control_person.title"},
			Message:    "title mismatch",
			ReviewerID: "reviewer-7",
		})
		require.Equal(t, http.StatusCreated, code)

		code, body := f.do(t, http.MethodPost, "/verification/refresh", nil)
		require.Equal(t, http.StatusOK, code)
		refill := body["refill_request"].(map[string]any)
		assert.Equal(t, "title mismatch", refill["message"])
	})

	t.Run("unknown refill field is rejected", func(t *testing.T) {
		code, _ := f.do(t, http.MethodPost, "/admin/verification/"+profileID+"/refill", models.IssueRefillRequest{
			Fields:     []string{"control_person.shoe_size"},
			ReviewerID: "reviewer-7",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("bad profile id", func(t *testing.T) {
		code, _ := f.do(t, http.MethodPost, "/admin/verification/not-a-uuid/refresh", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}
