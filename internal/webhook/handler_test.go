package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletgate/internal/verification/models"
	wallet "walletgate/internal/wallet/service"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/audit/publisher"
	auditmemory "walletgate/pkg/platform/audit/store/memory"
)

const secret = "whsec_test"

type recorder struct {
	refreshed []id.ProfileID
	deposits  []wallet.DepositNotice
	transfers map[string]string
	external  []string
	err       error
}

func (r *recorder) RefreshVerificationStatus(_ context.Context, profileID id.ProfileID) (*models.VerificationStatus, error) {
	r.refreshed = append(r.refreshed, profileID)
	return &models.VerificationStatus{}, r.err
}

func (r *recorder) RecordDeposit(_ context.Context, n wallet.DepositNotice) error {
	r.deposits = append(r.deposits, n)
	return r.err
}

func (r *recorder) ApplyExternalAccountStatus(_ context.Context, providerAccountID, providerExternalID, status string) error {
	r.external = append(r.external, providerAccountID+"/"+providerExternalID+"="+status)
	return r.err
}

func (r *recorder) UpdateTransferState(_ context.Context, providerRef, state string) error {
	if r.transfers == nil {
		r.transfers = map[string]string{}
	}
	r.transfers[providerRef] = state
	return r.err
}

type fixture struct {
	router http.Handler
	rec    *recorder
	audit  *auditmemory.InMemoryStore
}

func newFixture() *fixture {
	rec := &recorder{}
	store := auditmemory.NewInMemoryStore()
	h := New(secret, rec, rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAuditPublisher(publisher.NewPublisher(store)))
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, rec: rec, audit: store}
}

func (f *fixture) post(t *testing.T, eventType EventType, data any, sign func([]byte) string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(Envelope{ID: uuid.NewString(), Type: eventType, Data: raw})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, sign(body))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func signed(body []byte) string { return "sha256=" + Sign([]byte(secret), body) }

func TestSignature(t *testing.T) {
	body := []byte(`{"type":"transfer.updated"}`)
	assert.True(t, Verify([]byte(secret), body, Sign([]byte(secret), body)))
	assert.True(t, Verify([]byte(secret), body, "sha256="+Sign([]byte(secret), body)))
	assert.False(t, Verify([]byte(secret), append(body, ' '), Sign([]byte(secret), body)))
	assert.False(t, Verify([]byte("other"), body, Sign([]byte(secret), body)))
	assert.False(t, Verify([]byte(secret), body, "zz"))
	assert.False(t, Verify(nil, body, Sign(nil, body)))
}

func TestBadSignatureIsRejectedAndAudited(t *testing.T) {
	f := newFixture()
	rr := f.post(t, EventTransferUpdated, transferUpdated{TransferID: "tr_1", State: "completed"}, func([]byte) string {
		return Sign([]byte("wrong"), []byte("x"))
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, f.rec.transfers)

	events := f.audit.ListAction(context.Background(), audit.EventWebhookSignatureRejected)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, "provider_webhook", events[0].ActorID)
}

func TestDispatch(t *testing.T) {
	t.Run("verification update refreshes the profile", func(t *testing.T) {
		f := newFixture()
		profileID := id.ProfileID(uuid.New())
		rr := f.post(t, EventVerificationUpdated, verificationUpdated{CustomerID: profileID.String()}, signed)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []id.ProfileID{profileID}, f.rec.refreshed)
	})

	t.Run("deposit is recorded", func(t *testing.T) {
		f := newFixture()
		rr := f.post(t, EventDepositReceived, depositReceived{
			AccountID: "acct_1", TransactionID: "dep_1", AmountCents: 2500, Rail: "ach", State: "payment_processed",
		}, signed)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, f.rec.deposits, 1)
		assert.Equal(t, money.Cents(2500), f.rec.deposits[0].AmountCents)
		assert.Equal(t, "dep_1", f.rec.deposits[0].ProviderTransactionID)
	})

	t.Run("deposit without amount is rejected", func(t *testing.T) {
		f := newFixture()
		rr := f.post(t, EventDepositReceived, depositReceived{AccountID: "acct_1", TransactionID: "dep_1"}, signed)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Empty(t, f.rec.deposits)
	})

	t.Run("transfer state is applied", func(t *testing.T) {
		f := newFixture()
		rr := f.post(t, EventTransferUpdated, transferUpdated{TransferID: "tr_1", State: "completed"}, signed)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "completed", f.rec.transfers["tr_1"])
	})

	t.Run("external account status is applied", func(t *testing.T) {
		f := newFixture()
		rr := f.post(t, EventExternalAccountUpdated, externalAccountUpdated{AccountID: "acct_1", ExternalAccountID: "ext_1", Status: "verified"}, signed)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []string{"acct_1/ext_1=verified"}, f.rec.external)
	})

	t.Run("unknown type is acknowledged", func(t *testing.T) {
		f := newFixture()
		rr := f.post(t, "card.updated", map[string]string{"card_id": "c_1"}, signed)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "ignored")
	})

	t.Run("unknown resource is acknowledged", func(t *testing.T) {
		f := newFixture()
		f.rec.err = dErrors.New(dErrors.CodeNotFound, "no activity row for provider reference")
		rr := f.post(t, EventTransferUpdated, transferUpdated{TransferID: "tr_x", State: "failed"}, signed)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "ignored")
	})

	t.Run("transient failure asks the provider to retry", func(t *testing.T) {
		f := newFixture()
		f.rec.err = dErrors.New(dErrors.CodeProviderUnavailable, "GetStatus timed out")
		rr := f.post(t, EventVerificationUpdated, verificationUpdated{CustomerID: uuid.NewString()}, signed)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
