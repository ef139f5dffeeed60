package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
	"walletgate/pkg/testutil"
)

// fakeService implements only what each test needs; anything else panics.
type fakeService struct {
	Service
	accountID id.AccountID
	send      func(req *models.SendRequest) (*models.SendResult, error)
	link      int
}

func (f *fakeService) Send(_ context.Context, accountID id.AccountID, req *models.SendRequest) (*models.SendResult, error) {
	f.accountID = accountID
	return f.send(req)
}

func (f *fakeService) LinkExternalAccount(_ context.Context, _ id.AccountID, _ *models.BankDetails) (*models.ExternalBankAccount, error) {
	f.link++
	return &models.ExternalBankAccount{}, nil
}

func (f *fakeService) GetBalance(_ context.Context, _ id.AccountID) (*models.Balance, error) {
	return nil, dErrors.New(dErrors.CodeProviderUnavailable, "provider_outage: GetBalance")
}

func (f *fakeService) GetWallet(_ context.Context, _ id.AccountID) (*models.Wallet, error) {
	return nil, dErrors.New(dErrors.CodeNotFound, "wallet not found")
}

func newRouter(svc Service, accountID id.AccountID) http.Handler {
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Use(testutil.AsAccount(accountID))
	h.Register(r)
	return r
}

func TestSend(t *testing.T) {
	accountID := id.AccountID(uuid.New())

	t.Run("insufficient funds maps to 402", func(t *testing.T) {
		svc := &fakeService{send: func(*models.SendRequest) (*models.SendResult, error) {
			return nil, dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds")
		}}
		rr := testutil.DoRequest(newRouter(svc, accountID), testutil.NewJSONRequest(t, http.MethodPost, "/wallet/send",
			map[string]string{"amount": "10.00", "recipient": "0x52908400098527886E0F7030069857D2E4169EE7"}))
		testutil.AssertStatusAndError(t, rr, http.StatusPaymentRequired, "insufficient_funds")
		assert.Equal(t, accountID, svc.accountID)
	})

	t.Run("validated amount reaches the service", func(t *testing.T) {
		svc := &fakeService{send: func(req *models.SendRequest) (*models.SendResult, error) {
			return &models.SendResult{TransferID: "tr_1", Status: "completed", AmountCents: req.AmountCents}, nil
		}}
		rr := testutil.DoRequest(newRouter(svc, accountID), testutil.NewJSONRequest(t, http.MethodPost, "/wallet/send",
			map[string]string{"amount": "10.5", "recipient": uuid.NewString()}))
		require.Equal(t, http.StatusCreated, rr.Code)
		res := testutil.UnmarshalResponse[models.SendResult](t, rr)
		assert.Equal(t, money.Cents(1050), res.AmountCents)
	})

	t.Run("bad amount never reaches the service", func(t *testing.T) {
		svc := &fakeService{send: func(*models.SendRequest) (*models.SendResult, error) {
			t.Fatal("service called")
			return nil, nil
		}}
		rr := testutil.DoRequest(newRouter(svc, accountID), testutil.NewJSONRequest(t, http.MethodPost, "/wallet/send",
			map[string]string{"amount": "1.001", "recipient": uuid.NewString()}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func TestLinkExternalAccountRejectsShortRoutingNumber(t *testing.T) {
	svc := &fakeService{}
	rr := testutil.DoRequest(newRouter(svc, id.AccountID(uuid.New())), testutil.NewJSONRequest(t, http.MethodPost, "/wallet/external-accounts",
		map[string]any{
			"routing_number": "02100002", "account_number": "123456789", "account_type": "checking",
			"holder_first_name": "Ada", "holder_last_name": "Lovelace",
			"holder_address": map[string]string{"line1": "1 Way", "city": "Austin", "state": "TX", "postal_code": "78701", "country": "US"},
		}))
	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	assert.Zero(t, svc.link)
}

func TestErrorMapping(t *testing.T) {
	router := newRouter(&fakeService{}, id.AccountID(uuid.New()))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/wallet/balance"))
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "provider_unavailable")
	body := testutil.UnmarshalErrorResponse(t, rr)
	assert.NotContains(t, body.Description, "provider_outage")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/wallet/"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/wallet/external-accounts/not-a-uuid/refresh"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
