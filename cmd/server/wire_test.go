package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	activitymodels "walletgate/internal/activity/models"
	directorymodels "walletgate/internal/directory/models"
	jwttoken "walletgate/internal/jwt_token"
	"walletgate/internal/platform/config"
	"walletgate/internal/provider"
	walletmodels "walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/testutil"
)

const (
	signingKey = "wire-test-signing-key"
	opsToken   = "wire-test-ops-token"
)

func testConfig() config.Config {
	return config.Config{
		Server: config.Server{AdminToken: opsToken},
		Auth:   config.Auth{JWTSigningKey: signingKey, Issuer: "walletgate", Audience: "walletgate"},
		Redis:  config.RedisConfig{BalanceCacheTTL: time.Minute},
		Provider: config.ProviderConfig{
			WebhookSecret: "wire-test-webhook-secret",
		},
		Wallet: config.WalletConfig{DestinationChain: "ethereum", DestinationCurrency: "usdc"},
	}
}

func individualFields() map[string]string {
	return map[string]string{
		"first_name":          "Ada",
		"last_name":           "Lovelace",
		"email":               "ada@example.com",
		"birth_date":          "1985-12-10",
		"ssn":                 "123-45-6789",
		"address.line1":       "1 Analytical Way",
		"address.city":        "Austin",
		"address.state":       "TX",
		"address.postal_code": "78701",
		"address.country":     "US",
	}
}

// The assembled server runs in memory against the sandbox: one account goes
// from signup through verification to a funded wallet and a donation.
func TestAssembledServer(t *testing.T) {
	ctx := context.Background()
	sandbox := provider.NewSandbox(provider.WithAutoApprove())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := assemble(ctx, testConfig(), logger, infra{gateway: sandbox})
	require.NoError(t, err)
	t.Cleanup(a.audit.Close)
	h := a.handler

	accountID := id.AccountID(uuid.New())
	token, err := jwttoken.NewJWTService(signingKey, "walletgate", "walletgate").GenerateAccessToken(accountID, time.Hour)
	require.NoError(t, err)
	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}
	admin := func(req *http.Request) *http.Request {
		req.Header.Set("X-Admin-Token", opsToken)
		return req
	}

	testutil.Given(t, "an account without a verification profile", func(t *testing.T) {
		testutil.When(t, "it asks for a wallet", func(t *testing.T) {
			rr := testutil.DoRequest(h, authed(testutil.NewRequest(t, http.MethodPost, "/wallet")))
			testutil.Then(t, "the request is refused until verification completes", func(t *testing.T) {
				assert.GreaterOrEqual(t, rr.Code, http.StatusBadRequest)
				assert.Less(t, rr.Code, http.StatusInternalServerError)
			})
		})

		testutil.When(t, "it calls without a bearer token", func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/wallet/balance"))
			testutil.Then(t, "it is unauthorized", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusUnauthorized)
			})
		})
	})

	testutil.Given(t, "an individual completing verification", func(t *testing.T) {
		rr := testutil.DoRequest(h, authed(testutil.NewJSONRequest(t, http.MethodPost, "/verification/profile",
			map[string]string{"subject_type": "individual"})))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rr = testutil.DoRequest(h, authed(testutil.NewJSONRequest(t, http.MethodPost, "/verification/terms",
			map[string]string{"signed_agreement_id": "tos-2026-01"})))
		testutil.AssertStatusOK(t, rr)

		rr = testutil.DoRequest(h, authed(testutil.NewJSONRequest(t, http.MethodPost, "/verification/individual",
			map[string]any{"fields": individualFields()})))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "approved")
	})

	var w *walletmodels.Wallet
	testutil.Given(t, "an approved account", func(t *testing.T) {
		testutil.When(t, "it creates a wallet twice", func(t *testing.T) {
			first := testutil.DoRequest(h, authed(testutil.NewRequest(t, http.MethodPost, "/wallet")))
			testutil.AssertStatus(t, first, http.StatusCreated)
			w = testutil.UnmarshalResponse[walletmodels.Wallet](t, first)

			second := testutil.DoRequest(h, authed(testutil.NewRequest(t, http.MethodPost, "/wallet")))
			testutil.Then(t, "both calls return the same wallet", func(t *testing.T) {
				require.Less(t, second.Code, http.StatusBadRequest)
				again := testutil.UnmarshalResponse[walletmodels.Wallet](t, second)
				assert.Equal(t, w.ID, again.ID)
				assert.NotEmpty(t, w.ProviderAccountID)
				assert.Equal(t, 1, sandbox.Calls("CreateWalletAccount"))
			})
		})
	})
	require.NotNil(t, w)

	testutil.Given(t, "a funded wallet and a receiving organization", func(t *testing.T) {
		sandbox.Fund(w.ProviderAccountID, 5000)

		rr := testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost, "/admin/directory/entries",
			map[string]string{"type": "organization", "name": "County 4-H Foundation", "address": "0x52908400098527886E0F7030069857D2E4169EE7"}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)

		rr = testutil.DoRequest(h, admin(testutil.NewJSONRequest(t, http.MethodPost, "/admin/directory/entries",
			map[string]string{"type": "organization", "name": "County 4-H Foundation", "address": "0x52908400098527886E0F7030069857D2E4169EE7"})))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		org := testutil.UnmarshalResponse[directorymodels.Entry](t, rr)

		testutil.When(t, "the account donates 12.50", func(t *testing.T) {
			rr := testutil.DoRequest(h, authed(testutil.NewJSONRequest(t, http.MethodPost, "/wallet/send",
				map[string]string{"amount": "12.50", "recipient": org.ID.String(), "idempotency_key": "donation-1"})))
			testutil.AssertStatus(t, rr, http.StatusCreated)

			testutil.Then(t, "the balance drops and the feed shows the donation", func(t *testing.T) {
				rr := testutil.DoRequest(h, authed(testutil.NewRequest(t, http.MethodGet, "/wallet/balance")))
				testutil.AssertStatusOK(t, rr)
				balance := testutil.UnmarshalResponse[walletmodels.Balance](t, rr)
				assert.EqualValues(t, 3750, balance.AmountCents)

				rr = testutil.DoRequest(h, authed(testutil.NewRequest(t, http.MethodGet, "/wallet/activity")))
				testutil.AssertStatusOK(t, rr)
				page := testutil.UnmarshalResponse[activitymodels.Page](t, rr)
				require.Len(t, page.Items, 1)
				assert.Equal(t, activitymodels.TypeDonation, page.Items[0].Type)
				assert.EqualValues(t, 1250, page.Items[0].AmountCents)
				assert.Equal(t, "County 4-H Foundation", page.Items[0].Counterparty)
			})
		})

		testutil.When(t, "the account tries to send more than it holds", func(t *testing.T) {
			rr := testutil.DoRequest(h, authed(testutil.NewJSONRequest(t, http.MethodPost, "/wallet/send",
				map[string]string{"amount": "100.00", "recipient": org.ID.String()})))
			testutil.Then(t, "it gets payment required", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusPaymentRequired, "insufficient_funds")
			})
		})
	})

	testutil.Given(t, "the public surface", func(t *testing.T) {
		testutil.When(t, "a webhook arrives unsigned", func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequestWithBody(t, http.MethodPost, "/webhooks/provider",
				`{"id":"evt_1","type":"deposit.received","data":{}}`))
			testutil.Then(t, "it is rejected", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusUnauthorized)
			})
		})

		testutil.When(t, "health is probed", func(t *testing.T) {
			rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/health"))
			testutil.Then(t, "it is ok with no backing stores configured", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
			})
		})
	})
}
