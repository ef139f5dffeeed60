//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "card_accounts", "liquidation_addresses", "external_bank_accounts", "wallet_accounts"))
}

func (s *PostgresStoreSuite) activeWallet() *models.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	w := models.NewCreating(id.WalletID(uuid.New()), id.ProfileID(uuid.New()), id.AccountID(uuid.New()), false, now)
	s.Require().NoError(s.store.CreateWallet(s.ctx, w))
	s.Require().NoError(w.Activate("acct_"+uuid.NewString()[:8], "0xabc", []string{"ach", "wire"}, now))
	w.CacheBalance(money.Cents(12_345), now)
	s.Require().NoError(s.store.SaveWallet(s.ctx, w))
	return w
}

func (s *PostgresStoreSuite) TestWalletRoundTrip() {
	w := s.activeWallet()

	got, err := s.store.FindWalletByProviderAccount(s.ctx, w.ProviderAccountID)
	s.Require().NoError(err)
	s.Equal(w.ID, got.ID)
	s.Equal([]string{"ach", "wire"}, got.Rails)
	s.Equal(money.Cents(12_345), got.CachedBalance)
	s.Require().NotNil(got.CachedAt)
	s.True(w.CachedAt.Equal(*got.CachedAt))

	_, err = s.store.FindWalletByAccount(s.ctx, id.AccountID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestOneWalletPerProfile() {
	now := time.Now().UTC()
	profileID := id.ProfileID(uuid.New())
	first := models.NewCreating(id.WalletID(uuid.New()), profileID, id.AccountID(uuid.New()), false, now)
	second := models.NewCreating(id.WalletID(uuid.New()), profileID, first.AccountID, false, now)

	s.Require().NoError(s.store.CreateWallet(s.ctx, first))
	s.ErrorIs(s.store.CreateWallet(s.ctx, second), sentinel.ErrAlreadyUsed)

	// Creating rows carry no provider id yet, so they never collide with each other.
	other := models.NewCreating(id.WalletID(uuid.New()), id.ProfileID(uuid.New()), id.AccountID(uuid.New()), false, now)
	s.NoError(s.store.CreateWallet(s.ctx, other))
}

func (s *PostgresStoreSuite) TestDeleteCreatingWalletOnlyDeletesCreating() {
	w := s.activeWallet()
	s.ErrorIs(s.store.DeleteCreatingWallet(s.ctx, w.ID), sentinel.ErrInvalidState)

	pending := models.NewCreating(id.WalletID(uuid.New()), id.ProfileID(uuid.New()), id.AccountID(uuid.New()), false, time.Now())
	s.Require().NoError(s.store.CreateWallet(s.ctx, pending))
	s.Require().NoError(s.store.DeleteCreatingWallet(s.ctx, pending.ID))
	_, err := s.store.FindWallet(s.ctx, pending.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentLiquidationInsertsKeepOneRow() {
	w := s.activeWallet()
	key := models.LiquidationKey{WalletID: w.ID, Chain: id.ChainSolana, Currency: id.CurrencyUSDC}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
		dupes    int
	)
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.InsertLiquidationAddress(s.ctx, &models.LiquidationAddress{
				ID: uuid.New(), WalletID: w.ID, Chain: key.Chain, Currency: key.Currency,
				DestinationChain: id.ChainEthereum, DestinationCurrency: id.CurrencyUSDC,
				ProviderID: "liq_" + uuid.NewString()[:6], Address: "addr", CreatedAt: time.Now(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				dupes++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(1, inserted)
	s.Equal(7, dupes)

	all, err := s.store.ListLiquidationAddresses(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *PostgresStoreSuite) TestExternalAccountAndCard() {
	w := s.activeWallet()
	now := time.Now().UTC()
	a := &models.ExternalBankAccount{
		ID: id.ExternalAccountID(uuid.New()), WalletID: w.ID, ProviderID: "ext_1",
		RoutingNumber: "021000021", AccountLast4: "6789", AccountType: models.AccountChecking,
		Status: models.ExternalPending, HolderFirstName: "Ada", HolderLastName: "Lovelace",
		HolderAddress: models.Address{Line1: "1 Way", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"},
		CreatedAt:     now, UpdatedAt: now,
	}
	s.Require().NoError(s.store.InsertExternalAccount(s.ctx, a))
	dup := *a
	dup.ID = id.ExternalAccountID(uuid.New())
	s.ErrorIs(s.store.InsertExternalAccount(s.ctx, &dup), sentinel.ErrAlreadyUsed)

	a.ApplyStatus(models.ExternalVerified, now)
	s.Require().NoError(s.store.SaveExternalAccount(s.ctx, a))
	got, err := s.store.FindExternalAccountByProviderID(s.ctx, w.ID, "ext_1")
	s.Require().NoError(err)
	s.True(got.IsVerified())
	s.Equal("Austin", got.HolderAddress.City)

	card := &models.CardAccount{ID: uuid.New(), WalletID: w.ID, ProviderCardID: "card_1", MaskedNumber: "•••• 4242",
		Expiry: "12/29", CardholderName: "Ada Lovelace", Status: models.CardActive, CreatedAt: now, UpdatedAt: now}
	s.Require().NoError(s.store.InsertCard(s.ctx, card))
	second := *card
	second.ID = uuid.New()
	s.ErrorIs(s.store.InsertCard(s.ctx, &second), sentinel.ErrAlreadyUsed)
}
