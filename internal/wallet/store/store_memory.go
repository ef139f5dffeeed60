package store

import (
	"context"
	"slices"
	"sync"

	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/sentinel"
)

// InMemoryStore enforces the same unique keys as the Postgres schema: one
// wallet per profile, one liquidation address per (wallet, chain, currency)
// and one card per wallet.
type InMemoryStore struct {
	mu           sync.RWMutex
	wallets      map[id.WalletID]models.Wallet
	external     map[id.ExternalAccountID]models.ExternalBankAccount
	liquidations map[models.LiquidationKey]models.LiquidationAddress
	cards        map[id.WalletID]models.CardAccount
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		wallets:      make(map[id.WalletID]models.Wallet),
		external:     make(map[id.ExternalAccountID]models.ExternalBankAccount),
		liquidations: make(map[models.LiquidationKey]models.LiquidationAddress),
		cards:        make(map[id.WalletID]models.CardAccount),
	}
}

func cloneWallet(w models.Wallet) *models.Wallet {
	w.Rails = slices.Clone(w.Rails)
	if w.CachedAt != nil {
		at := *w.CachedAt
		w.CachedAt = &at
	}
	return &w
}

func (s *InMemoryStore) CreateWallet(_ context.Context, w *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.wallets {
		if existing.ProfileID == w.ProfileID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.wallets[w.ID] = *cloneWallet(*w)
	return nil
}

func (s *InMemoryStore) SaveWallet(_ context.Context, w *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.wallets[w.ID] = *cloneWallet(*w)
	return nil
}

// DeleteCreatingWallet removes a placeholder row. Active wallets are never deleted.
func (s *InMemoryStore) DeleteCreatingWallet(_ context.Context, walletID id.WalletID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if w.Status != models.StatusCreating {
		return sentinel.ErrInvalidState
	}
	delete(s.wallets, walletID)
	return nil
}

func (s *InMemoryStore) FindWallet(_ context.Context, walletID id.WalletID) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneWallet(w), nil
}

func (s *InMemoryStore) findWallet(match func(models.Wallet) bool) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.wallets {
		if match(w) {
			return cloneWallet(w), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindWalletByProfile(_ context.Context, profileID id.ProfileID) (*models.Wallet, error) {
	return s.findWallet(func(w models.Wallet) bool { return w.ProfileID == profileID })
}

func (s *InMemoryStore) FindWalletByAccount(_ context.Context, accountID id.AccountID) (*models.Wallet, error) {
	return s.findWallet(func(w models.Wallet) bool { return w.AccountID == accountID })
}

func (s *InMemoryStore) FindWalletByProviderAccount(_ context.Context, providerAccountID string) (*models.Wallet, error) {
	return s.findWallet(func(w models.Wallet) bool { return w.ProviderAccountID == providerAccountID })
}

func (s *InMemoryStore) InsertExternalAccount(_ context.Context, a *models.ExternalBankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.external {
		if existing.WalletID == a.WalletID && existing.ProviderID == a.ProviderID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.external[a.ID] = *a
	return nil
}

func (s *InMemoryStore) SaveExternalAccount(_ context.Context, a *models.ExternalBankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.external[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.external[a.ID] = *a
	return nil
}

func (s *InMemoryStore) FindExternalAccount(_ context.Context, walletID id.WalletID, accountID id.ExternalAccountID) (*models.ExternalBankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.external[accountID]
	if !ok || a.WalletID != walletID {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) FindExternalAccountByProviderID(_ context.Context, walletID id.WalletID, providerID string) (*models.ExternalBankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.external {
		if a.WalletID == walletID && a.ProviderID == providerID {
			return &a, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListExternalAccounts(_ context.Context, walletID id.WalletID) ([]models.ExternalBankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ExternalBankAccount
	for _, a := range s.external {
		if a.WalletID == walletID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.ExternalBankAccount) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) FindLiquidationAddress(_ context.Context, key models.LiquidationKey) (*models.LiquidationAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	la, ok := s.liquidations[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &la, nil
}

// InsertLiquidationAddress returns sentinel.ErrAlreadyUsed when the natural
// key is taken; the caller then reads the winner.
func (s *InMemoryStore) InsertLiquidationAddress(_ context.Context, la *models.LiquidationAddress) error {
	key := models.LiquidationKey{WalletID: la.WalletID, Chain: la.Chain, Currency: la.Currency}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liquidations[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.liquidations[key] = *la
	return nil
}

func (s *InMemoryStore) ListLiquidationAddresses(_ context.Context, walletID id.WalletID) ([]models.LiquidationAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LiquidationAddress
	for key, la := range s.liquidations {
		if key.WalletID == walletID {
			out = append(out, la)
		}
	}
	slices.SortFunc(out, func(a, b models.LiquidationAddress) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) FindCard(_ context.Context, walletID id.WalletID) (*models.CardAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[walletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) InsertCard(_ context.Context, c *models.CardAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.WalletID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.cards[c.WalletID] = *c
	return nil
}

func (s *InMemoryStore) SaveCard(_ context.Context, c *models.CardAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.WalletID]; !ok {
		return sentinel.ErrNotFound
	}
	s.cards[c.WalletID] = *c
	return nil
}
