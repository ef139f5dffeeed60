package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"walletgate/internal/activity/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/sentinel"
)

// InMemoryStore keeps each ledger source in its own slice, mirroring the
// separate tables of the Postgres store.
type InMemoryStore struct {
	mu          sync.RWMutex
	donations   []models.Donation
	transfers   []models.Transfer
	deposits    []models.Deposit
	withdrawals []models.Withdrawal
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *InMemoryStore) InsertDonation(_ context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donations = append(s.donations, *d)
	return nil
}

func (s *InMemoryStore) InsertTransfers(_ context.Context, transfers ...models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, transfers...)
	return nil
}

func (s *InMemoryStore) InsertWithdrawal(_ context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withdrawals = append(s.withdrawals, *w)
	return nil
}

// InsertDeposit returns sentinel.ErrAlreadyUsed when the provider transaction
// was already recorded.
func (s *InMemoryStore) InsertDeposit(_ context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.deposits {
		if existing.ProviderTransactionID == d.ProviderTransactionID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.deposits = append(s.deposits, *d)
	return nil
}

// UpdateState sets the native state on every row carrying the provider
// reference and reports how many rows changed.
func (s *InMemoryStore) UpdateState(_ context.Context, providerRef, state string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.donations {
		if s.donations[i].ProviderTransferID == providerRef {
			s.donations[i].State, s.donations[i].UpdatedAt = state, at
			n++
		}
	}
	for i := range s.transfers {
		if s.transfers[i].ProviderTransferID == providerRef {
			s.transfers[i].State, s.transfers[i].UpdatedAt = state, at
			n++
		}
	}
	for i := range s.withdrawals {
		if s.withdrawals[i].ProviderTransferID == providerRef {
			s.withdrawals[i].State, s.withdrawals[i].UpdatedAt = state, at
			n++
		}
	}
	for i := range s.deposits {
		if s.deposits[i].ProviderTransactionID == providerRef {
			s.deposits[i].State, s.deposits[i].UpdatedAt = state, at
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) ListDonations(_ context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.donations, walletID, asOf, limit, func(d models.Donation) (id.WalletID, time.Time, uuid.UUID) {
		return d.WalletID, d.CreatedAt, d.ID
	}), nil
}

func (s *InMemoryStore) ListTransfers(_ context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.transfers, walletID, asOf, limit, func(t models.Transfer) (id.WalletID, time.Time, uuid.UUID) {
		return t.WalletID, t.CreatedAt, t.ID
	}), nil
}

func (s *InMemoryStore) ListDeposits(_ context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.deposits, walletID, asOf, limit, func(d models.Deposit) (id.WalletID, time.Time, uuid.UUID) {
		return d.WalletID, d.CreatedAt, d.ID
	}), nil
}

func (s *InMemoryStore) ListWithdrawals(_ context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.withdrawals, walletID, asOf, limit, func(w models.Withdrawal) (id.WalletID, time.Time, uuid.UUID) {
		return w.WalletID, w.CreatedAt, w.ID
	}), nil
}

func newestFirst[T any](rows []T, walletID id.WalletID, asOf time.Time, limit int, key func(T) (id.WalletID, time.Time, uuid.UUID)) []T {
	var out []T
	for _, r := range rows {
		w, created, _ := key(r)
		if w == walletID && !created.After(asOf) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b T) int {
		_, ta, ia := key(a)
		_, tb, ib := key(b)
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		return -compareID(ia, ib)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func compareID(a, b uuid.UUID) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
