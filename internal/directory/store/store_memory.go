package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"walletgate/internal/directory/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.EntryID]models.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.EntryID]models.Entry)}
}

func (s *InMemoryStore) Save(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = *e
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, entryID id.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemoryStore) FindByWallet(_ context.Context, walletID id.WalletID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.WalletID != nil && *e.WalletID == walletID {
			return &e, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Search matches the query against name and email, case-insensitively.
// Results are ordered by name.
func (s *InMemoryStore) Search(_ context.Context, query string, limit int) ([]models.Entry, error) {
	q := strings.ToLower(query)
	s.mu.RLock()
	var out []models.Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(e.Email, q) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b models.Entry) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
