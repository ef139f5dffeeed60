package review

import (
	"context"
	"slices"
	"sync"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
)

// InMemoryStore keeps back-office refill requests and document decisions.
type InMemoryStore struct {
	mu        sync.RWMutex
	refills   map[id.ProfileID]models.RefillRequest
	decisions map[id.ProfileID]map[models.DocumentKind]models.DocumentDecision
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		refills:   make(map[id.ProfileID]models.RefillRequest),
		decisions: make(map[id.ProfileID]map[models.DocumentKind]models.DocumentDecision),
	}
}

// IssueRefill replaces the profile's latest refill request.
func (s *InMemoryStore) IssueRefill(_ context.Context, profileID id.ProfileID, r models.RefillRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Fields = slices.Clone(r.Fields)
	s.refills[profileID] = r
	return nil
}

func (s *InMemoryStore) RecordDecision(_ context.Context, d models.DocumentDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKind, ok := s.decisions[d.ProfileID]
	if !ok {
		byKind = make(map[models.DocumentKind]models.DocumentDecision)
		s.decisions[d.ProfileID] = byKind
	}
	byKind[d.Kind] = d
	return nil
}

// LatestRefill returns nil when no request was ever issued.
func (s *InMemoryStore) LatestRefill(_ context.Context, profileID id.ProfileID) (*models.RefillRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.refills[profileID]
	if !ok {
		return nil, nil
	}
	r.Fields = slices.Clone(r.Fields)
	return &r, nil
}

// Decisions returns the latest decision per document kind.
func (s *InMemoryStore) Decisions(_ context.Context, profileID id.ProfileID) ([]models.DocumentDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DocumentDecision, 0, len(s.decisions[profileID]))
	for _, d := range s.decisions[profileID] {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b models.DocumentDecision) int {
		return a.DecidedAt.Compare(b.DecidedAt)
	})
	return out, nil
}
