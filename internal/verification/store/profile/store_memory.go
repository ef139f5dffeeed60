package profile

import (
	"context"
	"maps"
	"slices"
	"sync"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles, control persons and documents in maps. Values
// are copied on the way in and out so callers never share state with the store.
type InMemoryStore struct {
	mu             sync.RWMutex
	profiles       map[id.ProfileID]*models.Profile
	byAccount      map[id.AccountID]id.ProfileID
	controlPersons map[id.ProfileID]*models.ControlPerson
	documents      map[id.ProfileID][]models.Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		profiles:       make(map[id.ProfileID]*models.Profile),
		byAccount:      make(map[id.AccountID]id.ProfileID),
		controlPersons: make(map[id.ProfileID]*models.ControlPerson),
		documents:      make(map[id.ProfileID][]models.Document),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byAccount[p.AccountID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.profiles[p.ID] = cloneProfile(p)
	s.byAccount[p.AccountID] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *InMemoryStore) FindByAccount(_ context.Context, accountID id.AccountID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profileID, ok := s.byAccount[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProfile(s.profiles[profileID]), nil
}

func (s *InMemoryStore) Save(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[p.ID] = cloneProfile(p)
	return nil
}

func (s *InMemoryStore) FindControlPerson(_ context.Context, profileID id.ProfileID) (*models.ControlPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.controlPersons[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *cp
	out.Fields = maps.Clone(cp.Fields)
	return &out, nil
}

func (s *InMemoryStore) SaveControlPerson(_ context.Context, cp *models.ControlPerson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *cp
	stored.Fields = maps.Clone(cp.Fields)
	s.controlPersons[cp.ProfileID] = &stored
	return nil
}

func (s *InMemoryStore) ListDocuments(_ context.Context, profileID id.ProfileID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.documents[profileID]), nil
}

func (s *InMemoryStore) SaveDocuments(_ context.Context, profileID id.ProfileID, docs []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[profileID] = slices.Clone(docs)
	return nil
}

// RunInTx runs fn directly. Callers serialize per profile with a keyed lock.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func cloneProfile(p *models.Profile) *models.Profile {
	out := *p
	out.RequestedFields = slices.Clone(p.RequestedFields)
	out.Business = maps.Clone(p.Business)
	if p.Refill != nil {
		r := *p.Refill
		r.Fields = slices.Clone(p.Refill.Fields)
		out.Refill = &r
	}
	if p.Session != nil {
		sess := *p.Session
		out.Session = &sess
	}
	return &out
}
