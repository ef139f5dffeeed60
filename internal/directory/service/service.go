// Package service resolves send recipients against the directory of users and
// organizations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"walletgate/internal/directory/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

const (
	defaultLimit  = 20
	maxLimit      = 50
	minQueryRunes = 2
)

type Store interface {
	Save(ctx context.Context, e *models.Entry) error
	Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
	FindByWallet(ctx context.Context, walletID id.WalletID) (*models.Entry, error)
	Search(ctx context.Context, query string, limit int) ([]models.Entry, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Search returns entries whose name or email contains query. Queries shorter
// than two characters return nothing rather than the whole directory.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Entry, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minQueryRunes {
		return []models.Entry{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	entries, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search directory")
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

func (s *Service) Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	e, err := s.store.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "directory entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load directory entry")
	}
	return e, nil
}

// FindByWallet returns the entry that represents a wallet holder.
func (s *Service) FindByWallet(ctx context.Context, walletID id.WalletID) (*models.Entry, error) {
	e, err := s.store.FindByWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no directory entry for wallet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load directory entry")
	}
	return e, nil
}

// AddEntry registers a recipient. The request must already be validated.
func (s *Service) AddEntry(ctx context.Context, req *models.CreateEntryRequest) (*models.Entry, error) {
	e := &models.Entry{
		ID:        id.EntryID(uuid.New()),
		Type:      req.Type,
		Name:      req.Name,
		Email:     req.Email,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: requestcontext.Now(ctx),
	}
	if req.WalletID != "" {
		walletID, err := id.ParseWalletID(req.WalletID)
		if err != nil {
			return nil, err
		}
		e.WalletID = &walletID
	}
	if err := s.store.Save(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save directory entry")
	}
	s.logger.InfoContext(ctx, "directory entry added",
		"request_id", requestcontext.RequestID(ctx),
		"entry_id", e.ID.String(),
		"entry_type", string(e.Type),
	)
	return e, nil
}
