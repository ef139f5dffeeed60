// Package service records ledger rows for fund movements and serves them back
// as one paginated activity feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"walletgate/internal/activity/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// maxPage bounds page*pageSize+1 rows fetched per source.
	maxPage = 500
)

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertDonation(ctx context.Context, d *models.Donation) error
	InsertTransfers(ctx context.Context, transfers ...models.Transfer) error
	InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error
	InsertDeposit(ctx context.Context, d *models.Deposit) error
	UpdateState(ctx context.Context, providerRef, state string, at time.Time) (int, error)
	ListDonations(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Donation, error)
	ListTransfers(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Transfer, error)
	ListDeposits(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Deposit, error)
	ListWithdrawals(ctx context.Context, walletID id.WalletID, asOf time.Time, limit int) ([]models.Withdrawal, error)
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
		return nil, fmt.Errorf("ledger store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// FeedQuery selects one page. A zero AsOf starts a new snapshot at request time.
type FeedQuery struct {
	Page     int
	PageSize int
	AsOf     time.Time
}

func (q *FeedQuery) normalize(now time.Time) error {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	var errs []dErrors.FieldError
	if q.Page < 1 || q.Page > maxPage {
		errs = append(errs, dErrors.FieldError{Field: "page", Message: fmt.Sprintf("must be between 1 and %d", maxPage)})
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		errs = append(errs, dErrors.FieldError{Field: "page_size", Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize)})
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	if q.AsOf.IsZero() {
		q.AsOf = now
	}
	q.AsOf = q.AsOf.UTC()
	return nil
}

// Feed merges every ledger source for the wallet into one newest-first page.
// Only rows created at or before AsOf are considered, so later inserts never
// shift a page that was already served.
func (s *Service) Feed(ctx context.Context, walletID id.WalletID, q FeedQuery) (*models.Page, error) {
	if err := q.normalize(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	// The newest page*size+1 rows overall are always among the newest
	// page*size+1 rows of each source.
	limit := q.Page*q.PageSize + 1

	var donations, transfers, deposits, withdrawals []models.Activity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.ListDonations(gctx, walletID, q.AsOf, limit)
		donations = project(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.store.ListTransfers(gctx, walletID, q.AsOf, limit)
		transfers = project(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.store.ListDeposits(gctx, walletID, q.AsOf, limit)
		deposits = project(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.store.ListWithdrawals(gctx, walletID, q.AsOf, limit)
		withdrawals = project(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity")
	}

	merged := slices.Concat(donations, transfers, deposits, withdrawals)
	slices.SortFunc(merged, models.Newer)

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	page := &models.Page{Items: []models.Activity{}, Page: q.Page, PageSize: q.PageSize, AsOf: q.AsOf}
	if start < len(merged) {
		page.Items = merged[start:min(end, len(merged))]
	}
	page.HasMore = len(merged) > end
	return page, nil
}

type projectable interface {
	Activity() models.Activity
}

func project[T projectable](rows []T) []models.Activity {
	out := make([]models.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Activity())
	}
	return out
}

func (s *Service) RecordDonation(ctx context.Context, d *models.Donation) error {
	stamp(ctx, &d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err := s.store.InsertDonation(ctx, d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record donation")
	}
	return nil
}

// RecordTransfer writes the sent row and, when the recipient holds a wallet
// here, its received counterpart in the same transaction.
func (s *Service) RecordTransfer(ctx context.Context, sent *models.Transfer, received *models.Transfer) error {
	stamp(ctx, &sent.ID, &sent.CreatedAt, &sent.UpdatedAt)
	rows := []models.Transfer{*sent}
	if received != nil {
		stamp(ctx, &received.ID, &received.CreatedAt, &received.UpdatedAt)
		rows = append(rows, *received)
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.InsertTransfers(ctx, rows...)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transfer")
	}
	return nil
}

func (s *Service) RecordWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	stamp(ctx, &w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err := s.store.InsertWithdrawal(ctx, w); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record withdrawal")
	}
	return nil
}

// RecordDeposit is idempotent on the provider transaction id: a replayed
// notification reports recorded=false and changes nothing.
func (s *Service) RecordDeposit(ctx context.Context, d *models.Deposit) (recorded bool, err error) {
	if d.ProviderTransactionID == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "provider transaction id is required")
	}
	stamp(ctx, &d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err := s.store.InsertDeposit(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.logger.InfoContext(ctx, "deposit already recorded",
				"request_id", requestcontext.RequestID(ctx),
				"provider_transaction_id", d.ProviderTransactionID,
			)
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record deposit")
	}
	s.logger.InfoContext(ctx, "deposit recorded",
		"request_id", requestcontext.RequestID(ctx),
		"wallet_id", d.WalletID.String(),
		"provider_transaction_id", d.ProviderTransactionID,
	)
	return true, nil
}

// UpdateTransferState applies a provider status change to every ledger row
// carrying the reference.
func (s *Service) UpdateTransferState(ctx context.Context, providerRef, state string) error {
	if providerRef == "" || state == "" {
		return dErrors.New(dErrors.CodeBadRequest, "provider reference and state are required")
	}
	n, err := s.store.UpdateState(ctx, providerRef, state, requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update transfer state")
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "no ledger entry for provider reference")
	}
	s.logger.InfoContext(ctx, "ledger state updated",
		"request_id", requestcontext.RequestID(ctx),
		"provider_ref", providerRef,
		"state", state,
		"rows", n,
	)
	return nil
}

func stamp(ctx context.Context, rowID *uuid.UUID, created, updated *time.Time) {
	if *rowID == uuid.Nil {
		*rowID = uuid.New()
	}
	if created.IsZero() {
		*created = requestcontext.Now(ctx).UTC()
	}
	*updated = *created
}
