package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	activity "walletgate/internal/activity/models"
	"walletgate/internal/provider"
	"walletgate/internal/wallet/models"
	"walletgate/internal/wallet/store"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

const defaultCacheTTL = time.Minute

func (s *Service) mode() string {
	if s.sandbox {
		return "virtual"
	}
	return "wallet"
}

// CreateWallet provisions the account holder's wallet once their profile is
// approved. A second call returns the existing wallet.
func (s *Service) CreateWallet(ctx context.Context, accountID id.AccountID) (*models.Wallet, error) {
	profile, err := s.gate.RequireApproved(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if w, err := s.store.FindWalletByProfile(ctx, profile.ID); err == nil && w.IsActive() {
		return w, nil
	}

	v, _, err := s.flight.Do(ctx, "wallet:"+profile.ID.String(), func(ctx context.Context) (any, error) {
		return s.createWallet(ctx, profile.ID, accountID)
	})
	if err != nil {
		return nil, err
	}
	w := *v.(*models.Wallet)
	return &w, nil
}

func (s *Service) createWallet(ctx context.Context, profileID id.ProfileID, accountID id.AccountID) (*models.Wallet, error) {
	now := requestcontext.Now(ctx)
	w, err := s.store.FindWalletByProfile(ctx, profileID)
	switch {
	case err == nil && w.IsActive():
		return w, nil
	case err == nil:
		// A creating row left by an interrupted attempt; the provider call is
		// keyed by profile so finishing it cannot duplicate the account.
	case errors.Is(err, sentinel.ErrNotFound):
		w = models.NewCreating(id.WalletID(uuid.New()), profileID, accountID, s.sandbox, now)
		if err := s.store.CreateWallet(ctx, w); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return nil, dErrors.New(dErrors.CodeConflict, "wallet creation already in progress")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create wallet")
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}

	var account *provider.Account
	if s.sandbox {
		account, err = s.gateway.CreateVirtualAccount(ctx, profileID.String())
	} else {
		account, err = s.gateway.CreateWalletAccount(ctx, profileID.String())
	}
	if err != nil {
		if delErr := s.store.DeleteCreatingWallet(ctx, w.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove creating wallet",
				"request_id", requestcontext.RequestID(ctx),
				"wallet_id", w.ID.String(),
				"error", delErr,
			)
		}
		s.metrics.IncrementWalletCreated(s.mode(), "failed")
		return nil, s.providerError(ctx, w, "CreateWalletAccount", err)
	}
	if err := w.Activate(account.AccountID, account.Address, account.Rails, now); err != nil {
		return nil, err
	}

	// Seed the display cache once; a failure here leaves a zero display balance.
	if cents, err := s.gateway.GetBalance(ctx, account.AccountID); err == nil {
		w.CacheBalance(money.Cents(cents), now)
		s.setCache(ctx, w.ID, money.Cents(cents), now)
	} else {
		s.logger.WarnContext(ctx, "failed to seed wallet balance",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_id", w.ID.String(),
			"error", err,
		)
	}
	if err := s.store.SaveWallet(ctx, w); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save wallet")
	}
	s.metrics.IncrementWalletCreated(s.mode(), "ok")
	s.logAudit(ctx, w, audit.EventWalletCreated, "decision", s.mode())
	return w, nil
}

// GetWallet returns the wallet with its display balance, preferring the shared
// cache over the persisted copy.
func (s *Service) GetWallet(ctx context.Context, accountID id.AccountID) (*models.Wallet, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	if cached, ok, err := s.cache.Get(ctx, w.ID); err == nil && ok {
		w.CacheBalance(cached.Cents, cached.At)
	}
	return w, nil
}

// GetBalance always reads the provider and refreshes the display cache.
func (s *Service) GetBalance(ctx context.Context, accountID id.AccountID) (*models.Balance, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	cents, err := s.freshBalance(ctx, w)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	s.setCache(ctx, w.ID, cents, now)
	w.CacheBalance(cents, now)
	if err := s.store.SaveWallet(ctx, w); err != nil {
		s.logger.WarnContext(ctx, "failed to persist display balance",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_id", w.ID.String(),
			"error", err,
		)
	}
	return models.NewBalance(w.ID, cents, now), nil
}

func (s *Service) freshBalance(ctx context.Context, w *models.Wallet) (money.Cents, error) {
	start := time.Now()
	cents, err := s.gateway.GetBalance(ctx, w.ProviderAccountID)
	s.metrics.ObserveBalanceRead(start)
	if err != nil {
		return 0, s.providerError(ctx, w, "GetBalance", err)
	}
	return money.Cents(cents), nil
}

func (s *Service) setCache(ctx context.Context, walletID id.WalletID, cents money.Cents, at time.Time) {
	if err := s.cache.Set(ctx, walletID, store.CachedBalance{Cents: cents, At: at}); err != nil {
		s.logger.WarnContext(ctx, "failed to cache balance",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_id", walletID.String(),
			"error", err,
		)
	}
}

func (s *Service) invalidateCache(ctx context.Context, walletID id.WalletID) {
	if err := s.cache.Invalidate(ctx, walletID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached balance",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_id", walletID.String(),
			"error", err,
		)
	}
}

// GetDepositInstructions returns funding details for one of the wallet's
// rails. An empty rail selects the first enabled one.
func (s *Service) GetDepositInstructions(ctx context.Context, accountID id.AccountID, rail string) (*models.DepositInstructions, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	rails, err := s.gateway.GetDepositInstructions(ctx, w.ProviderAccountID)
	if err != nil {
		return nil, s.providerError(ctx, w, "GetDepositInstructions", err)
	}
	enabled := make([]provider.Rail, 0, len(rails))
	for _, r := range rails {
		if len(w.Rails) == 0 || slices.Contains(w.Rails, r.Name) {
			enabled = append(enabled, r)
		}
	}
	if len(enabled) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidState, "no deposit rails are enabled for this wallet")
	}
	names := make([]string, 0, len(enabled))
	for _, r := range enabled {
		names = append(names, r.Name)
	}
	selected := enabled[0]
	if rail != "" {
		found := false
		for _, r := range enabled {
			if r.Name == rail {
				selected, found = r, true
				break
			}
		}
		if !found {
			return nil, dErrors.Validation(dErrors.FieldError{Field: "rail", Message: "is not enabled for this wallet"})
		}
	}
	return &models.DepositInstructions{
		Rail:         selected.Name,
		Currency:     selected.Currency,
		Instructions: selected.Instructions,
		Rails:        names,
	}, nil
}

// DepositNotice is a provider report of funds arriving on an account.
type DepositNotice struct {
	ProviderAccountID     string
	ProviderTransactionID string
	AmountCents           money.Cents
	Currency              string
	Rail                  string
	SenderName            string
	State                 string
}

// RecordDeposit books a provider-reported deposit once and drops the cached
// display balance so the next read goes to the provider.
func (s *Service) RecordDeposit(ctx context.Context, n DepositNotice) error {
	if err := n.AmountCents.ValidateInbound(); err != nil {
		return err
	}
	w, err := s.store.FindWalletByProviderAccount(ctx, n.ProviderAccountID)
	if err != nil {
		return storeError(err, "wallet")
	}
	currency := n.Currency
	if currency == "" {
		currency = "usd"
	}
	state := n.State
	if state == "" {
		state = activity.RailFundsReceived
	}
	recorded, err := s.ledger.RecordDeposit(ctx, &activity.Deposit{
		WalletID:              w.ID,
		ProviderTransactionID: n.ProviderTransactionID,
		Rail:                  n.Rail,
		SenderName:            n.SenderName,
		AmountCents:           n.AmountCents,
		Currency:              currency,
		State:                 state,
	})
	if err != nil {
		return err
	}
	if !recorded {
		return nil
	}
	s.invalidateCache(ctx, w.ID)
	s.logAudit(ctx, w, audit.EventDepositReceived,
		"actor_id", "provider",
		"provider_transaction_id", n.ProviderTransactionID,
		"amount_cents", int64(n.AmountCents),
	)
	return nil
}
