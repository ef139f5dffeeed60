// Package service owns the wallet lifecycle and every fund movement against the
// banking provider.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	activity "walletgate/internal/activity/models"
	directory "walletgate/internal/directory/models"
	"walletgate/internal/provider"
	verification "walletgate/internal/verification/models"
	"walletgate/internal/wallet/metrics"
	"walletgate/internal/wallet/models"
	"walletgate/internal/wallet/store"
	"walletgate/pkg/attrs"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/keylock"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

// Store persists wallets and the resources provisioned for them.
type Store interface {
	CreateWallet(ctx context.Context, w *models.Wallet) error
	SaveWallet(ctx context.Context, w *models.Wallet) error
	DeleteCreatingWallet(ctx context.Context, walletID id.WalletID) error
	FindWallet(ctx context.Context, walletID id.WalletID) (*models.Wallet, error)
	FindWalletByProfile(ctx context.Context, profileID id.ProfileID) (*models.Wallet, error)
	FindWalletByAccount(ctx context.Context, accountID id.AccountID) (*models.Wallet, error)
	FindWalletByProviderAccount(ctx context.Context, providerAccountID string) (*models.Wallet, error)

	InsertExternalAccount(ctx context.Context, a *models.ExternalBankAccount) error
	SaveExternalAccount(ctx context.Context, a *models.ExternalBankAccount) error
	FindExternalAccount(ctx context.Context, walletID id.WalletID, accountID id.ExternalAccountID) (*models.ExternalBankAccount, error)
	FindExternalAccountByProviderID(ctx context.Context, walletID id.WalletID, providerID string) (*models.ExternalBankAccount, error)
	ListExternalAccounts(ctx context.Context, walletID id.WalletID) ([]models.ExternalBankAccount, error)

	FindLiquidationAddress(ctx context.Context, key models.LiquidationKey) (*models.LiquidationAddress, error)
	InsertLiquidationAddress(ctx context.Context, la *models.LiquidationAddress) error
	ListLiquidationAddresses(ctx context.Context, walletID id.WalletID) ([]models.LiquidationAddress, error)

	FindCard(ctx context.Context, walletID id.WalletID) (*models.CardAccount, error)
	InsertCard(ctx context.Context, c *models.CardAccount) error
	SaveCard(ctx context.Context, c *models.CardAccount) error
}

// BalanceCache holds display balances. It never feeds a money decision.
type BalanceCache interface {
	Get(ctx context.Context, walletID id.WalletID) (*store.CachedBalance, bool, error)
	Set(ctx context.Context, walletID id.WalletID, b store.CachedBalance) error
	Invalidate(ctx context.Context, walletID id.WalletID) error
}

// VerificationGate answers whether an account may move money or only read.
type VerificationGate interface {
	RequireApproved(ctx context.Context, accountID id.AccountID) (*verification.Profile, error)
	RequireReadable(ctx context.Context, accountID id.AccountID) (*verification.Profile, error)
}

// Directory resolves send recipients.
type Directory interface {
	Search(ctx context.Context, query string, limit int) ([]directory.Entry, error)
	Get(ctx context.Context, entryID id.EntryID) (*directory.Entry, error)
	FindByWallet(ctx context.Context, walletID id.WalletID) (*directory.Entry, error)
}

// Ledger records completed provider operations for the activity feed.
type Ledger interface {
	RecordDonation(ctx context.Context, d *activity.Donation) error
	RecordTransfer(ctx context.Context, sent *activity.Transfer, received *activity.Transfer) error
	RecordWithdrawal(ctx context.Context, w *activity.Withdrawal) error
	RecordDeposit(ctx context.Context, d *activity.Deposit) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LiquidationDestination is where every liquidation address converts to.
type LiquidationDestination struct {
	Chain    id.Chain
	Currency id.Currency
	Address  string
}

// Service provisions wallets and moves funds. Send and Withdraw hold a
// per-wallet funds lock from the fresh balance read until the provider has
// accepted the transfer; provisioning collapses concurrent callers per
// natural key and relies on store uniqueness for cross-instance races.
type Service struct {
	store          Store
	gateway        provider.Gateway
	gate           VerificationGate
	directory      Directory
	ledger         Ledger
	cache          BalanceCache
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	funds          *keylock.Mutex
	flight         *keylock.Flight
	sandbox        bool
	destination    LiquidationDestination
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithBalanceCache(c BalanceCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithSandbox provisions provider virtual accounts instead of wallet accounts.
func WithSandbox(enabled bool) Option {
	return func(s *Service) {
		s.sandbox = enabled
	}
}

func WithLiquidationDestination(d LiquidationDestination) Option {
	return func(s *Service) {
		s.destination = d
	}
}

func WithKeyLocks(funds *keylock.Mutex, flight *keylock.Flight) Option {
	return func(s *Service) {
		if funds != nil {
			s.funds = funds
		}
		if flight != nil {
			s.flight = flight
		}
	}
}

func New(st Store, gateway provider.Gateway, gate VerificationGate, dir Directory, ledger Ledger, opts ...Option) (*Service, error) {
	switch {
	case st == nil:
		return nil, fmt.Errorf("wallet store is required")
	case gateway == nil:
		return nil, fmt.Errorf("provider gateway is required")
	case gate == nil:
		return nil, fmt.Errorf("verification gate is required")
	case dir == nil:
		return nil, fmt.Errorf("directory is required")
	case ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	}
	svc := &Service{
		store:     st,
		gateway:   gateway,
		gate:      gate,
		directory: dir,
		ledger:    ledger,
		logger:    slog.Default(),
		funds:     keylock.NewMutex(),
		flight:    keylock.NewFlight(),
		destination: LiquidationDestination{
			Chain:    id.ChainEthereum,
			Currency: id.CurrencyUSDC,
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.cache == nil {
		svc.cache = store.NewMemoryBalanceCache(defaultCacheTTL)
	}
	return svc, nil
}

// walletFor resolves the caller's active wallet. Money-moving and provisioning
// operations pass approved=true; a paused profile keeps read access only.
func (s *Service) walletFor(ctx context.Context, accountID id.AccountID, approved bool) (*models.Wallet, error) {
	var err error
	if approved {
		_, err = s.gate.RequireApproved(ctx, accountID)
	} else {
		_, err = s.gate.RequireReadable(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	w, err := s.store.FindWalletByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	if !w.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "wallet is still being created")
	}
	return w, nil
}

// WalletIDForAccount resolves the caller's wallet for read-only views.
func (s *Service) WalletIDForAccount(ctx context.Context, accountID id.AccountID) (id.WalletID, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return id.WalletID{}, err
	}
	return w.ID, nil
}

func (s *Service) logAudit(ctx context.Context, w *models.Wallet, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"account_id", w.AccountID.String(),
		"wallet_id", w.ID.String(),
	)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		args = append(args, "client_ip", ip, "client", requestcontext.Client(ctx))
	}
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		AccountID: w.AccountID,
		Subject:   w.ID.String(),
		Action:    string(event),
		Decision:  attrs.String(attributes, "decision"),
		Reason:    attrs.String(attributes, "reason"),
		ActorID:   attrs.String(attributes, "actor_id"),
		RequestID: requestID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) providerError(ctx context.Context, w *models.Wallet, op string, err error) error {
	s.logger.WarnContext(ctx, "provider call failed",
		"request_id", requestcontext.RequestID(ctx),
		"wallet_id", w.ID.String(),
		"operation", op,
		"category", string(provider.GetCategory(err)),
		"error", err,
	)
	return provider.ToDomain(err)
}

func storeError(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
}
