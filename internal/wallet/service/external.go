package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"walletgate/internal/provider"
	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

// LinkExternalAccount registers an outside bank account with the provider.
// Details are validated before any provider call; linking the same account
// twice returns the first link.
func (s *Service) LinkExternalAccount(ctx context.Context, accountID id.AccountID, details *models.BankDetails) (*models.ExternalBankAccount, error) {
	if err := details.Validate(); err != nil {
		return nil, err
	}
	w, err := s.walletFor(ctx, accountID, true)
	if err != nil {
		return nil, err
	}

	ext, err := s.gateway.CreateExternalAccount(ctx, w.ProviderAccountID, provider.BankDetails{
		RoutingNumber:   details.RoutingNumber,
		AccountNumber:   details.AccountNumber,
		AccountType:     string(details.AccountType),
		HolderFirstName: details.HolderFirstName,
		HolderLastName:  details.HolderLastName,
		HolderAddress:   provider.Address(details.HolderAddress),
	}, details.IdempotencyKey(w.ID))
	if err != nil {
		return nil, s.providerError(ctx, w, "CreateExternalAccount", err)
	}

	if existing, err := s.store.FindExternalAccountByProviderID(ctx, w.ID, ext.ExternalAccountID); err == nil {
		return existing, nil
	}
	now := requestcontext.Now(ctx)
	a := &models.ExternalBankAccount{
		ID:              id.ExternalAccountID(uuid.New()),
		WalletID:        w.ID,
		ProviderID:      ext.ExternalAccountID,
		RoutingNumber:   details.RoutingNumber,
		AccountLast4:    details.Last4(),
		AccountType:     details.AccountType,
		Status:          models.ExternalPending,
		HolderFirstName: details.HolderFirstName,
		HolderLastName:  details.HolderLastName,
		HolderAddress:   details.HolderAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	a.ApplyStatus(models.ExternalStatus(ext.Status), now)
	if err := s.store.InsertExternalAccount(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return s.store.FindExternalAccountByProviderID(ctx, w.ID, ext.ExternalAccountID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save external account")
	}
	s.logAudit(ctx, w, audit.EventExternalAccountLinked,
		"external_account_id", a.ID.String(),
		"decision", string(a.Status),
	)
	return a, nil
}

func (s *Service) ListExternalAccounts(ctx context.Context, accountID id.AccountID) ([]models.ExternalBankAccount, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ListExternalAccounts(ctx, w.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list external accounts")
	}
	if accounts == nil {
		accounts = []models.ExternalBankAccount{}
	}
	return accounts, nil
}

// RefreshExternalAccount polls the provider for a pending account.
func (s *Service) RefreshExternalAccount(ctx context.Context, accountID id.AccountID, externalID id.ExternalAccountID) (*models.ExternalBankAccount, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	a, err := s.store.FindExternalAccount(ctx, w.ID, externalID)
	if err != nil {
		return nil, storeError(err, "external account")
	}
	if a.IsVerified() {
		return a, nil
	}
	ext, err := s.gateway.GetExternalAccount(ctx, w.ProviderAccountID, a.ProviderID)
	if err != nil {
		return nil, s.providerError(ctx, w, "GetExternalAccount", err)
	}
	if err := s.applyExternalStatus(ctx, w, a, ext.Status, ""); err != nil {
		return nil, err
	}
	return a, nil
}

// ApplyExternalAccountStatus records a provider-pushed status change.
func (s *Service) ApplyExternalAccountStatus(ctx context.Context, providerAccountID, providerExternalID, status string) error {
	w, err := s.store.FindWalletByProviderAccount(ctx, providerAccountID)
	if err != nil {
		return storeError(err, "wallet")
	}
	a, err := s.store.FindExternalAccountByProviderID(ctx, w.ID, providerExternalID)
	if err != nil {
		return storeError(err, "external account")
	}
	return s.applyExternalStatus(ctx, w, a, status, "provider")
}

func (s *Service) applyExternalStatus(ctx context.Context, w *models.Wallet, a *models.ExternalBankAccount, status, actor string) error {
	if !a.ApplyStatus(models.ExternalStatus(status), requestcontext.Now(ctx)) {
		return nil
	}
	if err := s.store.SaveExternalAccount(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save external account")
	}
	s.logAudit(ctx, w, audit.EventExternalAccountVerified,
		"external_account_id", a.ID.String(),
		"actor_id", actor,
	)
	return nil
}
