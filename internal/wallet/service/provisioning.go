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

// ProvisionLiquidationAddress returns the wallet's address for (chain,
// currency), creating it at the provider on first use. Concurrent callers for
// the same key all receive the same row.
func (s *Service) ProvisionLiquidationAddress(ctx context.Context, accountID id.AccountID, chain id.Chain, currency id.Currency) (*models.LiquidationAddress, error) {
	w, err := s.walletFor(ctx, accountID, true)
	if err != nil {
		return nil, err
	}
	key := models.LiquidationKey{WalletID: w.ID, Chain: chain, Currency: currency}
	if la, err := s.store.FindLiquidationAddress(ctx, key); err == nil {
		s.metrics.IncrementProvisioning("liquidation_address", "existing")
		return la, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load liquidation address")
	}

	v, _, err := s.flight.Do(ctx, "liquidation:"+key.String(), func(ctx context.Context) (any, error) {
		return s.createLiquidationAddress(ctx, w, key)
	})
	if err != nil {
		return nil, err
	}
	la := *v.(*models.LiquidationAddress)
	return &la, nil
}

func (s *Service) createLiquidationAddress(ctx context.Context, w *models.Wallet, key models.LiquidationKey) (*models.LiquidationAddress, error) {
	if la, err := s.store.FindLiquidationAddress(ctx, key); err == nil {
		s.metrics.IncrementProvisioning("liquidation_address", "existing")
		return la, nil
	}
	res, err := s.gateway.CreateLiquidationAddress(ctx, w.ProviderAccountID, provider.LiquidationRequest{
		Chain:               string(key.Chain),
		Currency:            string(key.Currency),
		DestinationChain:    string(s.destination.Chain),
		DestinationCurrency: string(s.destination.Currency),
		DestinationAddress:  s.destination.Address,
	}, key.IdempotencyKey())
	if err != nil {
		return nil, s.providerError(ctx, w, "CreateLiquidationAddress", err)
	}
	la := &models.LiquidationAddress{
		ID:                  uuid.New(),
		WalletID:            w.ID,
		Chain:               key.Chain,
		Currency:            key.Currency,
		DestinationChain:    s.destination.Chain,
		DestinationCurrency: s.destination.Currency,
		ProviderID:          res.LiquidationAddressID,
		Address:             res.Address,
		CreatedAt:           requestcontext.Now(ctx),
	}
	if err := s.store.InsertLiquidationAddress(ctx, la); err != nil {
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save liquidation address")
		}
		s.duplicateProvisioning(ctx, w, "liquidation_address", key.String())
		return s.store.FindLiquidationAddress(ctx, key)
	}
	s.metrics.IncrementProvisioning("liquidation_address", "created")
	s.logAudit(ctx, w, audit.EventLiquidationAddressIssued,
		"chain", string(key.Chain),
		"currency", string(key.Currency),
		"liquidation_address_id", la.ProviderID,
	)
	return la, nil
}

func (s *Service) ListLiquidationAddresses(ctx context.Context, accountID id.AccountID) ([]models.LiquidationAddress, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListLiquidationAddresses(ctx, w.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list liquidation addresses")
	}
	if out == nil {
		out = []models.LiquidationAddress{}
	}
	return out, nil
}

// ProvisionCardAccount issues the wallet's card, or returns it if one exists.
func (s *Service) ProvisionCardAccount(ctx context.Context, accountID id.AccountID, cardholderName string) (*models.CardAccount, error) {
	w, err := s.walletFor(ctx, accountID, true)
	if err != nil {
		return nil, err
	}
	if c, err := s.store.FindCard(ctx, w.ID); err == nil {
		s.metrics.IncrementProvisioning("card", "existing")
		return c, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load card")
	}

	v, _, err := s.flight.Do(ctx, "card:"+w.ID.String(), func(ctx context.Context) (any, error) {
		return s.createCard(ctx, w, cardholderName)
	})
	if err != nil {
		return nil, err
	}
	c := *v.(*models.CardAccount)
	return &c, nil
}

func (s *Service) createCard(ctx context.Context, w *models.Wallet, cardholderName string) (*models.CardAccount, error) {
	if c, err := s.store.FindCard(ctx, w.ID); err == nil {
		s.metrics.IncrementProvisioning("card", "existing")
		return c, nil
	}
	res, err := s.gateway.CreateCardAccount(ctx, w.ProviderAccountID, models.CardIdempotencyKey(w.ID))
	if err != nil {
		return nil, s.providerError(ctx, w, "CreateCardAccount", err)
	}
	now := requestcontext.Now(ctx)
	c := &models.CardAccount{
		ID:             uuid.New(),
		WalletID:       w.ID,
		ProviderCardID: res.CardAccountID,
		MaskedNumber:   res.MaskedNumber,
		Expiry:         res.Expiry,
		CardholderName: cardholderName,
		Status:         models.CardActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.InsertCard(ctx, c); err != nil {
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save card")
		}
		s.duplicateProvisioning(ctx, w, "card", w.ID.String())
		return s.store.FindCard(ctx, w.ID)
	}
	s.metrics.IncrementProvisioning("card", "created")
	s.logAudit(ctx, w, audit.EventCardProvisioned, "card_account_id", c.ProviderCardID)
	return c, nil
}

func (s *Service) GetCard(ctx context.Context, accountID id.AccountID) (*models.CardAccount, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	c, err := s.store.FindCard(ctx, w.ID)
	if err != nil {
		return nil, storeError(err, "card")
	}
	return c, nil
}

// SetCardFrozen freezes or unfreezes the wallet's card. Freezing stays
// available while the profile is paused; unfreezing needs an approved profile.
func (s *Service) SetCardFrozen(ctx context.Context, accountID id.AccountID, frozen bool) (*models.CardAccount, error) {
	w, err := s.walletFor(ctx, accountID, !frozen)
	if err != nil {
		return nil, err
	}
	c, err := s.store.FindCard(ctx, w.ID)
	if err != nil {
		return nil, storeError(err, "card")
	}
	if !c.SetFrozen(frozen, requestcontext.Now(ctx)) {
		return c, nil
	}
	if err := s.gateway.SetCardFrozen(ctx, w.ProviderAccountID, c.ProviderCardID, frozen); err != nil {
		return nil, s.providerError(ctx, w, "SetCardFrozen", err)
	}
	if err := s.store.SaveCard(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save card")
	}
	event := audit.EventCardUnfrozen
	if frozen {
		event = audit.EventCardFrozen
	}
	s.logAudit(ctx, w, event, "card_account_id", c.ProviderCardID)
	return c, nil
}

// duplicateProvisioning records a lost insert race. Callers still receive the
// stored winner, so this only surfaces in logs and audit.
func (s *Service) duplicateProvisioning(ctx context.Context, w *models.Wallet, resource, key string) {
	s.metrics.IncrementProvisioning(resource, "raced")
	s.logger.ErrorContext(ctx, "duplicate provisioning blocked",
		"request_id", requestcontext.RequestID(ctx),
		"wallet_id", w.ID.String(),
		"resource", resource,
		"key", key,
		"error", dErrors.New(dErrors.CodeDuplicateProvisioning, resource+" already provisioned"),
	)
	s.logAudit(ctx, w, audit.EventDuplicateProvisioningBlocked, "reason", resource)
}
