package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	activity "walletgate/internal/activity/models"
	directory "walletgate/internal/directory/models"
	"walletgate/internal/provider"
	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

const recipientSearchLimit = 20

var transferKeyNamespace = uuid.MustParse("0c8e1f44-5b8d-4f0e-a0d6-9c3b7a61d2e5")

// SearchRecipients looks up directory entries that can receive a send. The
// caller's own entry is left out.
func (s *Service) SearchRecipients(ctx context.Context, accountID id.AccountID, query string) ([]directory.Entry, error) {
	w, err := s.walletFor(ctx, accountID, false)
	if err != nil {
		return nil, err
	}
	entries, err := s.directory.Search(ctx, query, recipientSearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]directory.Entry, 0, len(entries))
	for _, e := range entries {
		if e.WalletID != nil && *e.WalletID == w.ID {
			continue
		}
		if e.CanReceive() || e.Address != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// resolvedRecipient is a send target the provider can address.
type resolvedRecipient struct {
	destination  provider.Destination
	name         string
	ref          string
	organization *directory.Entry
	wallet       *models.Wallet
}

func (s *Service) resolveRecipient(ctx context.Context, sender *models.Wallet, ref string) (*resolvedRecipient, error) {
	r, ok := models.ParseRecipient(ref)
	if !ok {
		return nil, dErrors.New(dErrors.CodeRecipientNotFound, "recipient must be a directory entry or a crypto address")
	}
	if r.EntryID == nil {
		return &resolvedRecipient{
			destination: provider.Destination{Kind: provider.DestinationCrypto, Address: r.Address, Chain: string(r.Chain)},
			name:        shortAddress(r.Address),
			ref:         r.Address,
		}, nil
	}

	entry, err := s.directory.Get(ctx, *r.EntryID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeRecipientNotFound, "recipient not found")
		}
		return nil, err
	}
	out := &resolvedRecipient{name: entry.Name, ref: entry.ID.String()}
	if entry.IsOrganization() {
		out.organization = entry
	}
	switch {
	case entry.CanReceive():
		rw, err := s.store.FindWallet(ctx, *entry.WalletID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeRecipientNotFound, "recipient has no wallet")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recipient wallet")
		}
		if !rw.IsActive() {
			return nil, dErrors.New(dErrors.CodeRecipientNotFound, "recipient has no active wallet")
		}
		if rw.ID == sender.ID {
			return nil, dErrors.Validation(dErrors.FieldError{Field: "recipient", Message: "cannot send to your own wallet"})
		}
		out.wallet = rw
		out.destination = provider.Destination{Kind: provider.DestinationWallet, AccountID: rw.ProviderAccountID}
	case entry.Address != "":
		parsed, ok := models.ParseRecipient(entry.Address)
		if !ok || parsed.EntryID != nil {
			return nil, dErrors.New(dErrors.CodeRecipientNotFound, "recipient has no usable address")
		}
		out.destination = provider.Destination{Kind: provider.DestinationCrypto, Address: parsed.Address, Chain: string(parsed.Chain)}
	default:
		return nil, dErrors.New(dErrors.CodeRecipientNotFound, "recipient cannot receive funds")
	}
	return out, nil
}

// Send moves funds to a directory entry or a raw crypto address. Sends to
// organizations are booked as donations.
func (s *Service) Send(ctx context.Context, accountID id.AccountID, req *models.SendRequest) (*models.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	w, err := s.walletFor(ctx, accountID, true)
	if err != nil {
		return nil, err
	}
	recipient, err := s.resolveRecipient(ctx, w, req.Recipient)
	if err != nil {
		s.metrics.IncrementFundMovement("send", "rejected", 0)
		return nil, err
	}

	transfer, err := s.moveFunds(ctx, w, "send", req.AmountCents, recipient.destination, transferKey(w.ID, "send", req.IdempotencyKey))
	if err != nil {
		return nil, err
	}

	result := &models.SendResult{
		TransferID:  transfer.TransferID,
		Status:      transfer.Status,
		AmountCents: req.AmountCents,
		Recipient:   recipient.name,
	}
	if err := s.recordSend(ctx, w, recipient, req, transfer, result); err != nil {
		// The provider has already moved the funds; the webhook reconciles the ledger.
		s.logger.ErrorContext(ctx, "failed to record send in ledger",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_id", w.ID.String(),
			"transfer_id", transfer.TransferID,
			"error", err,
		)
	}
	s.logAudit(ctx, w, audit.EventTransferInitiated,
		"decision", string(result.RecordedAs),
		"transfer_id", transfer.TransferID,
		"amount_cents", int64(req.AmountCents),
	)
	return result, nil
}

func (s *Service) recordSend(ctx context.Context, w *models.Wallet, r *resolvedRecipient, req *models.SendRequest, t *provider.TransferResult, result *models.SendResult) error {
	if r.organization != nil {
		d := &activity.Donation{
			WalletID:           w.ID,
			OrganizationID:     r.organization.ID,
			OrganizationName:   r.organization.Name,
			AmountCents:        req.AmountCents,
			Currency:           "usd",
			Frequency:          req.Frequency,
			Message:            req.Message,
			ProviderTransferID: t.TransferID,
			State:              donationState(t.Status),
		}
		result.RecordedAs = activity.TypeDonation
		if err := s.ledger.RecordDonation(ctx, d); err != nil {
			return err
		}
		result.ActivityID = d.ID.String()
		return nil
	}

	sent := &activity.Transfer{
		WalletID:           w.ID,
		Direction:          activity.DirectionSent,
		CounterpartyName:   r.name,
		CounterpartyRef:    r.ref,
		AmountCents:        req.AmountCents,
		Currency:           "usd",
		Frequency:          req.Frequency,
		Message:            req.Message,
		ProviderTransferID: t.TransferID,
		State:              t.Status,
	}
	var received *activity.Transfer
	if r.wallet != nil {
		received = &activity.Transfer{
			WalletID:           r.wallet.ID,
			Direction:          activity.DirectionReceived,
			CounterpartyName:   s.displayName(ctx, w),
			CounterpartyRef:    w.ID.String(),
			AmountCents:        req.AmountCents,
			Currency:           "usd",
			Message:            req.Message,
			ProviderTransferID: t.TransferID,
			State:              t.Status,
		}
		s.invalidateCache(ctx, r.wallet.ID)
	}
	result.RecordedAs = activity.TypeTransferSent
	if err := s.ledger.RecordTransfer(ctx, sent, received); err != nil {
		return err
	}
	result.ActivityID = sent.ID.String()
	return nil
}

// displayName is how a sender appears on the recipient's feed.
func (s *Service) displayName(ctx context.Context, w *models.Wallet) string {
	if e, err := s.directory.FindByWallet(ctx, w.ID); err == nil {
		return e.Name
	}
	return "Wallet " + w.ID.String()[:8]
}

func donationState(transferStatus string) string {
	switch transferStatus {
	case provider.TransferCompleted:
		return activity.DonationSucceeded
	case provider.TransferFailed:
		return activity.DonationFailed
	case provider.TransferCancelled:
		return activity.DonationRefunded
	default:
		return activity.DonationProcessing
	}
}

// Withdraw pays out to a verified external bank account.
func (s *Service) Withdraw(ctx context.Context, accountID id.AccountID, req *models.WithdrawRequest) (*models.WithdrawalResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	w, err := s.walletFor(ctx, accountID, true)
	if err != nil {
		return nil, err
	}
	ext, err := s.store.FindExternalAccount(ctx, w.ID, req.AccountID)
	if err != nil {
		return nil, storeError(err, "external account")
	}
	if !ext.IsVerified() {
		s.metrics.IncrementFundMovement("withdraw", "rejected", 0)
		return nil, dErrors.New(dErrors.CodeAccountNotVerified, "external account is not verified yet")
	}

	dest := provider.Destination{Kind: provider.DestinationExternalAccount, ExternalAccountID: ext.ProviderID}
	transfer, err := s.moveFunds(ctx, w, "withdraw", req.AmountCents, dest, transferKey(w.ID, "withdraw", req.IdempotencyKey))
	if err != nil {
		return nil, err
	}

	wd := &activity.Withdrawal{
		WalletID:           w.ID,
		ExternalAccountID:  ext.ID,
		AccountLast4:       ext.AccountLast4,
		AmountCents:        req.AmountCents,
		Currency:           "usd",
		ProviderTransferID: transfer.TransferID,
		State:              transfer.Status,
	}
	result := &models.WithdrawalResult{
		TransferID:        transfer.TransferID,
		Status:            transfer.Status,
		AmountCents:       req.AmountCents,
		ExternalAccountID: ext.ID,
	}
	if err := s.ledger.RecordWithdrawal(ctx, wd); err != nil {
		s.logger.ErrorContext(ctx, "failed to record withdrawal in ledger",
			"request_id", requestcontext.RequestID(ctx),
			"wallet_id", w.ID.String(),
			"transfer_id", transfer.TransferID,
			"error", err,
		)
	} else {
		result.ActivityID = wd.ID.String()
	}
	s.logAudit(ctx, w, audit.EventWithdrawalInitiated,
		"transfer_id", transfer.TransferID,
		"external_account_id", ext.ID.String(),
		"amount_cents", int64(req.AmountCents),
	)
	return result, nil
}

// moveFunds holds the wallet's funds lock across the fresh balance check and
// transfer initiation. The provider debits at initiation, so the next holder
// of the lock sees the reduced balance.
func (s *Service) moveFunds(ctx context.Context, w *models.Wallet, kind string, amount money.Cents, dest provider.Destination, key string) (*provider.TransferResult, error) {
	waitStart := time.Now()
	unlock, err := s.funds.Lock(ctx, "funds:"+w.ID.String())
	s.metrics.ObserveFundsLockWait(waitStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "wallet is busy, try again")
	}
	defer unlock()

	balance, err := s.freshBalance(ctx, w)
	if err != nil {
		s.metrics.IncrementFundMovement(kind, "failed", 0)
		return nil, err
	}
	if amount > balance {
		s.metrics.IncrementFundMovement(kind, "insufficient", 0)
		s.logAudit(ctx, w, audit.EventFundsRejectedInsufficient,
			"decision", kind,
			"reason", "amount exceeds balance",
			"amount_cents", int64(amount),
		)
		return nil, dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds")
	}

	transfer, err := s.gateway.InitiateTransfer(ctx, w.ProviderAccountID, int64(amount), dest, key)
	if err != nil {
		s.metrics.IncrementFundMovement(kind, "failed", 0)
		return nil, s.providerError(ctx, w, "InitiateTransfer", err)
	}
	s.metrics.IncrementFundMovement(kind, "ok", int64(amount))
	s.setCache(ctx, w.ID, balance-amount, requestcontext.Now(ctx))
	return transfer, nil
}

// transferKey scopes a caller-supplied key to the wallet and operation. Without
// one, every call is a distinct transfer.
func transferKey(walletID id.WalletID, kind, callerKey string) string {
	if callerKey == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(transferKeyNamespace, []byte(walletID.String()+"|"+kind+"|"+callerKey)).String()
}

// shortAddress abbreviates a counterparty address for the activity feed. It
// counts runes so it never splits a multi-byte character.
func shortAddress(addr string) string {
	r := []rune(addr)
	if len(r) <= 12 {
		return addr
	}
	return string(r[:6]) + "…" + string(r[len(r)-4:])
}
