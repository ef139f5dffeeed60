package models

import (
	"regexp"
	"strings"

	activity "walletgate/internal/activity/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
)

var (
	evmAddress     = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	solanaAddress  = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	stellarAddress = regexp.MustCompile(`^G[A-Z2-7]{55}$`)
)

// Recipient is what a send resolves to: a directory entry or a raw address.
type Recipient struct {
	EntryID *id.EntryID
	Address string
	Chain   id.Chain
}

// ParseRecipient classifies a recipient reference. It does not check that a
// directory entry exists.
func ParseRecipient(ref string) (Recipient, bool) {
	ref = strings.TrimSpace(ref)
	if entryID, err := id.ParseEntryID(ref); err == nil {
		return Recipient{EntryID: &entryID}, true
	}
	switch {
	case evmAddress.MatchString(ref):
		return Recipient{Address: ref, Chain: id.ChainEthereum}, true
	case stellarAddress.MatchString(ref):
		return Recipient{Address: ref, Chain: id.ChainStellar}, true
	case solanaAddress.MatchString(ref):
		return Recipient{Address: ref, Chain: id.ChainSolana}, true
	}
	return Recipient{}, false
}

type SendRequest struct {
	Amount         string             `json:"amount"`
	Recipient      string             `json:"recipient"`
	Message        string             `json:"message,omitempty"`
	Frequency      activity.Frequency `json:"frequency,omitempty"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`

	AmountCents money.Cents `json:"-"`
}

func (r *SendRequest) Validate() error {
	r.Recipient = strings.TrimSpace(r.Recipient)
	r.Message = strings.TrimSpace(r.Message)
	r.Frequency = activity.Frequency(strings.ToLower(strings.TrimSpace(string(r.Frequency))))
	var errs []dErrors.FieldError
	cents, err := money.Parse(r.Amount)
	if err != nil {
		errs = append(errs, dErrors.FieldsOf(err)...)
	}
	if r.Recipient == "" {
		errs = append(errs, dErrors.FieldError{Field: "recipient", Message: "is required"})
	}
	if len(r.Message) > 280 {
		errs = append(errs, dErrors.FieldError{Field: "message", Message: "must be at most 280 characters"})
	}
	if !r.Frequency.Valid() {
		errs = append(errs, dErrors.FieldError{Field: "frequency", Message: "must be weekly, monthly or yearly"})
	}
	if len(r.IdempotencyKey) > 128 {
		errs = append(errs, dErrors.FieldError{Field: "idempotency_key", Message: "must be at most 128 characters"})
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	r.AmountCents = cents
	return nil
}

type WithdrawRequest struct {
	Amount            string `json:"amount"`
	ExternalAccountID string `json:"external_account_id"`
	IdempotencyKey    string `json:"idempotency_key,omitempty"`

	AmountCents money.Cents          `json:"-"`
	AccountID   id.ExternalAccountID `json:"-"`
}

func (r *WithdrawRequest) Validate() error {
	var errs []dErrors.FieldError
	cents, err := money.Parse(r.Amount)
	if err != nil {
		errs = append(errs, dErrors.FieldsOf(err)...)
	}
	accountID, err := id.ParseExternalAccountID(r.ExternalAccountID)
	if err != nil {
		errs = append(errs, dErrors.FieldError{Field: "external_account_id", Message: "must be a linked account id"})
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	r.AmountCents, r.AccountID = cents, accountID
	return nil
}

// SendResult is what the caller sees after a successful send.
type SendResult struct {
	TransferID  string        `json:"transfer_id"`
	Status      string        `json:"status"`
	AmountCents money.Cents   `json:"amount_cents"`
	Recipient   string        `json:"recipient"`
	RecordedAs  activity.Type `json:"recorded_as"`
	ActivityID  string        `json:"activity_id"`
}

type WithdrawalResult struct {
	TransferID        string               `json:"transfer_id"`
	Status            string               `json:"status"`
	AmountCents       money.Cents          `json:"amount_cents"`
	ExternalAccountID id.ExternalAccountID `json:"external_account_id"`
	ActivityID        string               `json:"activity_id"`
}
