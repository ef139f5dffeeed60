package models

import (
	"strings"
	"time"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
)

type EntryType string

const (
	EntryUser         EntryType = "user"
	EntryOrganization EntryType = "organization"
)

// Entry is a searchable recipient. Only entries with a wallet can receive funds.
type Entry struct {
	ID        id.EntryID   `json:"id"`
	Type      EntryType    `json:"type"`
	Name      string       `json:"name"`
	Email     string       `json:"email,omitempty"`
	Address   string       `json:"address,omitempty"`
	WalletID  *id.WalletID `json:"wallet_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (e *Entry) CanReceive() bool {
	return e.WalletID != nil && !e.WalletID.IsNil()
}

func (e *Entry) IsOrganization() bool {
	return e.Type == EntryOrganization
}

type CreateEntryRequest struct {
	Type     EntryType `json:"type"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Address  string    `json:"address,omitempty"`
	WalletID string    `json:"wallet_id,omitempty"`
}

func (r *CreateEntryRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	var errs []dErrors.FieldError
	if r.Type != EntryUser && r.Type != EntryOrganization {
		errs = append(errs, dErrors.FieldError{Field: "type", Message: "must be user or organization"})
	}
	if r.Name == "" {
		errs = append(errs, dErrors.FieldError{Field: "name", Message: "is required"})
	}
	if r.WalletID != "" {
		if _, err := id.ParseWalletID(r.WalletID); err != nil {
			errs = append(errs, dErrors.FieldError{Field: "wallet_id", Message: "must be a wallet id"})
		}
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}
