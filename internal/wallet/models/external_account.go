package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
)

type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
)

type ExternalStatus string

const (
	ExternalPending  ExternalStatus = "pending"
	ExternalVerified ExternalStatus = "verified"
)

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ExternalBankAccount is a linked outside account. Only the last four digits
// of the account number are kept.
type ExternalBankAccount struct {
	ID              id.ExternalAccountID `json:"id"`
	WalletID        id.WalletID          `json:"wallet_id"`
	ProviderID      string               `json:"provider_external_account_id"`
	RoutingNumber   string               `json:"routing_number"`
	AccountLast4    string               `json:"account_last4"`
	AccountType     AccountType          `json:"account_type"`
	Status          ExternalStatus       `json:"status"`
	HolderFirstName string               `json:"holder_first_name"`
	HolderLastName  string               `json:"holder_last_name"`
	HolderAddress   Address              `json:"holder_address"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (a *ExternalBankAccount) IsVerified() bool {
	return a.Status == ExternalVerified
}

// ApplyStatus records a provider-reported status and reports whether it changed.
// Verification is one-way.
func (a *ExternalBankAccount) ApplyStatus(status ExternalStatus, now time.Time) bool {
	if status != ExternalVerified || a.Status == ExternalVerified {
		return false
	}
	a.Status = ExternalVerified
	a.UpdatedAt = now
	return true
}

// BankDetails is the link request. The full account number only ever travels
// to the provider.
type BankDetails struct {
	RoutingNumber   string      `json:"routing_number"`
	AccountNumber   string      `json:"account_number"`
	AccountType     AccountType `json:"account_type"`
	HolderFirstName string      `json:"holder_first_name"`
	HolderLastName  string      `json:"holder_last_name"`
	HolderAddress   Address     `json:"holder_address"`
}

func (b *BankDetails) Validate() error {
	b.RoutingNumber = strings.TrimSpace(b.RoutingNumber)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.AccountType = AccountType(strings.ToLower(strings.TrimSpace(string(b.AccountType))))
	b.HolderFirstName = strings.TrimSpace(b.HolderFirstName)
	b.HolderLastName = strings.TrimSpace(b.HolderLastName)

	var errs []dErrors.FieldError
	if len(b.RoutingNumber) != 9 || !allDigits(b.RoutingNumber) {
		errs = append(errs, dErrors.FieldError{Field: "routing_number", Message: "must be exactly 9 digits"})
	}
	if len(b.AccountNumber) < 4 || len(b.AccountNumber) > 17 || !allDigits(b.AccountNumber) {
		errs = append(errs, dErrors.FieldError{Field: "account_number", Message: "must be 4 to 17 digits"})
	}
	if b.AccountType != AccountChecking && b.AccountType != AccountSavings {
		errs = append(errs, dErrors.FieldError{Field: "account_type", Message: "must be checking or savings"})
	}
	if b.HolderFirstName == "" {
		errs = append(errs, dErrors.FieldError{Field: "holder_first_name", Message: "is required"})
	}
	if b.HolderLastName == "" {
		errs = append(errs, dErrors.FieldError{Field: "holder_last_name", Message: "is required"})
	}
	for _, f := range []struct{ path, value string }{
		{"holder_address.line1", b.HolderAddress.Line1},
		{"holder_address.city", b.HolderAddress.City},
		{"holder_address.state", b.HolderAddress.State},
		{"holder_address.postal_code", b.HolderAddress.PostalCode},
		{"holder_address.country", b.HolderAddress.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, dErrors.FieldError{Field: f.path, Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}

func (b *BankDetails) Last4() string {
	return b.AccountNumber[len(b.AccountNumber)-4:]
}

var bankKeyNamespace = uuid.MustParse("6f1c3c52-7a0e-4b7f-9f4e-2f3f0e5e8a11")

// IdempotencyKey is stable for the same account linked to the same wallet.
func (b *BankDetails) IdempotencyKey(walletID id.WalletID) string {
	return uuid.NewSHA1(bankKeyNamespace, []byte(walletID.String()+"|"+b.RoutingNumber+"|"+b.AccountNumber)).String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
