package models

import (
	"time"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
)

type Status string

const (
	StatusCreating Status = "creating"
	StatusActive   Status = "active"
)

// Wallet is the platform's record of a provider account. The balance is a
// display cache; every money decision re-reads it from the provider.
type Wallet struct {
	ID                id.WalletID  `json:"id"`
	ProfileID         id.ProfileID `json:"profile_id"`
	AccountID         id.AccountID `json:"account_id"`
	ProviderAccountID string       `json:"provider_account_id,omitempty"`
	Status            Status       `json:"status"`
	Sandbox           bool         `json:"sandbox"`
	CachedBalance     money.Cents  `json:"cached_balance_cents"`
	CachedAt          *time.Time   `json:"cached_at,omitempty"`
	Address           string       `json:"address,omitempty"`
	Rails             []string     `json:"rails,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewCreating returns the placeholder row written before the provider call.
func NewCreating(walletID id.WalletID, profileID id.ProfileID, accountID id.AccountID, sandbox bool, now time.Time) *Wallet {
	return &Wallet{
		ID:        walletID,
		ProfileID: profileID,
		AccountID: accountID,
		Status:    StatusCreating,
		Sandbox:   sandbox,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (w *Wallet) IsActive() bool {
	return w.Status == StatusActive
}

// Activate binds the provider account. The provider id never changes once set.
func (w *Wallet) Activate(providerAccountID, address string, rails []string, now time.Time) error {
	if w.ProviderAccountID != "" && w.ProviderAccountID != providerAccountID {
		return dErrors.New(dErrors.CodeInvariantViolation, "provider account id is immutable")
	}
	w.ProviderAccountID = providerAccountID
	w.Address = address
	w.Rails = rails
	w.Status = StatusActive
	w.UpdatedAt = now
	return nil
}

func (w *Wallet) CacheBalance(balance money.Cents, at time.Time) {
	w.CachedBalance = balance
	w.CachedAt = &at
}

// Balance is a fresh provider read.
type Balance struct {
	WalletID    id.WalletID `json:"wallet_id"`
	AmountCents money.Cents `json:"amount_cents"`
	Amount      string      `json:"amount"`
	Currency    string      `json:"currency"`
	AsOf        time.Time   `json:"as_of"`
}

func NewBalance(walletID id.WalletID, cents money.Cents, at time.Time) *Balance {
	return &Balance{WalletID: walletID, AmountCents: cents, Amount: cents.String(), Currency: "usd", AsOf: at}
}

// DepositInstructions shows how to fund the wallet over the selected rail.
type DepositInstructions struct {
	Rail         string            `json:"rail"`
	Currency     string            `json:"currency"`
	Instructions map[string]string `json:"instructions"`
	Rails        []string          `json:"available_rails"`
}
