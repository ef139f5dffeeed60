package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
)

// LiquidationAddress converts crypto received on (Chain, Currency) into the
// configured destination asset. Rows are never deleted.
type LiquidationAddress struct {
	ID                  uuid.UUID   `json:"id"`
	WalletID            id.WalletID `json:"wallet_id"`
	Chain               id.Chain    `json:"chain"`
	Currency            id.Currency `json:"currency"`
	DestinationChain    id.Chain    `json:"destination_chain"`
	DestinationCurrency id.Currency `json:"destination_currency"`
	ProviderID          string      `json:"liquidation_address_id"`
	Address             string      `json:"address"`
	CreatedAt           time.Time   `json:"created_at"`
}

// LiquidationKey is the natural identity of a liquidation address.
type LiquidationKey struct {
	WalletID id.WalletID
	Chain    id.Chain
	Currency id.Currency
}

func (k LiquidationKey) String() string {
	return k.WalletID.String() + ":" + string(k.Chain) + ":" + string(k.Currency)
}

// IdempotencyKey is derived from the natural key so provider retries replay.
func (k LiquidationKey) IdempotencyKey() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("liquidation:"+k.String())).String()
}

type CardStatus string

const (
	CardActive CardStatus = "active"
	CardFrozen CardStatus = "frozen"
)

type CardAccount struct {
	ID             uuid.UUID   `json:"id"`
	WalletID       id.WalletID `json:"wallet_id"`
	ProviderCardID string      `json:"card_account_id"`
	MaskedNumber   string      `json:"masked_number"`
	Expiry         string      `json:"expiry"`
	CardholderName string      `json:"cardholder_name"`
	Status         CardStatus  `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func CardIdempotencyKey(walletID id.WalletID) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("card:"+walletID.String())).String()
}

// SetFrozen reports whether the status changed.
func (c *CardAccount) SetFrozen(frozen bool, now time.Time) bool {
	next := CardActive
	if frozen {
		next = CardFrozen
	}
	if c.Status == next {
		return false
	}
	c.Status = next
	c.UpdatedAt = now
	return true
}

type LiquidationRequest struct {
	Chain    string `json:"chain"`
	Currency string `json:"currency"`

	ParsedChain    id.Chain    `json:"-"`
	ParsedCurrency id.Currency `json:"-"`
}

func (r *LiquidationRequest) Validate() error {
	var errs []dErrors.FieldError
	chain, err := id.ParseChain(r.Chain)
	if err != nil {
		errs = append(errs, dErrors.FieldError{Field: "chain", Message: "is not supported"})
	}
	currency, err := id.ParseCurrency(r.Currency)
	if err != nil || currency == id.CurrencyUSD {
		errs = append(errs, dErrors.FieldError{Field: "currency", Message: "must be a supported crypto currency"})
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	r.ParsedChain, r.ParsedCurrency = chain, currency
	return nil
}

type CardRequest struct {
	CardholderName string `json:"cardholder_name"`
}

func (r *CardRequest) Validate() error {
	r.CardholderName = strings.Join(strings.Fields(r.CardholderName), " ")
	if r.CardholderName == "" {
		return dErrors.Validation(dErrors.FieldError{Field: "cardholder_name", Message: "is required"})
	}
	if len(r.CardholderName) > 64 {
		return dErrors.Validation(dErrors.FieldError{Field: "cardholder_name", Message: "must be at most 64 characters"})
	}
	return nil
}

type FreezeRequest struct {
	Frozen bool `json:"frozen"`
}
