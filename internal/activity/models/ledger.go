package models

import (
	"time"

	"github.com/google/uuid"

	id "walletgate/pkg/domain"
	"walletgate/pkg/money"
)

// Native ledger rows. Each carries the status string its source reports, so a
// new provider state never needs a schema change; projections normalize it.

type Donation struct {
	ID                 uuid.UUID   `json:"id"`
	WalletID           id.WalletID `json:"wallet_id"`
	OrganizationID     id.EntryID  `json:"organization_id"`
	OrganizationName   string      `json:"organization_name"`
	AmountCents        money.Cents `json:"amount_cents"`
	Currency           string      `json:"currency"`
	Frequency          Frequency   `json:"frequency,omitempty"`
	Message            string      `json:"message,omitempty"`
	ProviderTransferID string      `json:"provider_transfer_id"`
	State              string      `json:"state"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Transfer is one side of a peer transfer. A send to another wallet holder
// writes a sent row on the sender and a received row on the recipient, both
// carrying the same provider transfer id.
type Transfer struct {
	ID                 uuid.UUID   `json:"id"`
	WalletID           id.WalletID `json:"wallet_id"`
	Direction          Direction   `json:"direction"`
	CounterpartyName   string      `json:"counterparty_name"`
	CounterpartyRef    string      `json:"counterparty_ref"`
	AmountCents        money.Cents `json:"amount_cents"`
	Currency           string      `json:"currency"`
	Frequency          Frequency   `json:"frequency,omitempty"`
	Message            string      `json:"message,omitempty"`
	ProviderTransferID string      `json:"provider_transfer_id"`
	State              string      `json:"state"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type Deposit struct {
	ID                    uuid.UUID   `json:"id"`
	WalletID              id.WalletID `json:"wallet_id"`
	ProviderTransactionID string      `json:"provider_transaction_id"`
	Rail                  string      `json:"rail"`
	SenderName            string      `json:"sender_name,omitempty"`
	AmountCents           money.Cents `json:"amount_cents"`
	Currency              string      `json:"currency"`
	State                 string      `json:"state"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

type Withdrawal struct {
	ID                 uuid.UUID            `json:"id"`
	WalletID           id.WalletID          `json:"wallet_id"`
	ExternalAccountID  id.ExternalAccountID `json:"external_account_id"`
	AccountLast4       string               `json:"account_last4"`
	AmountCents        money.Cents          `json:"amount_cents"`
	Currency           string               `json:"currency"`
	ProviderTransferID string               `json:"provider_transfer_id"`
	State              string               `json:"state"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}
