package models

import (
	"time"

	"walletgate/pkg/money"
)

// Type tags the source an Activity was projected from.
type Type string

const (
	TypeDonation         Type = "donation"
	TypeTransferSent     Type = "transfer_sent"
	TypeTransferReceived Type = "transfer_received"
	TypeDeposit          Type = "deposit"
	TypeWithdrawal       Type = "withdrawal"
)

// Status is the normalized state shown in the feed. Each source keeps its own
// vocabulary and maps onto this one in its projection.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Frequency is the recurrence a donor or sender chose. Empty means one-off.
type Frequency string

const (
	FrequencyOnce    Frequency = ""
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Activity is one feed item. Amount is signed: money leaving the wallet is negative.
type Activity struct {
	ID                    string      `json:"id"`
	Type                  Type        `json:"type"`
	AmountCents           money.Cents `json:"amount_cents"`
	Amount                string      `json:"amount"`
	Currency              string      `json:"currency"`
	Timestamp             time.Time   `json:"timestamp"`
	Status                Status      `json:"status"`
	Counterparty          string      `json:"counterparty"`
	Frequency             Frequency   `json:"frequency,omitempty"`
	Message               string      `json:"message,omitempty"`
	ProviderTransactionID string      `json:"provider_transaction_id,omitempty"`
}

// Newer orders activities newest first, ties broken by id descending.
func Newer(a, b Activity) int {
	if !a.Timestamp.Equal(b.Timestamp) {
		if a.Timestamp.After(b.Timestamp) {
			return -1
		}
		return 1
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

// Page is one slice of the feed. AsOf pins the snapshot; clients pass it back
// for later pages.
type Page struct {
	Items    []Activity `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	HasMore  bool       `json:"has_more"`
	AsOf     time.Time  `json:"as_of"`
}
