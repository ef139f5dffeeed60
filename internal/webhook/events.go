package webhook

import (
	"encoding/json"
	"strings"

	dErrors "walletgate/pkg/domain-errors"
)

type EventType string

const (
	EventVerificationUpdated    EventType = "verification.updated"
	EventDepositReceived        EventType = "deposit.received"
	EventTransferUpdated        EventType = "transfer.updated"
	EventExternalAccountUpdated EventType = "external_account.updated"
)

// Envelope is the outer shape of every provider callback.
type Envelope struct {
	ID   string          `json:"id"`
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (e *Envelope) Validate() error {
	e.Type = EventType(strings.ToLower(strings.TrimSpace(string(e.Type))))
	var errs []dErrors.FieldError
	if e.Type == "" {
		errs = append(errs, dErrors.FieldError{Field: "type", Message: "is required"})
	}
	if len(e.Data) == 0 {
		errs = append(errs, dErrors.FieldError{Field: "data", Message: "is required"})
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}

type verificationUpdated struct {
	CustomerID string `json:"customer_id"`
}

type depositReceived struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Rail          string `json:"rail"`
	SenderName    string `json:"sender_name"`
	State         string `json:"state"`
}

func (d *depositReceived) Validate() error {
	var errs []dErrors.FieldError
	if d.AccountID == "" {
		errs = append(errs, dErrors.FieldError{Field: "data.account_id", Message: "is required"})
	}
	if d.TransactionID == "" {
		errs = append(errs, dErrors.FieldError{Field: "data.transaction_id", Message: "is required"})
	}
	if d.AmountCents <= 0 {
		errs = append(errs, dErrors.FieldError{Field: "data.amount_cents", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}

type transferUpdated struct {
	TransferID string `json:"transfer_id"`
	State      string `json:"state"`
}

type externalAccountUpdated struct {
	AccountID         string `json:"account_id"`
	ExternalAccountID string `json:"external_account_id"`
	Status            string `json:"status"`
}

func decodeData[T any](raw json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid event data")
	}
	return &out, nil
}
