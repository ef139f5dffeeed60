// Package provider is the boundary to the compliance and banking provider.
// The core depends only on Gateway; the HTTP adapter owns the wire format and
// Sandbox is a deterministic in-process stand-in for tests and local runs.
package provider

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Gateway

import (
	"context"
)

// Provider-side verification statuses.
const (
	StatusNotStarted            = "not_started"
	StatusIncomplete            = "incomplete"
	StatusUnderReview           = "under_review"
	StatusAwaitingQuestionnaire = "awaiting_questionnaire"
	StatusAwaitingUBO           = "awaiting_ubo"
	StatusApproved              = "approved"
	StatusRejected              = "rejected"
	StatusPaused                = "paused"
	StatusOffboarded            = "offboarded"
)

// Provider-side document, account and transfer statuses.
const (
	DocumentPending  = "pending"
	DocumentApproved = "approved"
	DocumentRejected = "rejected"

	ExternalAccountPending  = "pending"
	ExternalAccountVerified = "verified"

	TransferPending   = "pending"
	TransferCompleted = "completed"
	TransferFailed    = "failed"
	TransferCancelled = "cancelled"
)

type Gateway interface {
	CreateOrUpdateIndividual(ctx context.Context, ref string, fields map[string]string) (*SubmissionResult, error)
	CreateOrUpdateBusiness(ctx context.Context, ref string, fields map[string]string, controlPerson map[string]string) (*SubmissionResult, error)
	UploadDocument(ctx context.Context, ref string, doc DocumentUpload) (*DocumentResult, error)
	GetStatus(ctx context.Context, ref string) (*StatusResult, error)
	CreateControlPersonSession(ctx context.Context, ref string) (*Session, error)

	CreateWalletAccount(ctx context.Context, ref string) (*Account, error)
	CreateVirtualAccount(ctx context.Context, ref string) (*Account, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	GetDepositInstructions(ctx context.Context, accountID string) ([]Rail, error)

	CreateExternalAccount(ctx context.Context, accountID string, details BankDetails, key string) (*ExternalAccount, error)
	GetExternalAccount(ctx context.Context, accountID, externalAccountID string) (*ExternalAccount, error)
	CreateLiquidationAddress(ctx context.Context, accountID string, req LiquidationRequest, key string) (*LiquidationAddress, error)
	CreateCardAccount(ctx context.Context, accountID string, key string) (*CardAccount, error)
	SetCardFrozen(ctx context.Context, accountID, cardID string, frozen bool) error
	InitiateTransfer(ctx context.Context, accountID string, amountCents int64, dest Destination, key string) (*TransferResult, error)
}

type SubmissionResult struct {
	Status          string   `json:"status"`
	RequestedFields []string `json:"requested_fields,omitempty"`
}

type DocumentUpload struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename,omitempty"`
	Content  []byte `json:"content"`
}

type DocumentResult struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type DocumentState struct {
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type StatusResult struct {
	VerificationStatus string          `json:"verification_status"`
	Documents          []DocumentState `json:"documents,omitempty"`
	RequestedFields    []string        `json:"requested_fields,omitempty"`
	RefillFields       []string        `json:"refill_fields,omitempty"`
	RefillMessage      string          `json:"refill_message,omitempty"`
}

type Session struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type Account struct {
	AccountID string   `json:"account_id"`
	Address   string   `json:"address"`
	Rails     []string `json:"rails,omitempty"`
}

// Rail describes how to fund the account over one payment network.
type Rail struct {
	Name         string            `json:"name"`
	Currency     string            `json:"currency"`
	Instructions map[string]string `json:"instructions"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// BankDetails carries the full account number to the provider. It is never persisted here.
type BankDetails struct {
	RoutingNumber   string  `json:"routing_number"`
	AccountNumber   string  `json:"account_number"`
	AccountType     string  `json:"account_type"`
	HolderFirstName string  `json:"holder_first_name"`
	HolderLastName  string  `json:"holder_last_name"`
	HolderAddress   Address `json:"holder_address"`
}

type ExternalAccount struct {
	ExternalAccountID string `json:"external_account_id"`
	Status            string `json:"status"`
}

type LiquidationRequest struct {
	Chain               string `json:"chain"`
	Currency            string `json:"currency"`
	DestinationChain    string `json:"destination_chain"`
	DestinationCurrency string `json:"destination_currency"`
	DestinationAddress  string `json:"destination_address,omitempty"`
}

type LiquidationAddress struct {
	LiquidationAddressID string `json:"liquidation_address_id"`
	Address              string `json:"address"`
}

type CardAccount struct {
	CardAccountID string `json:"card_account_id"`
	MaskedNumber  string `json:"masked_number"`
	Expiry        string `json:"expiry"`
}

// DestinationKind selects which Destination fields are meaningful.
type DestinationKind string

const (
	DestinationWallet          DestinationKind = "wallet"
	DestinationCrypto          DestinationKind = "crypto"
	DestinationExternalAccount DestinationKind = "external_account"
)

type Destination struct {
	Kind              DestinationKind `json:"kind"`
	AccountID         string          `json:"account_id,omitempty"`
	Address           string          `json:"address,omitempty"`
	Chain             string          `json:"chain,omitempty"`
	ExternalAccountID string          `json:"external_account_id,omitempty"`
}

type TransferResult struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}
