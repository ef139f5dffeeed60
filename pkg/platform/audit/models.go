package audit

import (
	"context"
	"time"

	id "walletgate/pkg/domain"
)

// EventCategory drives retention and routing of audit events.
type EventCategory string

const (
	// CategoryCompliance covers verification decisions and money movement.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers signature failures and access violations.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by services after a state change. It stays transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	AccountID id.AccountID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID is set when someone other than the account holder acted, such as the
	// provider webhook or an admin reviewer.
	ActorID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	// Verification
	EventProfileStarted             AuditEvent = "verification_profile_started"
	EventTermsAccepted              AuditEvent = "terms_accepted"
	EventIndividualSubmitted        AuditEvent = "individual_submitted"
	EventControlPersonSubmitted     AuditEvent = "control_person_submitted"
	EventDocumentsSubmitted         AuditEvent = "documents_submitted"
	EventVerificationStatusChanged  AuditEvent = "verification_status_changed"
	EventKYBStepAdvanced            AuditEvent = "kyb_step_advanced"
	EventControlPersonSessionIssued AuditEvent = "control_person_session_issued"
	EventRefillIssued               AuditEvent = "refill_issued"
	EventDocumentReviewed           AuditEvent = "document_reviewed"

	// Wallet
	EventWalletCreated                AuditEvent = "wallet_created"
	EventExternalAccountLinked        AuditEvent = "external_account_linked"
	EventExternalAccountVerified      AuditEvent = "external_account_verified"
	EventTransferInitiated            AuditEvent = "transfer_initiated"
	EventWithdrawalInitiated          AuditEvent = "withdrawal_initiated"
	EventLiquidationAddressIssued     AuditEvent = "liquidation_address_issued"
	EventCardProvisioned              AuditEvent = "card_provisioned"
	EventCardFrozen                   AuditEvent = "card_frozen"
	EventCardUnfrozen                 AuditEvent = "card_unfrozen"
	EventFundsRejectedInsufficient    AuditEvent = "funds_rejected_insufficient"
	EventDuplicateProvisioningBlocked AuditEvent = "duplicate_provisioning_blocked"

	// Webhooks
	EventWebhookSignatureRejected AuditEvent = "webhook_signature_rejected"
	EventDepositReceived          AuditEvent = "deposit_received"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventTermsAccepted:             CategoryCompliance,
	EventIndividualSubmitted:       CategoryCompliance,
	EventControlPersonSubmitted:    CategoryCompliance,
	EventDocumentsSubmitted:        CategoryCompliance,
	EventVerificationStatusChanged: CategoryCompliance,
	EventRefillIssued:              CategoryCompliance,
	EventDocumentReviewed:          CategoryCompliance,
	EventWalletCreated:             CategoryCompliance,
	EventExternalAccountLinked:     CategoryCompliance,
	EventTransferInitiated:         CategoryCompliance,
	EventWithdrawalInitiated:       CategoryCompliance,
	EventDepositReceived:           CategoryCompliance,

	EventWebhookSignatureRejected:     CategorySecurity,
	EventFundsRejectedInsufficient:    CategorySecurity,
	EventDuplicateProvisioningBlocked: CategorySecurity,
	EventCardFrozen:                   CategorySecurity,
}

// Category returns the category for the event; unknown events are operations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
