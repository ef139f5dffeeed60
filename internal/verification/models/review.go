package models

import (
	"time"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
)

// DocumentDecision is a back-office review outcome for one document kind.
type DocumentDecision struct {
	ProfileID  id.ProfileID   `json:"profile_id"`
	Kind       DocumentKind   `json:"kind"`
	Status     DocumentStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	ReviewerID string         `json:"reviewer_id,omitempty"`
	DecidedAt  time.Time      `json:"decided_at"`
}

func (d DocumentDecision) Validate() error {
	if d.ProfileID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "profile id is required")
	}
	if _, err := ParseDocumentKind(string(d.Kind)); err != nil {
		return err
	}
	switch d.Status {
	case DocumentApproved:
	case DocumentRejected:
		if d.Reason == "" {
			return dErrors.Validation(dErrors.FieldError{Field: "reason", Message: "is required when rejecting"})
		}
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "decision must be approved or rejected")
	}
	return nil
}

// VerificationStatus is the reconciled view returned by refresh.
type VerificationStatus struct {
	ProfileID       id.ProfileID   `json:"profile_id"`
	Status          Status         `json:"status"`
	KYBStep         KYBStep        `json:"kyb_step,omitempty"`
	RequestedFields []string       `json:"requested_fields"`
	Refill          *RefillRequest `json:"refill_request,omitempty"`
	Documents       []Document     `json:"documents"`
	Session         *Session       `json:"control_person_session,omitempty"`
}
