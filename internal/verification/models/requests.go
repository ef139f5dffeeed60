package models

import (
	"strings"

	dErrors "walletgate/pkg/domain-errors"
)

type StartProfileRequest struct {
	SubjectType SubjectType `json:"subject_type"`
}

func (r *StartProfileRequest) Validate() error {
	r.SubjectType = SubjectType(strings.ToLower(strings.TrimSpace(string(r.SubjectType))))
	_, err := ParseSubjectType(string(r.SubjectType))
	return err
}

type AcceptTermsRequest struct {
	SignedAgreementID string `json:"signed_agreement_id"`
}

func (r *AcceptTermsRequest) Validate() error {
	r.SignedAgreementID = strings.TrimSpace(r.SignedAgreementID)
	if len(r.SignedAgreementID) > 128 {
		return dErrors.Validation(dErrors.FieldError{Field: "signed_agreement_id", Message: "is too long"})
	}
	return nil
}

// FieldsRequest carries form values keyed by field path.
type FieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

func (r *FieldsRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.Validation(dErrors.FieldError{Field: "fields", Message: "is required"})
	}
	return nil
}

type DocumentPayload struct {
	Kind     DocumentKind `json:"kind"`
	Filename string       `json:"filename,omitempty"`
	Content  []byte       `json:"content"`
}

type DocumentsRequest struct {
	Documents []DocumentPayload `json:"documents"`
}

func (r *DocumentsRequest) Validate() error {
	if len(r.Documents) == 0 {
		return dErrors.Validation(dErrors.FieldError{Field: "documents", Message: "at least one document is required"})
	}
	return nil
}

type IssueRefillRequest struct {
	Fields     []string `json:"fields"`
	Message    string   `json:"message,omitempty"`
	ReviewerID string   `json:"reviewer_id"`
}

func (r *IssueRefillRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.Validation(dErrors.FieldError{Field: "fields", Message: "is required"})
	}
	if strings.TrimSpace(r.ReviewerID) == "" {
		return dErrors.Validation(dErrors.FieldError{Field: "reviewer_id", Message: "is required"})
	}
	return nil
}

type DocumentDecisionRequest struct {
	Kind       DocumentKind   `json:"kind"`
	Status     DocumentStatus `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	ReviewerID string         `json:"reviewer_id"`
}

func (r *DocumentDecisionRequest) Validate() error {
	if strings.TrimSpace(r.ReviewerID) == "" {
		return dErrors.Validation(dErrors.FieldError{Field: "reviewer_id", Message: "is required"})
	}
	return nil
}

// ProfileResponse is the account holder's view of their profile.
type ProfileResponse struct {
	Profile   *Profile   `json:"profile"`
	Documents []Document `json:"documents"`
}

type FieldVisibilityResponse struct {
	Path string `json:"path"`
	Show bool   `json:"show"`
}
