package models

import (
	"time"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	strs "walletgate/pkg/platform/strings"
)

type SubjectType string

const (
	SubjectIndividual SubjectType = "individual"
	SubjectBusiness   SubjectType = "business"
)

func ParseSubjectType(s string) (SubjectType, error) {
	switch SubjectType(s) {
	case SubjectIndividual, SubjectBusiness:
		return SubjectType(s), nil
	}
	return "", dErrors.Validation(dErrors.FieldError{Field: "subject_type", Message: "must be individual or business"})
}

type VerificationType string

const (
	VerificationKYC VerificationType = "kyc"
	VerificationKYB VerificationType = "kyb"
)

// Session is the provider-hosted identity check for a business's control person.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Profile is the aggregate root of an account's verification.
//
// Invariants:
//   - exactly one profile per account
//   - Status only moves as Status.CanTransitionTo allows; Pause and Resume
//     are the only path out of paused, back to PrePauseStatus or beyond
//   - KYBStep only moves forward, one step at a time, and only for businesses
//   - money movement requires StatusApproved
type Profile struct {
	ID                id.ProfileID      `json:"id"`
	AccountID         id.AccountID      `json:"account_id"`
	SubjectType       SubjectType       `json:"subject_type"`
	VerificationType  VerificationType  `json:"verification_type"`
	Status            Status            `json:"status"`
	PrePauseStatus    Status            `json:"pre_pause_status,omitempty"`
	KYBStep           KYBStep           `json:"kyb_step,omitempty"`
	TermsAcceptedAt   *time.Time        `json:"terms_accepted_at,omitempty"`
	SignedAgreementID *string           `json:"signed_agreement_id,omitempty"`
	RequestedFields   []string          `json:"requested_fields,omitempty"`
	Refill            *RefillRequest    `json:"refill_request,omitempty"`
	ReviewRefillSeen  *time.Time        `json:"-"`
	Session           *Session          `json:"control_person_session,omitempty"`
	Business          map[string]string `json:"business,omitempty"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func NewProfile(profileID id.ProfileID, accountID id.AccountID, subject SubjectType, now time.Time) (*Profile, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account id required")
	}
	p := &Profile{
		ID:          profileID,
		AccountID:   accountID,
		SubjectType: subject,
		Status:      StatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	switch subject {
	case SubjectIndividual:
		p.VerificationType = VerificationKYC
	case SubjectBusiness:
		p.VerificationType = VerificationKYB
		p.KYBStep = StepControlPerson
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown subject type")
	}
	return p, nil
}

// Ref is the stable external reference sent to the provider.
func (p *Profile) Ref() string {
	return p.ID.String()
}

func (p *Profile) IsBusiness() bool {
	return p.SubjectType == SubjectBusiness
}

func (p *Profile) IsApproved() bool {
	return p.Status == StatusApproved
}

func (p *Profile) Fields() FieldTable {
	return FieldsFor(p.SubjectType, p.RequestedFields)
}

func (p *Profile) AcceptTerms(signedAgreementID string, now time.Time) error {
	if p.Status == StatusOffboarded {
		return dErrors.New(dErrors.CodeInvalidState, "profile is offboarded")
	}
	if p.TermsAcceptedAt == nil {
		p.TermsAcceptedAt = &now
	}
	if signedAgreementID != "" {
		p.SignedAgreementID = &signedAgreementID
	}
	p.UpdatedAt = now
	return nil
}

// CanSubmit guards every user submission.
func (p *Profile) CanSubmit() error {
	switch {
	case p.TermsAcceptedAt == nil:
		return dErrors.New(dErrors.CodeInvalidState, "terms of service must be accepted first")
	case p.Status == StatusApproved:
		return dErrors.New(dErrors.CodeInvalidState, "profile is already approved")
	case p.Status == StatusPaused, p.Status == StatusOffboarded:
		return dErrors.New(dErrors.CodeInvalidState, "profile is "+string(p.Status))
	}
	return nil
}

// ApplyStatus moves to a provider-reported status when the move is monotonic.
// Stale or backwards reports are ignored. It reports whether Status changed.
func (p *Profile) ApplyStatus(next Status, now time.Time) bool {
	if next == p.Status || !next.IsValid() {
		return false
	}
	if p.Status == StatusPaused && next != StatusOffboarded {
		return p.resume(next, now)
	}
	if !p.Status.CanTransitionTo(next) {
		return false
	}
	if next == StatusPaused {
		p.PrePauseStatus = p.Status
	}
	p.Status = next
	p.UpdatedAt = now
	return true
}

// resume returns to the pre-pause status, or to the reported status when that
// is a legal move forward from it.
func (p *Profile) resume(reported Status, now time.Time) bool {
	target := p.PrePauseStatus
	if target == "" {
		target = StatusNotStarted
	}
	if target.CanTransitionTo(reported) {
		target = reported
	}
	p.Status = target
	p.PrePauseStatus = ""
	p.UpdatedAt = now
	return true
}

// Resubmit re-enters review after a rejection: under_review when every
// previously rejected item was corrected, incomplete otherwise.
func (p *Profile) Resubmit(allCorrected bool, now time.Time) {
	if p.Status != StatusRejected {
		return
	}
	if allCorrected {
		p.Status = StatusUnderReview
	} else {
		p.Status = StatusIncomplete
	}
	p.UpdatedAt = now
}

// AdvanceStep moves the KYB sub-step forward by exactly one.
func (p *Profile) AdvanceStep(to KYBStep, now time.Time) error {
	if !p.IsBusiness() {
		return dErrors.New(dErrors.CodeInvalidState, "sub-steps apply to business profiles only")
	}
	next, ok := p.KYBStep.next()
	if !ok || next != to {
		return dErrors.New(dErrors.CodeInvariantViolation, "kyb step cannot move from "+string(p.KYBStep)+" to "+string(to))
	}
	p.KYBStep = to
	p.UpdatedAt = now
	return nil
}

// MergeRefill adds fields to the actionable refill request. IssuedAt and the
// message only change when the field set grows. It reports whether it did.
func (p *Profile) MergeRefill(fields []string, message string, issuedAt time.Time) bool {
	if len(fields) == 0 {
		return false
	}
	if p.Refill == nil {
		p.Refill = &RefillRequest{}
	}
	var grew bool
	p.Refill.Fields, grew = strs.Union(p.Refill.Fields, fields)
	if !grew {
		if len(p.Refill.Fields) == 0 {
			p.Refill = nil
		}
		return false
	}
	p.Refill.IssuedAt = issuedAt
	if message != "" {
		p.Refill.Message = message
	}
	p.UpdatedAt = issuedAt
	return true
}

// MarkReviewRefillSeen records the issue time of the last back-office refill
// merged into the profile, so it is never merged twice.
func (p *Profile) MarkReviewRefillSeen(issuedAt time.Time) {
	p.ReviewRefillSeen = &issuedAt
}

// ReviewRefillIsNew reports whether a back-office refill issued at t has not
// been merged yet.
func (p *Profile) ReviewRefillIsNew(t time.Time) bool {
	return p.ReviewRefillSeen == nil || t.After(*p.ReviewRefillSeen)
}

// ResolveRefill drops resubmitted paths from the refill request.
func (p *Profile) ResolveRefill(resubmitted []string, now time.Time) {
	if p.Refill == nil {
		return
	}
	p.Refill = p.Refill.Without(resubmitted)
	p.UpdatedAt = now
}
