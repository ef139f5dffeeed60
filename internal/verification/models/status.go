package models

import (
	dErrors "walletgate/pkg/domain-errors"
)

// Status is the top-level verification status of a profile.
type Status string

const (
	StatusNotStarted            Status = "not_started"
	StatusIncomplete            Status = "incomplete"
	StatusUnderReview           Status = "under_review"
	StatusAwaitingQuestionnaire Status = "awaiting_questionnaire"
	StatusAwaitingUBO           Status = "awaiting_ubo"
	StatusApproved              Status = "approved"
	StatusRejected              Status = "rejected"
	StatusPaused                Status = "paused"
	StatusOffboarded            Status = "offboarded"
)

// progress orders the review pipeline. Paused and offboarded sit outside it.
var progress = map[Status]int{
	StatusNotStarted:            0,
	StatusIncomplete:            1,
	StatusUnderReview:           2,
	StatusAwaitingQuestionnaire: 3,
	StatusAwaitingUBO:           4,
	StatusApproved:              5,
	StatusRejected:              5,
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown verification status: "+s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	_, ok := progress[s]
	return ok || s == StatusPaused || s == StatusOffboarded
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to next keeps the status
// monotonic. Staying put is always allowed.
//
//   - any status may move to offboarded; offboarded never moves
//   - any status other than offboarded may move to paused (resume is handled by Profile)
//   - approved only leaves for paused or offboarded
//   - rejected re-enters the pipeline at incomplete or under_review (resubmission)
//   - everything else moves strictly forward, or sideways into rejected
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch {
	case s == StatusOffboarded:
		return false
	case next == StatusOffboarded, next == StatusPaused:
		return true
	case s == StatusPaused:
		return false
	case s == StatusApproved:
		return false
	case s == StatusRejected:
		return next == StatusIncomplete || next == StatusUnderReview
	case next == StatusRejected:
		return true
	}
	from, okFrom := progress[s]
	to, okTo := progress[next]
	return okFrom && okTo && to > from
}

// KYBStep is the business-verification sub-step, independent of Status.
type KYBStep string

const (
	StepControlPerson     KYBStep = "control_person"
	StepBusinessDocuments KYBStep = "business_documents"
	StepKYCVerification   KYBStep = "kyc_verification"
)

var stepOrder = map[KYBStep]int{
	StepControlPerson:     0,
	StepBusinessDocuments: 1,
	StepKYCVerification:   2,
}

func (s KYBStep) IsValid() bool {
	_, ok := stepOrder[s]
	return ok
}

// Reached reports whether s is at or beyond other.
func (s KYBStep) Reached(other KYBStep) bool {
	return stepOrder[s] >= stepOrder[other]
}

func (s KYBStep) next() (KYBStep, bool) {
	switch s {
	case StepControlPerson:
		return StepBusinessDocuments, true
	case StepBusinessDocuments:
		return StepKYCVerification, true
	}
	return "", false
}
