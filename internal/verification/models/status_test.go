package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNotStarted, StatusIncomplete, true},
		{StatusIncomplete, StatusUnderReview, true},
		{StatusUnderReview, StatusIncomplete, false},
		{StatusAwaitingUBO, StatusApproved, true},
		{StatusApproved, StatusUnderReview, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusPaused, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusRejected, StatusUnderReview, true},
		{StatusRejected, StatusIncomplete, true},
		{StatusRejected, StatusApproved, false},
		{StatusPaused, StatusApproved, false},
		{StatusPaused, StatusOffboarded, true},
		{StatusOffboarded, StatusNotStarted, false},
		{StatusOffboarded, StatusPaused, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestKYBStep_Reached(t *testing.T) {
	assert.True(t, StepKYCVerification.Reached(StepBusinessDocuments))
	assert.True(t, StepBusinessDocuments.Reached(StepBusinessDocuments))
	assert.False(t, StepControlPerson.Reached(StepBusinessDocuments))
}
