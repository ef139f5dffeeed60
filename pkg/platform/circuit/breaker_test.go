package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func record(b *Breaker, outcomes ...outcome) (last StateChange) {
	for _, o := range outcomes {
		if o {
			_, last = b.RecordSuccess()
		} else {
			_, last = b.RecordFailure()
		}
	}
	return last
}

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		outcomes   []outcome
		wantOpen   bool
		wantChange StateChange
	}{
		{name: "starts closed", wantOpen: false},
		{
			name:     "stays closed below the failure threshold",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []outcome{fail, fail},
		},
		{
			name:       "opens on the threshold failure",
			opts:       []Option{WithFailureThreshold(3)},
			outcomes:   []outcome{fail, fail, fail},
			wantOpen:   true,
			wantChange: StateChange{Opened: true},
		},
		{
			name:     "a success clears the failure streak",
			opts:     []Option{WithFailureThreshold(3)},
			outcomes: []outcome{fail, fail, ok, fail, fail},
		},
		{
			name:     "failing while open does not report a new transition",
			opts:     []Option{WithFailureThreshold(1)},
			outcomes: []outcome{fail, fail},
			wantOpen: true,
		},
		{
			name:     "one success is not enough to close",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes: []outcome{fail, ok},
			wantOpen: true,
		},
		{
			name:       "closes after the success threshold",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			outcomes:   []outcome{fail, ok, ok},
			wantChange: StateChange{Closed: true},
		},
		{
			name:     "a failure while open restarts the success count",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			outcomes: []outcome{fail, ok, ok, fail, ok, ok},
			wantOpen: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("provider", tt.opts...)
			change := record(b, tt.outcomes...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantChange, change)
		})
	}
}

func TestBreaker_FallbackSignals(t *testing.T) {
	b := New("provider", WithFailureThreshold(2))

	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback, "closed breaker keeps calling the provider")

	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)

	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary, "still open until enough probes succeed")
}

func TestBreaker_Reset(t *testing.T) {
	b := New("provider", WithFailureThreshold(1))
	record(b, fail)
	assert.Equal(t, "open", b.State().String())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "provider", b.Name())
}

func TestBreaker_AllowsProbeAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("provider", WithFailureThreshold(1), WithCooldown(time.Second), withClock(func() time.Time { return now }))

	assert.True(t, b.Allow())
	record(b, fail)
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())

	record(b, fail)
	assert.False(t, b.Allow(), "a failed probe restarts the cooldown")
}
