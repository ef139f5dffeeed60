package models

import (
	"time"
)

// Limit is a sliding window quota: at most Requests within Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Enabled reports whether the limit should be enforced at all.
func (l Limit) Enabled() bool {
	return l.Requests > 0 && l.Window > 0
}

// Result is the outcome of one check against a bucket.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Scope names what a bucket is keyed on.
type Scope string

const (
	ScopeAccount Scope = "account"
	ScopeIP      Scope = "ip"
)

// Key builds the bucket key for a scope and identifier.
func Key(scope Scope, identifier string) string {
	return "ratelimit:" + string(scope) + ":" + identifier
}

type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}
