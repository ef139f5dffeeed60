package models

import (
	"slices"
	"strings"
	"time"
)

// RefillRequest names field paths a reviewer wants resubmitted. Only the
// latest request on a profile is actionable.
type RefillRequest struct {
	Fields   []string  `json:"fields"`
	Message  string    `json:"message,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// Names reports whether the request names any path under prefix.
func (r *RefillRequest) Names(prefix string) bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(r.Fields, func(f string) bool { return strings.HasPrefix(f, prefix) })
}

// NamesOnly reports whether every named path sits under prefix.
func (r *RefillRequest) NamesOnly(prefix string) bool {
	if r == nil || len(r.Fields) == 0 {
		return false
	}
	for _, f := range r.Fields {
		if !strings.HasPrefix(f, prefix) {
			return false
		}
	}
	return true
}

// Under returns the named paths under prefix, in request order.
func (r *RefillRequest) Under(prefix string) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, f := range r.Fields {
		if strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// Without drops resubmitted paths. It returns nil once nothing remains.
func (r *RefillRequest) Without(resubmitted []string) *RefillRequest {
	if r == nil {
		return nil
	}
	var rest []string
	for _, f := range r.Fields {
		if !slices.Contains(resubmitted, f) {
			rest = append(rest, f)
		}
	}
	if len(rest) == 0 {
		return nil
	}
	return &RefillRequest{Fields: rest, Message: r.Message, IssuedAt: r.IssuedAt}
}

// SameAs compares content, ignoring issue time and field order.
func (r *RefillRequest) SameAs(other *RefillRequest) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	a := slices.Clone(r.Fields)
	b := slices.Clone(other.Fields)
	slices.Sort(a)
	slices.Sort(b)
	return r.Message == other.Message && slices.Equal(a, b)
}
