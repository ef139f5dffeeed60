package models

import (
	"slices"
	"strings"
	"time"

	id "walletgate/pkg/domain"
)

// ControlPerson is the natural person a business is verified against.
// Fields are stored by path relative to "control_person.".
type ControlPerson struct {
	ProfileID id.ProfileID      `json:"-"`
	Fields    map[string]string `json:"fields"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FullPaths returns the fields keyed by their full path.
func (c *ControlPerson) FullPaths() map[string]string {
	out := make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		out[ControlPersonPrefix+k] = v
	}
	return out
}

// Merge applies submitted values. When allowed is non-nil only those full paths
// may change; other submitted values are ignored.
func (c *ControlPerson) Merge(submitted map[string]string, allowed []string, now time.Time) {
	if c.Fields == nil {
		c.Fields = make(map[string]string)
	}
	for path, v := range submitted {
		if !strings.HasPrefix(path, ControlPersonPrefix) {
			continue
		}
		if allowed != nil && !slices.Contains(allowed, path) {
			continue
		}
		c.Fields[strings.TrimPrefix(path, ControlPersonPrefix)] = strings.TrimSpace(v)
	}
	c.UpdatedAt = now
}
