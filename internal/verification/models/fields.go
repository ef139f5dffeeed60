package models

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	dErrors "walletgate/pkg/domain-errors"
)

// Visibility decides whether a form field is shown to the account holder.
type Visibility string

const (
	Always      Visibility = "always"
	Never       Visibility = "never"
	IfRequested Visibility = "if_requested"
)

// FieldRule is one row of the declarative field table.
type FieldRule struct {
	Path       string
	Visibility Visibility
	Required   bool
}

// Field path prefixes for business profiles.
const (
	BusinessPrefix      = "business."
	ControlPersonPrefix = "control_person."
	DocumentsPrefix     = "documents."
)

var addressRules = func(prefix string) []FieldRule {
	return []FieldRule{
		{prefix + "address.line1", Always, true},
		{prefix + "address.line2", Always, false},
		{prefix + "address.city", Always, true},
		{prefix + "address.state", Always, true},
		{prefix + "address.postal_code", Always, true},
		{prefix + "address.country", Always, true},
	}
}

var individualFields = slices.Concat([]FieldRule{
	{"first_name", Always, true},
	{"last_name", Always, true},
	{"email", Always, true},
	{"phone", Always, false},
	{"birth_date", Always, true},
	{"ssn", Always, true},
	{"occupation", IfRequested, true},
	{"source_of_funds", IfRequested, true},
	{"expected_monthly_volume", IfRequested, true},
	{"legacy_customer_id", Never, false},
}, addressRules(""))

var businessFields = slices.Concat([]FieldRule{
	{BusinessPrefix + "name", Always, true},
	{BusinessPrefix + "entity_type", Always, true},
	{BusinessPrefix + "ein", Always, true},
	{BusinessPrefix + "formation_date", Always, true},
	{BusinessPrefix + "website", IfRequested, false},
	{BusinessPrefix + "naics_code", IfRequested, true},
	{BusinessPrefix + "source_of_funds", IfRequested, true},
}, addressRules(BusinessPrefix), []FieldRule{
	{ControlPersonPrefix + "first_name", Always, true},
	{ControlPersonPrefix + "last_name", Always, true},
	{ControlPersonPrefix + "birth_date", Always, true},
	{ControlPersonPrefix + "tax_identification_number", Always, true},
	{ControlPersonPrefix + "ownership_percentage", Always, true},
	{ControlPersonPrefix + "title", Always, true},
	{ControlPersonPrefix + "id_document_front", Always, false},
	{ControlPersonPrefix + "id_document_back", Always, false},
}, addressRules(ControlPersonPrefix), []FieldRule{
	{DocumentsPrefix + string(DocBusinessFormation), Always, true},
	{DocumentsPrefix + string(DocBusinessOwnership), Always, true},
	{DocumentsPrefix + string(DocProofOfAddress), IfRequested, true},
	{DocumentsPrefix + string(DocProofOfNatureOfBusiness), Always, false},
	{DocumentsPrefix + string(DocIDFront), IfRequested, true},
	{DocumentsPrefix + string(DocIDBack), IfRequested, true},
})

// FieldTable is the field schema of one subject type plus the provider's
// requested-field override set. A requested path is shown and required
// whatever the table says, unless the table hides it with Never.
type FieldTable struct {
	rules     []FieldRule
	requested []string
}

func FieldsFor(subject SubjectType, requested []string) FieldTable {
	rules := individualFields
	if subject == SubjectBusiness {
		rules = businessFields
	}
	return FieldTable{rules: rules, requested: requested}
}

func (t FieldTable) rule(path string) (FieldRule, bool) {
	for _, r := range t.rules {
		if r.Path == path {
			return r, true
		}
	}
	return FieldRule{}, false
}

func (t FieldTable) ShouldShow(path string) bool {
	r, ok := t.rule(path)
	if !ok {
		return slices.Contains(t.requested, path)
	}
	switch r.Visibility {
	case Always:
		return true
	case IfRequested:
		return slices.Contains(t.requested, path)
	default:
		return false
	}
}

// Required lists the visible, mandatory paths under prefix.
func (t FieldTable) Required(prefix string) []string {
	var out []string
	for _, r := range t.rules {
		if !strings.HasPrefix(r.Path, prefix) || !t.ShouldShow(r.Path) {
			continue
		}
		if r.Required || slices.Contains(t.requested, r.Path) {
			out = append(out, r.Path)
		}
	}
	for _, p := range t.requested {
		if _, known := t.rule(p); !known && strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// Known reports whether path is in the table or was requested by the provider.
func (t FieldTable) Known(path string) bool {
	_, ok := t.rule(path)
	return ok || slices.Contains(t.requested, path)
}

var (
	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
	emailLike  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateFields checks that every required path has a value and that known
// formats parse. values is keyed by full path.
func ValidateFields(required []string, values map[string]string) error {
	var errs []dErrors.FieldError
	for _, path := range required {
		if strings.TrimSpace(values[path]) == "" {
			errs = append(errs, dErrors.FieldError{Field: path, Message: "is required"})
		}
	}
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, path := range paths {
		v := strings.TrimSpace(values[path])
		if v == "" {
			continue
		}
		if msg := checkFormat(path, v); msg != "" {
			errs = append(errs, dErrors.FieldError{Field: path, Message: msg})
		}
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}

func checkFormat(path, v string) string {
	leaf := path[strings.LastIndex(path, ".")+1:]
	switch leaf {
	case "ssn", "tax_identification_number", "ein":
		clean := strings.ReplaceAll(v, "-", "")
		if len(clean) != 9 || !digitsOnly.MatchString(clean) {
			return "must be 9 digits"
		}
	case "birth_date", "formation_date":
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return "must be a date in YYYY-MM-DD format"
		}
		if d.After(time.Now()) {
			return "must not be in the future"
		}
	case "email":
		if !emailLike.MatchString(v) {
			return "must be a valid email address"
		}
	case "ownership_percentage":
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil || pct <= 0 || pct > 100 {
			return "must be a number between 0 and 100"
		}
	case "country":
		if len(v) != 2 {
			return "must be a two-letter country code"
		}
	}
	return ""
}
