package service

import (
	"context"
	"strings"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/requestcontext"
)

// IssueRefill records a back-office request to resubmit fields. It becomes
// actionable on the profile's next refresh.
func (s *Service) IssueRefill(ctx context.Context, profileID id.ProfileID, fields []string, message, reviewerID string) (*models.RefillRequest, error) {
	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, dErrors.Validation(dErrors.FieldError{Field: "fields", Message: "at least one field is required"})
	}
	table := p.Fields()
	for _, f := range fields {
		if !table.Known(f) {
			return nil, dErrors.Validation(dErrors.FieldError{Field: "fields", Message: "unknown field " + f})
		}
	}
	r := models.RefillRequest{
		Fields:   normalized(fields),
		Message:  strings.TrimSpace(message),
		IssuedAt: requestcontext.Now(ctx),
	}
	if err := s.reviews.IssueRefill(ctx, p.ID, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record refill request")
	}
	s.logAudit(ctx, p, audit.EventRefillIssued,
		"reason", strings.Join(r.Fields, ","),
		"actor_id", reviewerID,
	)
	return &r, nil
}

// RecordDocumentDecision stores a reviewer's verdict on one document. It
// applies to the upload current at decision time on the next refresh.
func (s *Service) RecordDocumentDecision(ctx context.Context, d models.DocumentDecision) error {
	d.DecidedAt = requestcontext.Now(ctx)
	if err := d.Validate(); err != nil {
		return err
	}
	p, err := s.GetProfile(ctx, d.ProfileID)
	if err != nil {
		return err
	}
	if err := s.reviews.RecordDecision(ctx, d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document decision")
	}
	s.logAudit(ctx, p, audit.EventDocumentReviewed,
		"decision", string(d.Kind)+":"+string(d.Status),
		"reason", d.Reason,
		"actor_id", d.ReviewerID,
	)
	return nil
}
