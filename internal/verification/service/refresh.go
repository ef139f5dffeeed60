package service

import (
	"context"
	"slices"
	"time"

	"walletgate/internal/provider"
	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/requestcontext"
)

// RefreshVerificationStatus reconciles the profile with the provider and the
// back-office review store. Only statuses are reconciled; submitted data is
// never touched. Repeated calls with no intervening change return the same view.
func (s *Service) RefreshVerificationStatus(ctx context.Context, profileID id.ProfileID) (*models.VerificationStatus, error) {
	defer s.metrics.ObserveRefresh(time.Now())

	var out *models.VerificationStatus
	err := s.withProfile(ctx, profileID, func(p *models.Profile) error {
		st, err := s.gateway.GetStatus(ctx, p.Ref())
		if err != nil {
			return s.providerError(ctx, p, "GetStatus", err)
		}
		refill, err := s.reviews.LatestRefill(ctx, p.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refill request")
		}
		decisions, err := s.reviews.Decisions(ctx, p.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document decisions")
		}
		tracker, err := s.documents(ctx, p.ID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		before := *p
		docsChanged := reconcileDocuments(tracker, st.Documents, decisions, now)

		if requested := normalized(st.RequestedFields); !slices.Equal(requested, p.RequestedFields) {
			p.RequestedFields = requested
			p.UpdatedAt = now
		}
		if refill != nil && p.ReviewRefillIsNew(refill.IssuedAt) {
			p.MergeRefill(refill.Fields, refill.Message, refill.IssuedAt)
			p.MarkReviewRefillSeen(refill.IssuedAt)
			p.UpdatedAt = now
		}
		p.MergeRefill(st.RefillFields, st.RefillMessage, now)
		s.applyStatus(ctx, p, st.VerificationStatus, now)
		s.advanceToKYC(ctx, p, tracker, now)

		if docsChanged || p.UpdatedAt != before.UpdatedAt {
			err := s.profiles.RunInTx(ctx, func(ctx context.Context) error {
				if docsChanged {
					if err := s.profiles.SaveDocuments(ctx, p.ID, tracker.All()); err != nil {
						return err
					}
				}
				return s.profiles.Save(ctx, p)
			})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification status")
			}
		}
		out = s.view(p, tracker)
		return nil
	})
	return out, err
}

// reconcileDocuments applies, per uploaded kind, the back-office decision made
// since the last upload, or else the provider's verdict. A provider "pending"
// carries no information and is ignored.
func reconcileDocuments(tracker *models.DocumentTracker, reported []provider.DocumentState, decisions []models.DocumentDecision, now time.Time) bool {
	changed := false
	decided := make(map[models.DocumentKind]bool, len(decisions))
	for _, d := range decisions {
		doc, ok := tracker.Get(d.Kind)
		if !ok || d.DecidedAt.Before(doc.UploadedAt) {
			continue
		}
		decided[d.Kind] = true
		if tracker.ApplyDecision(d.Kind, d.Status, d.Reason, now) {
			changed = true
		}
	}
	for _, r := range reported {
		kind, err := models.ParseDocumentKind(r.Kind)
		if err != nil || decided[kind] {
			continue
		}
		status := models.DocumentStatus(r.Status)
		if status != models.DocumentApproved && status != models.DocumentRejected {
			continue
		}
		if tracker.ApplyDecision(kind, status, r.RejectionReason, now) {
			changed = true
		}
	}
	return changed
}

// advanceToKYC moves a business past business_documents once every required
// document is approved, and opens the control-person session. The caller holds
// the profile lock and persists the profile.
func (s *Service) advanceToKYC(ctx context.Context, p *models.Profile, tracker *models.DocumentTracker, now time.Time) {
	if !p.IsBusiness() || p.KYBStep != models.StepBusinessDocuments {
		return
	}
	if !tracker.AllRequiredApproved(models.RequiredDocuments(p.Fields())) {
		return
	}
	if err := p.AdvanceStep(models.StepKYCVerification, now); err != nil {
		s.logger.ErrorContext(ctx, "kyb step advance refused", "profile_id", p.ID.String(), "error", err)
		return
	}
	s.logAudit(ctx, p, audit.EventKYBStepAdvanced, "decision", string(p.KYBStep))
	if err := s.openSession(ctx, p, now); err != nil {
		// The step stands; the session is requested again on demand.
		s.logger.WarnContext(ctx, "control person session not created", "profile_id", p.ID.String(), "error", err)
	}
}

// RequestControlPersonSession returns the profile's identity-verification
// session, creating it at the provider on first use. Concurrent requests for
// one profile share a single provider call.
func (s *Service) RequestControlPersonSession(ctx context.Context, profileID id.ProfileID) (*models.Session, error) {
	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !p.IsBusiness() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "sessions apply to business profiles only")
	}
	if !p.KYBStep.Reached(models.StepKYCVerification) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "business documents must be approved first")
	}
	if p.Session != nil {
		return p.Session, nil
	}

	v, _, err := s.sessions.Do(ctx, "session:"+profileID.String(), func(ctx context.Context) (any, error) {
		var sess *models.Session
		err := s.withProfile(ctx, profileID, func(p *models.Profile) error {
			if p.Session == nil {
				if err := s.openSession(ctx, p, requestcontext.Now(ctx)); err != nil {
					return err
				}
				if err := s.profiles.Save(ctx, p); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
				}
			}
			sess = p.Session
			return nil
		})
		return sess, err
	})
	if err != nil {
		return nil, err
	}
	sess := *v.(*models.Session)
	return &sess, nil
}

func (s *Service) openSession(ctx context.Context, p *models.Profile, now time.Time) error {
	if p.Session != nil {
		return nil
	}
	res, err := s.gateway.CreateControlPersonSession(ctx, p.Ref())
	if err != nil {
		return s.providerError(ctx, p, "CreateControlPersonSession", err)
	}
	p.Session = &models.Session{ID: res.SessionID, URL: res.URL}
	p.UpdatedAt = now
	s.metrics.IncrementSessionCreated()
	s.logAudit(ctx, p, audit.EventControlPersonSessionIssued, "reason", res.SessionID)
	return nil
}
