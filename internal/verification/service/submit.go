package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"walletgate/internal/provider"
	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/sentinel"
	strs "walletgate/pkg/platform/strings"
	"walletgate/pkg/requestcontext"
)

// DocumentUpload is one file in a document submission.
type DocumentUpload struct {
	Kind     models.DocumentKind
	Filename string
	Content  []byte
}

// SubmitIndividual validates the visible required KYC fields and forwards them
// to the provider. Field values are not stored here.
func (s *Service) SubmitIndividual(ctx context.Context, profileID id.ProfileID, data map[string]string) (*models.Profile, error) {
	var out *models.Profile
	err := s.withProfile(ctx, profileID, func(p *models.Profile) error {
		if p.IsBusiness() {
			return dErrors.New(dErrors.CodeInvalidState, "business profiles submit a control person")
		}
		if err := p.CanSubmit(); err != nil {
			return err
		}
		table := p.Fields()
		if err := rejectUnknown(table, data, ""); err != nil {
			s.metrics.IncrementSubmission("individual", "invalid")
			return err
		}
		if err := models.ValidateFields(table.Required(""), data); err != nil {
			s.metrics.IncrementSubmission("individual", "invalid")
			return err
		}

		start := time.Now()
		res, err := s.gateway.CreateOrUpdateIndividual(ctx, p.Ref(), trimmed(data))
		s.metrics.ObserveProviderSubmit(start)
		if err != nil {
			s.metrics.IncrementSubmission("individual", "failed")
			return s.providerError(ctx, p, "CreateOrUpdateIndividual", err)
		}

		now := requestcontext.Now(ctx)
		tracker, err := s.documents(ctx, p.ID)
		if err != nil {
			return err
		}
		s.afterSubmission(ctx, p, tracker, slices.Collect(maps.Keys(data)), res, now)
		if err := s.profiles.Save(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification profile")
		}
		s.metrics.IncrementSubmission("individual", "ok")
		s.logAudit(ctx, p, audit.EventIndividualSubmitted, "decision", string(p.Status))
		out = p
		return nil
	})
	return out, err
}

// SubmitControlPerson records the business and its control person and forwards
// both to the provider. While a refill request names control-person fields only
// those fields are required. Once the control_person step has passed, only
// fields named by the refill request may change.
func (s *Service) SubmitControlPerson(ctx context.Context, profileID id.ProfileID, data map[string]string) (*models.Profile, error) {
	var out *models.Profile
	err := s.withProfile(ctx, profileID, func(p *models.Profile) error {
		if !p.IsBusiness() {
			return dErrors.New(dErrors.CodeInvalidState, "control person applies to business profiles only")
		}
		if err := p.CanSubmit(); err != nil {
			return err
		}

		var editable []string
		if p.KYBStep.Reached(models.StepBusinessDocuments) {
			editable = slices.Concat(p.Refill.Under(models.ControlPersonPrefix), p.Refill.Under(models.BusinessPrefix))
			if len(editable) == 0 {
				return dErrors.New(dErrors.CodeInvalidState, "control person can no longer be changed")
			}
		}

		table := p.Fields()
		for path := range data {
			if !strings.HasPrefix(path, models.ControlPersonPrefix) && !strings.HasPrefix(path, models.BusinessPrefix) {
				s.metrics.IncrementSubmission("control_person", "invalid")
				return dErrors.Validation(dErrors.FieldError{Field: path, Message: "is not accepted"})
			}
		}
		if err := rejectUnknown(table, data, ""); err != nil {
			s.metrics.IncrementSubmission("control_person", "invalid")
			return err
		}
		if editable != nil {
			for path := range data {
				if !slices.Contains(editable, path) {
					s.metrics.IncrementSubmission("control_person", "invalid")
					return dErrors.Validation(dErrors.FieldError{Field: path, Message: "can only change when requested for resubmission"})
				}
			}
		}

		cp, err := s.profiles.FindControlPerson(ctx, p.ID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load control person")
			}
			cp = &models.ControlPerson{ProfileID: p.ID}
		}

		now := requestcontext.Now(ctx)
		next := &models.ControlPerson{ProfileID: p.ID, Fields: maps.Clone(cp.Fields)}
		next.Merge(data, editable, now)
		business := maps.Clone(p.Business)
		if business == nil {
			business = make(map[string]string)
		}
		for path, v := range data {
			if strings.HasPrefix(path, models.BusinessPrefix) {
				business[strings.TrimPrefix(path, models.BusinessPrefix)] = strings.TrimSpace(v)
			}
		}

		var required []string
		values := data
		if p.Refill.Names(models.ControlPersonPrefix) {
			required = slices.Concat(p.Refill.Under(models.ControlPersonPrefix), p.Refill.Under(models.BusinessPrefix))
		} else {
			required = slices.Concat(table.Required(models.BusinessPrefix), table.Required(models.ControlPersonPrefix))
			values = next.FullPaths()
			for k, v := range business {
				values[models.BusinessPrefix+k] = v
			}
		}
		if err := models.ValidateFields(required, values); err != nil {
			s.metrics.IncrementSubmission("control_person", "invalid")
			return err
		}

		start := time.Now()
		res, err := s.gateway.CreateOrUpdateBusiness(ctx, p.Ref(), business, next.Fields)
		s.metrics.ObserveProviderSubmit(start)
		if err != nil {
			s.metrics.IncrementSubmission("control_person", "failed")
			return s.providerError(ctx, p, "CreateOrUpdateBusiness", err)
		}

		tracker, err := s.documents(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Business = business
		s.afterSubmission(ctx, p, tracker, slices.Collect(maps.Keys(data)), res, now)
		if p.KYBStep == models.StepControlPerson && !p.Refill.Names(models.ControlPersonPrefix) {
			if err := p.AdvanceStep(models.StepBusinessDocuments, now); err != nil {
				return err
			}
			s.logAudit(ctx, p, audit.EventKYBStepAdvanced, "decision", string(p.KYBStep))
		}

		err = s.profiles.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.profiles.SaveControlPerson(ctx, next); err != nil {
				return err
			}
			return s.profiles.Save(ctx, p)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save control person")
		}
		s.metrics.IncrementSubmission("control_person", "ok")
		s.logAudit(ctx, p, audit.EventControlPersonSubmitted, "decision", string(p.Status))
		out = p
		return nil
	})
	return out, err
}

// SubmitBusinessDocuments uploads documents to the provider. Every upload must
// succeed before any document state is persisted.
func (s *Service) SubmitBusinessDocuments(ctx context.Context, profileID id.ProfileID, uploads []DocumentUpload) (*models.VerificationStatus, error) {
	var out *models.VerificationStatus
	err := s.withProfile(ctx, profileID, func(p *models.Profile) error {
		if !p.IsBusiness() {
			return dErrors.New(dErrors.CodeInvalidState, "documents apply to business profiles only")
		}
		if err := p.CanSubmit(); err != nil {
			return err
		}
		if !p.KYBStep.Reached(models.StepBusinessDocuments) {
			return dErrors.New(dErrors.CodeInvalidState, "control person must be submitted first")
		}
		if len(uploads) == 0 {
			return dErrors.Validation(dErrors.FieldError{Field: "documents", Message: "at least one document is required"})
		}

		tracker, err := s.documents(ctx, p.ID)
		if err != nil {
			return err
		}
		table := p.Fields()
		required := models.RequiredDocuments(table)
		if err := validateUploads(table, tracker, required, uploads); err != nil {
			s.metrics.IncrementSubmission("documents", "invalid")
			return err
		}

		start := time.Now()
		results, err := s.upload(ctx, p.Ref(), uploads)
		s.metrics.ObserveProviderSubmit(start)
		if err != nil {
			s.metrics.IncrementSubmission("documents", "failed")
			return s.providerError(ctx, p, "UploadDocument", err)
		}

		now := requestcontext.Now(ctx)
		paths := make([]string, 0, len(uploads))
		for i, u := range uploads {
			sum := sha256.Sum256(u.Content)
			if err := tracker.RecordUpload(p.ID, u.Kind, hex.EncodeToString(sum[:]), results[i].DocumentID, now); err != nil {
				return err
			}
			if st := models.DocumentStatus(results[i].Status); st == models.DocumentApproved || st == models.DocumentRejected {
				tracker.ApplyDecision(u.Kind, st, "", now)
			}
			paths = append(paths, u.Kind.Path())
		}
		p.ResolveRefill(paths, now)
		if p.Status == models.StatusRejected {
			p.Resubmit(p.Refill == nil && !tracker.AnyRejected(), now)
		}
		s.advanceToKYC(ctx, p, tracker, now)

		err = s.profiles.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.profiles.SaveDocuments(ctx, p.ID, tracker.All()); err != nil {
				return err
			}
			return s.profiles.Save(ctx, p)
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save documents")
		}
		s.metrics.IncrementSubmission("documents", "ok")
		s.logAudit(ctx, p, audit.EventDocumentsSubmitted, "reason", strings.Join(paths, ","))
		out = s.view(p, tracker)
		return nil
	})
	return out, err
}

// upload sends every document concurrently. Results are index-aligned with uploads.
func (s *Service) upload(ctx context.Context, ref string, uploads []DocumentUpload) ([]*provider.DocumentResult, error) {
	results := make([]*provider.DocumentResult, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, u := range uploads {
		g.Go(func() error {
			res, err := s.gateway.UploadDocument(gctx, ref, provider.DocumentUpload{
				Kind:     string(u.Kind),
				Filename: u.Filename,
				Content:  u.Content,
			})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func validateUploads(table models.FieldTable, tracker *models.DocumentTracker, required []models.DocumentKind, uploads []DocumentUpload) error {
	var (
		errs []dErrors.FieldError
		seen = make(map[models.DocumentKind]bool, len(uploads))
	)
	for _, u := range uploads {
		kind, err := models.ParseDocumentKind(string(u.Kind))
		if err != nil {
			errs = append(errs, dErrors.FieldError{Field: "documents", Message: "unknown document kind " + string(u.Kind)})
			continue
		}
		path := kind.Path()
		switch {
		case seen[kind]:
			errs = append(errs, dErrors.FieldError{Field: path, Message: "is uploaded more than once"})
		case !table.ShouldShow(path):
			errs = append(errs, dErrors.FieldError{Field: path, Message: "is not requested"})
		case len(u.Content) == 0:
			errs = append(errs, dErrors.FieldError{Field: path, Message: "is empty"})
		default:
			if err := tracker.CanReplace(kind); err != nil {
				errs = append(errs, dErrors.FieldsOf(err)...)
			}
		}
		seen[kind] = true
	}
	for _, kind := range required {
		if _, uploaded := tracker.Get(kind); !uploaded && !seen[kind] {
			errs = append(errs, dErrors.FieldError{Field: kind.Path(), Message: "is required"})
		}
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}

// afterSubmission applies the provider's answer to a successful submission.
func (s *Service) afterSubmission(ctx context.Context, p *models.Profile, tracker *models.DocumentTracker, submitted []string, res *provider.SubmissionResult, now time.Time) {
	p.ResolveRefill(submitted, now)
	p.RequestedFields = normalized(res.RequestedFields)
	p.SubmittedAt = &now
	if p.Status == models.StatusRejected {
		p.Resubmit(p.Refill == nil && !tracker.AnyRejected(), now)
	}
	s.applyStatus(ctx, p, res.Status, now)
	p.UpdatedAt = now
}

// rejectUnknown refuses paths that are hidden or absent from the field table.
func rejectUnknown(table models.FieldTable, data map[string]string, prefix string) error {
	var errs []dErrors.FieldError
	for _, path := range slices.Sorted(maps.Keys(data)) {
		if !strings.HasPrefix(path, prefix) || !table.Known(path) || !table.ShouldShow(path) {
			errs = append(errs, dErrors.FieldError{Field: path, Message: "is not accepted"})
		}
	}
	if len(errs) > 0 {
		return dErrors.Validation(errs...)
	}
	return nil
}

func trimmed(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func normalized(fields []string) []string {
	return strs.SortedSet(fields)
}
