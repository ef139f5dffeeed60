package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"walletgate/internal/verification/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

// StartProfile creates the account's verification profile. A second call
// returns the existing profile.
func (s *Service) StartProfile(ctx context.Context, accountID id.AccountID, subject models.SubjectType) (*models.Profile, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account id required")
	}
	if _, err := models.ParseSubjectType(string(subject)); err != nil {
		return nil, err
	}

	existing, err := s.profiles.FindByAccount(ctx, accountID)
	switch {
	case err == nil:
		return s.sameSubject(existing, subject)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification profile")
	}

	p, err := models.NewProfile(id.ProfileID(uuid.New()), accountID, subject, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost a race with a concurrent start for the same account.
			existing, findErr := s.profiles.FindByAccount(ctx, accountID)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load verification profile")
			}
			return s.sameSubject(existing, subject)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification profile")
	}

	s.metrics.IncrementProfileStarted(string(subject))
	s.logAudit(ctx, p, audit.EventProfileStarted, "decision", string(p.VerificationType))
	return p, nil
}

func (s *Service) sameSubject(p *models.Profile, subject models.SubjectType) (*models.Profile, error) {
	if p.SubjectType != subject {
		return nil, dErrors.New(dErrors.CodeConflict, "account already has a "+string(p.SubjectType)+" verification profile")
	}
	return p, nil
}

func (s *Service) AcceptTerms(ctx context.Context, profileID id.ProfileID, signedAgreementID string) (*models.Profile, error) {
	var out *models.Profile
	err := s.withProfile(ctx, profileID, func(p *models.Profile) error {
		already := p.TermsAcceptedAt != nil
		if err := p.AcceptTerms(signedAgreementID, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.profiles.Save(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record terms acceptance")
		}
		if !already {
			s.logAudit(ctx, p, audit.EventTermsAccepted, "reason", signedAgreementID)
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) GetProfile(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	if profileID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "profile id is required")
	}
	return s.load(ctx, profileID)
}

func (s *Service) GetProfileByAccount(ctx context.Context, accountID id.AccountID) (*models.Profile, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account id required")
	}
	p, err := s.profiles.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification profile")
	}
	return p, nil
}

// Status returns the stored verification view without contacting the provider.
func (s *Service) Status(ctx context.Context, profileID id.ProfileID) (*models.VerificationStatus, error) {
	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	tracker, err := s.documents(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.view(p, tracker), nil
}

// ShouldShowField evaluates the field table for the profile's subject type
// and the provider's requested fields.
func (s *Service) ShouldShowField(ctx context.Context, profileID id.ProfileID, path string) (bool, error) {
	if path == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "field path is required")
	}
	p, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return false, err
	}
	return p.Fields().ShouldShow(path), nil
}

// RequireApproved is the money-movement gate used by the wallet module.
func (s *Service) RequireApproved(ctx context.Context, accountID id.AccountID) (*models.Profile, error) {
	p, err := s.GetProfileByAccount(ctx, accountID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeVerificationIncomplete, "verification has not been started")
		}
		return nil, err
	}
	if !p.IsApproved() {
		return nil, dErrors.New(dErrors.CodeVerificationIncomplete, "verification is "+string(p.Status))
	}
	return p, nil
}

// RequireReadable allows read access for any profile that is not offboarded.
func (s *Service) RequireReadable(ctx context.Context, accountID id.AccountID) (*models.Profile, error) {
	p, err := s.GetProfileByAccount(ctx, accountID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeVerificationIncomplete, "verification has not been started")
		}
		return nil, err
	}
	if p.Status == models.StatusOffboarded {
		return nil, dErrors.New(dErrors.CodeForbidden, "account has been offboarded")
	}
	return p, nil
}
