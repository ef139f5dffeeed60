package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"walletgate/internal/provider"
	"walletgate/internal/verification/metrics"
	"walletgate/internal/verification/models"
	"walletgate/pkg/attrs"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/keylock"
	"walletgate/pkg/platform/sentinel"
	"walletgate/pkg/requestcontext"
)

// ProfileStore persists the verification aggregate.
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	FindByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)
	FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
	FindControlPerson(ctx context.Context, profileID id.ProfileID) (*models.ControlPerson, error)
	SaveControlPerson(ctx context.Context, cp *models.ControlPerson) error
	ListDocuments(ctx context.Context, profileID id.ProfileID) ([]models.Document, error)
	SaveDocuments(ctx context.Context, profileID id.ProfileID, docs []models.Document) error
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReviewReader is the back-office review store as the engine sees it.
type ReviewReader interface {
	LatestRefill(ctx context.Context, profileID id.ProfileID) (*models.RefillRequest, error)
	Decisions(ctx context.Context, profileID id.ProfileID) ([]models.DocumentDecision, error)
}

// ReviewWriter records back-office review outcomes.
type ReviewWriter interface {
	IssueRefill(ctx context.Context, profileID id.ProfileID, r models.RefillRequest) error
	RecordDecision(ctx context.Context, d models.DocumentDecision) error
}

type ReviewStore interface {
	ReviewReader
	ReviewWriter
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the verification engine: it drives a profile through KYC or KYB
// against the provider and gates money movement on approval.
//
// Every mutation of a profile runs under a per-profile keyed lock, so
// submissions, refreshes and session creation never interleave on one profile.
type Service struct {
	profiles       ProfileStore
	reviews        ReviewStore
	gateway        provider.Gateway
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	locks          *keylock.Mutex
	sessions       *keylock.Flight
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithKeyLocks shares lock primitives, typically backed by a Redis lease when
// several instances serve the same profiles.
func WithKeyLocks(locks *keylock.Mutex, sessions *keylock.Flight) Option {
	return func(s *Service) {
		if locks != nil {
			s.locks = locks
		}
		if sessions != nil {
			s.sessions = sessions
		}
	}
}

func New(profiles ProfileStore, reviews ReviewStore, gateway provider.Gateway, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if reviews == nil {
		return nil, fmt.Errorf("review store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("provider gateway is required")
	}
	svc := &Service{
		profiles: profiles,
		reviews:  reviews,
		gateway:  gateway,
		logger:   slog.Default(),
		locks:    keylock.NewMutex(),
		sessions: keylock.NewFlight(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func lockKey(profileID id.ProfileID) string {
	return "verification:" + profileID.String()
}

// withProfile loads the profile under its lock and hands it to fn.
func (s *Service) withProfile(ctx context.Context, profileID id.ProfileID, fn func(p *models.Profile) error) error {
	if profileID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "profile id is required")
	}
	unlock, err := s.locks.Lock(ctx, lockKey(profileID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "profile is busy, try again")
	}
	defer unlock()

	p, err := s.load(ctx, profileID)
	if err != nil {
		return err
	}
	return fn(p)
}

func (s *Service) load(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	p, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification profile")
	}
	return p, nil
}

func (s *Service) documents(ctx context.Context, profileID id.ProfileID) (*models.DocumentTracker, error) {
	docs, err := s.profiles.ListDocuments(ctx, profileID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
	}
	return models.NewDocumentTracker(docs), nil
}

// applyStatus moves the profile to a provider-reported status and records the
// transition when one happened.
func (s *Service) applyStatus(ctx context.Context, p *models.Profile, reported string, now time.Time) {
	if reported == "" {
		return
	}
	next, err := models.ParseStatus(reported)
	if err != nil {
		s.logger.WarnContext(ctx, "ignoring unknown provider status",
			"profile_id", p.ID.String(),
			"status", reported,
		)
		return
	}
	from := p.Status
	if !p.ApplyStatus(next, now) {
		return
	}
	s.metrics.IncrementTransition(string(from), string(p.Status))
	s.logAudit(ctx, p, audit.EventVerificationStatusChanged,
		"decision", string(p.Status),
		"reason", "from "+string(from),
	)
}

func (s *Service) logAudit(ctx context.Context, p *models.Profile, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"account_id", p.AccountID.String(),
		"profile_id", p.ID.String(),
	)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		args = append(args, "client_ip", ip, "client", requestcontext.Client(ctx))
	}
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		AccountID: p.AccountID,
		Subject:   p.ID.String(),
		Action:    string(event),
		Decision:  attrs.String(attributes, "decision"),
		Reason:    attrs.String(attributes, "reason"),
		ActorID:   attrs.String(attributes, "actor_id"),
		RequestID: requestID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) providerError(ctx context.Context, p *models.Profile, op string, err error) error {
	s.logger.WarnContext(ctx, "provider call failed",
		"operation", op,
		"profile_id", p.ID.String(),
		"category", string(provider.GetCategory(err)),
		"error", err,
	)
	return provider.ToDomain(err)
}

func (s *Service) view(p *models.Profile, tracker *models.DocumentTracker) *models.VerificationStatus {
	requested := p.RequestedFields
	if requested == nil {
		requested = []string{}
	}
	return &models.VerificationStatus{
		ProfileID:       p.ID,
		Status:          p.Status,
		KYBStep:         p.KYBStep,
		RequestedFields: requested,
		Refill:          p.Refill,
		Documents:       tracker.All(),
		Session:         p.Session,
	}
}
