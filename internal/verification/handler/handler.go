package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"walletgate/internal/verification/models"
	"walletgate/internal/verification/service"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/requestcontext"
)

// Service is the verification engine as the HTTP layer uses it.
type Service interface {
	StartProfile(ctx context.Context, accountID id.AccountID, subject models.SubjectType) (*models.Profile, error)
	AcceptTerms(ctx context.Context, profileID id.ProfileID, signedAgreementID string) (*models.Profile, error)
	GetProfileByAccount(ctx context.Context, accountID id.AccountID) (*models.Profile, error)
	Status(ctx context.Context, profileID id.ProfileID) (*models.VerificationStatus, error)
	SubmitIndividual(ctx context.Context, profileID id.ProfileID, data map[string]string) (*models.Profile, error)
	SubmitControlPerson(ctx context.Context, profileID id.ProfileID, data map[string]string) (*models.Profile, error)
	SubmitBusinessDocuments(ctx context.Context, profileID id.ProfileID, uploads []service.DocumentUpload) (*models.VerificationStatus, error)
	RefreshVerificationStatus(ctx context.Context, profileID id.ProfileID) (*models.VerificationStatus, error)
	RequestControlPersonSession(ctx context.Context, profileID id.ProfileID) (*models.Session, error)
	ShouldShowField(ctx context.Context, profileID id.ProfileID, path string) (bool, error)
	IssueRefill(ctx context.Context, profileID id.ProfileID, fields []string, message, reviewerID string) (*models.RefillRequest, error)
	RecordDocumentDecision(ctx context.Context, d models.DocumentDecision) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the account-holder routes. r must already authenticate.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verification", func(r chi.Router) {
		r.Post("/profile", h.handleStartProfile)
		r.Get("/profile", h.handleGetProfile)
		r.Post("/terms", h.handleAcceptTerms)
		r.Post("/individual", h.handleSubmitIndividual)
		r.Post("/control-person", h.handleSubmitControlPerson)
		r.Post("/documents", h.handleSubmitDocuments)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/session", h.handleSession)
		r.Get("/fields/{path}", h.handleShouldShowField)
	})
}

// RegisterAdmin mounts back-office review routes. r must already be admin-gated.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/verification/{profileID}/refill", h.handleIssueRefill)
	r.Post("/admin/verification/{profileID}/documents/decision", h.handleDocumentDecision)
	r.Post("/admin/verification/{profileID}/refresh", h.handleAdminRefresh)
}

func (h *Handler) handleStartProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.StartProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.StartProfile(ctx, requestcontext.AccountID(ctx), req.SubjectType)
	if err != nil {
		h.fail(ctx, w, "start profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	status, err := h.service.Status(ctx, p.ID)
	if err != nil {
		h.fail(ctx, w, "get profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ProfileResponse{Profile: p, Documents: status.Documents})
}

func (h *Handler) handleAcceptTerms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.AcceptTermsRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	out, err := h.service.AcceptTerms(ctx, p.ID, req.SignedAgreementID)
	if err != nil {
		h.fail(ctx, w, "accept terms", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSubmitIndividual(w http.ResponseWriter, r *http.Request) {
	h.submitFields(w, r, "submit individual", h.service.SubmitIndividual)
}

func (h *Handler) handleSubmitControlPerson(w http.ResponseWriter, r *http.Request) {
	h.submitFields(w, r, "submit control person", h.service.SubmitControlPerson)
}

func (h *Handler) submitFields(w http.ResponseWriter, r *http.Request, op string,
	submit func(context.Context, id.ProfileID, map[string]string) (*models.Profile, error)) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.FieldsRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	out, err := submit(ctx, p.ID, req.Fields)
	if err != nil {
		h.fail(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSubmitDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.DocumentsRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	uploads := make([]service.DocumentUpload, 0, len(req.Documents))
	for _, d := range req.Documents {
		uploads = append(uploads, service.DocumentUpload{Kind: d.Kind, Filename: d.Filename, Content: d.Content})
	}
	status, err := h.service.SubmitBusinessDocuments(ctx, p.ID, uploads)
	if err != nil {
		h.fail(ctx, w, "submit documents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	status, err := h.service.RefreshVerificationStatus(ctx, p.ID)
	if err != nil {
		h.fail(ctx, w, "refresh verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	sess, err := h.service.RequestControlPersonSession(ctx, p.ID)
	if err != nil {
		h.fail(ctx, w, "request session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleShouldShowField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path, err := url.PathUnescape(chi.URLParam(r, "path"))
	if err != nil || path == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid field path"))
		return
	}
	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}
	show, err := h.service.ShouldShowField(ctx, p.ID, path)
	if err != nil {
		h.fail(ctx, w, "field visibility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FieldVisibilityResponse{Path: path, Show: show})
}

func (h *Handler) handleIssueRefill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.IssueRefillRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	refill, err := h.service.IssueRefill(ctx, profileID, req.Fields, req.Message, req.ReviewerID)
	if err != nil {
		h.fail(ctx, w, "issue refill", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, refill)
}

func (h *Handler) handleDocumentDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.DocumentDecisionRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	err := h.service.RecordDocumentDecision(ctx, models.DocumentDecision{
		ProfileID:  profileID,
		Kind:       req.Kind,
		Status:     req.Status,
		Reason:     req.Reason,
		ReviewerID: req.ReviewerID,
	})
	if err != nil {
		h.fail(ctx, w, "record document decision", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ok := h.profileParam(w, r)
	if !ok {
		return
	}
	status, err := h.service.RefreshVerificationStatus(ctx, profileID)
	if err != nil {
		h.fail(ctx, w, "refresh verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// profile resolves the caller's profile from the authenticated account.
func (h *Handler) profile(ctx context.Context, w http.ResponseWriter) (*models.Profile, bool) {
	p, err := h.service.GetProfileByAccount(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "load profile", err)
		return nil, false
	}
	return p, true
}

func (h *Handler) profileParam(w http.ResponseWriter, r *http.Request) (id.ProfileID, bool) {
	profileID, err := id.ParseProfileID(chi.URLParam(r, "profileID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProfileID{}, false
	}
	return profileID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
