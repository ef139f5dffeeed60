package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"walletgate/internal/directory/models"
	id "walletgate/pkg/domain"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
)

type Service interface {
	AddEntry(ctx context.Context, req *models.CreateEntryRequest) (*models.Entry, error)
	Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterAdmin mounts directory maintenance routes. r must already be admin-gated.
// Account holders search the directory through the wallet recipients route.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/directory/entries", h.handleAddEntry)
	r.Get("/admin/directory/entries/{entryID}", h.handleGetEntry)
}

func (h *Handler) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[models.CreateEntryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	e, err := h.service.AddEntry(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to add directory entry", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID, err := id.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.Get(ctx, entryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}
