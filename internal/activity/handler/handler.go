package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"walletgate/internal/activity/models"
	"walletgate/internal/activity/service"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/requestcontext"
)

type Service interface {
	Feed(ctx context.Context, walletID id.WalletID, q service.FeedQuery) (*models.Page, error)
}

// WalletResolver finds the caller's wallet. Reads stay available while the
// profile is paused.
type WalletResolver interface {
	WalletIDForAccount(ctx context.Context, accountID id.AccountID) (id.WalletID, error)
}

type Handler struct {
	service Service
	wallets WalletResolver
	logger  *slog.Logger
}

func New(svc Service, wallets WalletResolver, logger *slog.Logger) *Handler {
	return &Handler{service: svc, wallets: wallets, logger: logger}
}

// Register mounts the feed. r must already authenticate.
func (h *Handler) Register(r chi.Router) {
	r.Get("/wallet/activity", h.handleFeed)
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	q, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	walletID, err := h.wallets.WalletIDForAccount(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.Feed(ctx, walletID, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load activity feed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func parseQuery(r *http.Request) (service.FeedQuery, error) {
	var (
		q    service.FeedQuery
		errs []dErrors.FieldError
	)
	values := r.URL.Query()
	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, dErrors.FieldError{Field: "page", Message: "must be a number"})
		}
		q.Page = n
	}
	if v := values.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, dErrors.FieldError{Field: "page_size", Message: "must be a number"})
		}
		q.PageSize = n
	}
	if v := values.Get("as_of"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			errs = append(errs, dErrors.FieldError{Field: "as_of", Message: "must be an RFC 3339 timestamp"})
		}
		q.AsOf = t
	}
	if len(errs) > 0 {
		return q, dErrors.Validation(errs...)
	}
	return q, nil
}
