// Package webhook receives signed provider callbacks and routes them to the
// verification, wallet and activity services.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"walletgate/internal/verification/models"
	wallet "walletgate/internal/wallet/service"
	"walletgate/internal/webhook/metrics"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/money"
	"walletgate/pkg/platform/audit"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
)

const (
	maxBodyBytes = 1 << 20
	actorID      = "provider_webhook"
)

type Verification interface {
	RefreshVerificationStatus(ctx context.Context, profileID id.ProfileID) (*models.VerificationStatus, error)
}

type Wallets interface {
	RecordDeposit(ctx context.Context, n wallet.DepositNotice) error
	ApplyExternalAccountStatus(ctx context.Context, providerAccountID, providerExternalID, status string) error
}

type Ledger interface {
	UpdateTransferState(ctx context.Context, providerRef, state string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Handler struct {
	secret       []byte
	verification Verification
	wallets      Wallets
	ledger       Ledger
	logger       *slog.Logger
	audit        AuditPublisher
	metrics      *metrics.Metrics
}

type Option func(*Handler)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(h *Handler) {
		h.audit = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func New(secret string, v Verification, w Wallets, l Ledger, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		secret:       []byte(secret),
		verification: v,
		wallets:      w,
		ledger:       l,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the callback route. It sits outside bearer auth; the body
// signature is the only credential.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/provider", h.handleProviderEvent)
}

func (h *Handler) handleProviderEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read body"))
		return
	}
	if !Verify(h.secret, body, r.Header.Get(SignatureHeader)) {
		h.rejectSignature(ctx, r, requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
		return
	}

	env, err := decodeData[Envelope](body)
	if err == nil {
		err = env.Validate()
	}
	if err != nil {
		h.logger.WarnContext(ctx, "malformed webhook", "request_id", requestID, "error", err)
		h.metrics.IncrementEvent("unknown", "rejected")
		httputil.WriteError(w, err)
		return
	}

	handled, err := h.dispatch(ctx, env)
	switch {
	case err == nil && !handled:
		h.logger.InfoContext(ctx, "webhook ignored", "request_id", requestID, "event_id", env.ID, "type", string(env.Type))
		h.metrics.IncrementEvent(string(env.Type), "ignored")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case err == nil:
		h.logger.InfoContext(ctx, "webhook processed", "request_id", requestID, "event_id", env.ID, "type", string(env.Type))
		h.metrics.IncrementEvent(string(env.Type), "processed")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// The provider knows about something we never created; retrying won't help.
		h.logger.WarnContext(ctx, "webhook references unknown resource",
			"request_id", requestID, "event_id", env.ID, "type", string(env.Type), "error", err)
		h.metrics.IncrementEvent(string(env.Type), "ignored")
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		attrs := []any{"request_id", requestID, "event_id", env.ID, "type", string(env.Type), "error", err}
		if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "webhook processing failed", attrs...)
			h.metrics.IncrementEvent(string(env.Type), "failed")
		} else {
			h.logger.WarnContext(ctx, "webhook rejected", attrs...)
			h.metrics.IncrementEvent(string(env.Type), "rejected")
		}
		httputil.WriteError(w, err)
	}
}

// dispatch reports false for event types this service does not act on.
func (h *Handler) dispatch(ctx context.Context, env *Envelope) (bool, error) {
	switch env.Type {
	case EventVerificationUpdated:
		d, err := decodeData[verificationUpdated](env.Data)
		if err != nil {
			return true, err
		}
		profileID, err := id.ParseProfileID(d.CustomerID)
		if err != nil {
			return true, err
		}
		_, err = h.verification.RefreshVerificationStatus(ctx, profileID)
		return true, err

	case EventDepositReceived:
		d, err := decodeData[depositReceived](env.Data)
		if err != nil {
			return true, err
		}
		if err := d.Validate(); err != nil {
			return true, err
		}
		return true, h.wallets.RecordDeposit(ctx, wallet.DepositNotice{
			ProviderAccountID:     d.AccountID,
			ProviderTransactionID: d.TransactionID,
			AmountCents:           money.Cents(d.AmountCents),
			Currency:              d.Currency,
			Rail:                  d.Rail,
			SenderName:            d.SenderName,
			State:                 d.State,
		})

	case EventTransferUpdated:
		d, err := decodeData[transferUpdated](env.Data)
		if err != nil {
			return true, err
		}
		if d.TransferID == "" || d.State == "" {
			return true, dErrors.Validation(dErrors.FieldError{Field: "data.transfer_id", Message: "transfer_id and state are required"})
		}
		return true, h.ledger.UpdateTransferState(ctx, d.TransferID, d.State)

	case EventExternalAccountUpdated:
		d, err := decodeData[externalAccountUpdated](env.Data)
		if err != nil {
			return true, err
		}
		return true, h.wallets.ApplyExternalAccountStatus(ctx, d.AccountID, d.ExternalAccountID, d.Status)
	}
	return false, nil
}

func (h *Handler) rejectSignature(ctx context.Context, r *http.Request, requestID string) {
	h.logger.WarnContext(ctx, string(audit.EventWebhookSignatureRejected),
		"event", string(audit.EventWebhookSignatureRejected),
		"log_type", "audit",
		"request_id", requestID,
		"remote_addr", r.RemoteAddr,
	)
	h.metrics.IncrementEvent("unknown", "unauthorized")
	if h.audit == nil {
		return
	}
	err := h.audit.Emit(ctx, audit.Event{
		Subject:   "webhooks/provider",
		Action:    string(audit.EventWebhookSignatureRejected),
		Decision:  "rejected",
		Reason:    "invalid_signature",
		RequestID: requestID,
		ActorID:   actorID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(audit.EventWebhookSignatureRejected), "error", err)
	}
}
