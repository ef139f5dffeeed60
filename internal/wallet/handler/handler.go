package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	directory "walletgate/internal/directory/models"
	"walletgate/internal/wallet/models"
	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/httputil"
	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/requestcontext"
)

// Service is the wallet orchestrator as the HTTP layer uses it.
type Service interface {
	CreateWallet(ctx context.Context, accountID id.AccountID) (*models.Wallet, error)
	GetWallet(ctx context.Context, accountID id.AccountID) (*models.Wallet, error)
	GetBalance(ctx context.Context, accountID id.AccountID) (*models.Balance, error)
	GetDepositInstructions(ctx context.Context, accountID id.AccountID, rail string) (*models.DepositInstructions, error)
	LinkExternalAccount(ctx context.Context, accountID id.AccountID, details *models.BankDetails) (*models.ExternalBankAccount, error)
	ListExternalAccounts(ctx context.Context, accountID id.AccountID) ([]models.ExternalBankAccount, error)
	RefreshExternalAccount(ctx context.Context, accountID id.AccountID, externalID id.ExternalAccountID) (*models.ExternalBankAccount, error)
	SearchRecipients(ctx context.Context, accountID id.AccountID, query string) ([]directory.Entry, error)
	Send(ctx context.Context, accountID id.AccountID, req *models.SendRequest) (*models.SendResult, error)
	Withdraw(ctx context.Context, accountID id.AccountID, req *models.WithdrawRequest) (*models.WithdrawalResult, error)
	ProvisionLiquidationAddress(ctx context.Context, accountID id.AccountID, chain id.Chain, currency id.Currency) (*models.LiquidationAddress, error)
	ListLiquidationAddresses(ctx context.Context, accountID id.AccountID) ([]models.LiquidationAddress, error)
	ProvisionCardAccount(ctx context.Context, accountID id.AccountID, cardholderName string) (*models.CardAccount, error)
	GetCard(ctx context.Context, accountID id.AccountID) (*models.CardAccount, error)
	SetCardFrozen(ctx context.Context, accountID id.AccountID, frozen bool) (*models.CardAccount, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the wallet routes. r must already authenticate.
func (h *Handler) Register(r chi.Router) {
	r.Route("/wallet", func(r chi.Router) {
		r.Post("/", h.handleCreateWallet)
		r.Get("/", h.handleGetWallet)
		r.Get("/balance", h.handleBalance)
		r.Get("/deposit-instructions", h.handleDepositInstructions)
		r.Post("/external-accounts", h.handleLinkExternalAccount)
		r.Get("/external-accounts", h.handleListExternalAccounts)
		r.Post("/external-accounts/{externalAccountID}/refresh", h.handleRefreshExternalAccount)
		r.Get("/recipients", h.handleSearchRecipients)
		r.Post("/send", h.handleSend)
		r.Post("/withdraw", h.handleWithdraw)
		r.Post("/liquidation-addresses", h.handleProvisionLiquidation)
		r.Get("/liquidation-addresses", h.handleListLiquidation)
		r.Post("/card", h.handleProvisionCard)
		r.Get("/card", h.handleGetCard)
		r.Post("/card/freeze", h.handleFreezeCard)
	})
}

func (h *Handler) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet, err := h.service.CreateWallet(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "create wallet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, wallet)
}

func (h *Handler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet, err := h.service.GetWallet(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "get wallet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, wallet)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	balance, err := h.service.GetBalance(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "get balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balance)
}

func (h *Handler) handleDepositInstructions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	instructions, err := h.service.GetDepositInstructions(ctx, requestcontext.AccountID(ctx), r.URL.Query().Get("rail"))
	if err != nil {
		h.fail(ctx, w, "get deposit instructions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, instructions)
}

func (h *Handler) handleLinkExternalAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.BankDetails](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	account, err := h.service.LinkExternalAccount(ctx, requestcontext.AccountID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "link external account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleListExternalAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.service.ListExternalAccounts(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "list external accounts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"external_accounts": accounts})
}

func (h *Handler) handleRefreshExternalAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	externalID, err := id.ParseExternalAccountID(chi.URLParam(r, "externalAccountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := h.service.RefreshExternalAccount(ctx, requestcontext.AccountID(ctx), externalID)
	if err != nil {
		h.fail(ctx, w, "refresh external account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) handleSearchRecipients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.SearchRecipients(ctx, requestcontext.AccountID(ctx), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(ctx, w, "search recipients", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"recipients": entries})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SendRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.Send(ctx, requestcontext.AccountID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "send", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.WithdrawRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.Withdraw(ctx, requestcontext.AccountID(ctx), req)
	if err != nil {
		h.fail(ctx, w, "withdraw", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleProvisionLiquidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.LiquidationRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	la, err := h.service.ProvisionLiquidationAddress(ctx, requestcontext.AccountID(ctx), req.ParsedChain, req.ParsedCurrency)
	if err != nil {
		h.fail(ctx, w, "provision liquidation address", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, la)
}

func (h *Handler) handleListLiquidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addresses, err := h.service.ListLiquidationAddresses(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "list liquidation addresses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"liquidation_addresses": addresses})
}

func (h *Handler) handleProvisionCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CardRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	card, err := h.service.ProvisionCardAccount(ctx, requestcontext.AccountID(ctx), req.CardholderName)
	if err != nil {
		h.fail(ctx, w, "provision card", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleGetCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	card, err := h.service.GetCard(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		h.fail(ctx, w, "get card", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleFreezeCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.FreezeRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	card, err := h.service.SetCardFrozen(ctx, requestcontext.AccountID(ctx), req.Frozen)
	if err != nil {
		h.fail(ctx, w, "freeze card", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{"request_id", request.GetRequestID(ctx), "error", err}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, op+" rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
