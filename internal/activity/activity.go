// Package activity is the ledger of fund movements and the feed that merges
// them for display.
package activity

import (
	"log/slog"

	"walletgate/internal/activity/handler"
	"walletgate/internal/activity/service"
)

type Service = service.Service

type Handler = handler.Handler

func NewService(store service.Store, opts ...service.Option) (*Service, error) {
	return service.New(store, opts...)
}

func NewHandler(s *Service, wallets handler.WalletResolver, logger *slog.Logger) *Handler {
	return handler.New(s, wallets, logger)
}
