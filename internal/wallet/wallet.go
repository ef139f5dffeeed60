// Package wallet provisions provider accounts for approved profiles and moves
// funds out of them.
package wallet

import (
	"log/slog"

	"walletgate/internal/provider"
	"walletgate/internal/wallet/handler"
	"walletgate/internal/wallet/service"
)

type Service = service.Service

type Handler = handler.Handler

func NewService(st service.Store, gateway provider.Gateway, gate service.VerificationGate, dir service.Directory, ledger service.Ledger, opts ...service.Option) (*Service, error) {
	return service.New(st, gateway, gate, dir, ledger, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
