// Package verification gates monetary capability behind KYC or KYB approval.
package verification

import (
	"log/slog"

	"walletgate/internal/provider"
	"walletgate/internal/verification/handler"
	"walletgate/internal/verification/service"
)

// Service is the verification engine.
type Service = service.Service

// Handler wires HTTP endpoints to the verification engine.
type Handler = handler.Handler

func NewService(profiles service.ProfileStore, reviews service.ReviewStore, gateway provider.Gateway, opts ...service.Option) (*Service, error) {
	return service.New(profiles, reviews, gateway, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
