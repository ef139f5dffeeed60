// Package directory is the searchable list of users and organizations that can
// receive funds.
package directory

import (
	"log/slog"

	"walletgate/internal/directory/handler"
	"walletgate/internal/directory/service"
)

type Service = service.Service

type Handler = handler.Handler

func NewService(store service.Store, opts ...service.Option) (*Service, error) {
	return service.New(store, opts...)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
