package httpserver

import (
	"net/http"
	"time"

	"walletgate/internal/platform/config"
)

// New builds the listener for cfg. Document uploads are the slowest requests,
// so ReadTimeout comes from config rather than a fixed default.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       orDefault(cfg.ReadTimeout, 30*time.Second),
		WriteTimeout:      orDefault(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:       2 * time.Minute,
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
