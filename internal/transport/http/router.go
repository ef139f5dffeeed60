package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"walletgate/internal/platform/metrics"
	"walletgate/pkg/platform/httputil"
	adminmw "walletgate/pkg/platform/middleware/admin"
	authmw "walletgate/pkg/platform/middleware/auth"
	"walletgate/pkg/platform/middleware/metadata"
	request "walletgate/pkg/platform/middleware/request"
	"walletgate/pkg/platform/middleware/requesttime"
)

// Routes is implemented by feature handlers serving account holders.
type Routes interface {
	Register(r chi.Router)
}

// AdminRoutes is implemented by feature handlers with back-office endpoints.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies is everything the router mounts. Nil handlers are skipped.
type Dependencies struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Validator      authmw.JWTValidator
	AdminTokenHash string
	// AccountLimit runs after authentication; PublicLimit guards Public routes.
	AccountLimit func(http.Handler) http.Handler
	PublicLimit  func(http.Handler) http.Handler
	Account      []Routes
	Admin        []AdminRoutes
	Public       []Routes
	Health       map[string]HealthCheck
}

// NewRouter builds the chi tree: public routes and health first, then the
// bearer-authenticated account API, then the admin-token gated back office.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(deps.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(deps.Logger))
	r.Use(deps.Metrics.Middleware)

	r.Get("/health", healthHandler(deps.Health))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if deps.PublicLimit != nil {
			r.Use(deps.PublicLimit)
		}
		for _, h := range deps.Public {
			h.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Validator, deps.Logger))
		if deps.AccountLimit != nil {
			r.Use(deps.AccountLimit)
		}
		for _, h := range deps.Account {
			h.Register(r)
		}
	})

	if deps.AdminTokenHash != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(deps.AdminTokenHash, deps.Logger))
			for _, h := range deps.Admin {
				h.RegisterAdmin(r)
			}
		})
	} else {
		deps.Logger.Warn("admin token not configured, back-office routes disabled")
	}

	return otelhttp.NewHandler(r, "walletgate")
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
