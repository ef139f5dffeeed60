package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"walletgate/internal/activity"
	activityservice "walletgate/internal/activity/service"
	activitystore "walletgate/internal/activity/store"
	"walletgate/internal/directory"
	directoryservice "walletgate/internal/directory/service"
	directorystore "walletgate/internal/directory/store"
	jwttoken "walletgate/internal/jwt_token"
	"walletgate/internal/platform/config"
	"walletgate/internal/platform/metrics"
	redisclient "walletgate/internal/platform/redis"
	"walletgate/internal/provider"
	ratelimitmetrics "walletgate/internal/ratelimit/metrics"
	ratelimit "walletgate/internal/ratelimit/middleware"
	ratelimitmodels "walletgate/internal/ratelimit/models"
	"walletgate/internal/ratelimit/store/bucket"
	httptransport "walletgate/internal/transport/http"
	"walletgate/internal/verification"
	verificationmetrics "walletgate/internal/verification/metrics"
	verificationservice "walletgate/internal/verification/service"
	"walletgate/internal/verification/store/profile"
	"walletgate/internal/verification/store/review"
	"walletgate/internal/wallet"
	walletmetrics "walletgate/internal/wallet/metrics"
	walletservice "walletgate/internal/wallet/service"
	walletstore "walletgate/internal/wallet/store"
	"walletgate/internal/webhook"
	webhookmetrics "walletgate/internal/webhook/metrics"
	id "walletgate/pkg/domain"
	auditpublisher "walletgate/pkg/platform/audit/publisher"
	auditmemory "walletgate/pkg/platform/audit/store/memory"
	auditpostgres "walletgate/pkg/platform/audit/store/postgres"
	"walletgate/pkg/platform/circuit"
	"walletgate/pkg/platform/keylock"
	"walletgate/pkg/platform/secrets"
)

// infra is what run opens before anything is assembled. Nil db or rdb select
// the in-memory implementations.
type infra struct {
	db      *sql.DB
	rdb     *redisclient.Client
	gateway provider.Gateway
}

type app struct {
	handler    http.Handler
	audit      *auditpublisher.Publisher
	auditStore auditpublisher.Store
}

// assemble builds stores, services and the router. The caller closes the
// audit publisher.
func assemble(ctx context.Context, cfg config.Config, log *slog.Logger, in infra) (*app, error) {
	stores := buildStores(in.db)
	if err := directorystore.SeedOrganizations(ctx, stores.directory); err != nil {
		return nil, err
	}

	locks, flight := buildLocks(in.rdb)

	auditStore := buildAuditStore(in.db)
	audit := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(1024),
		auditpublisher.WithLogger(log),
	)

	verificationSvc, err := verification.NewService(stores.profiles, stores.reviews, in.gateway,
		verificationservice.WithLogger(log),
		verificationservice.WithAuditPublisher(audit),
		verificationservice.WithMetrics(verificationmetrics.New()),
		verificationservice.WithKeyLocks(locks, flight),
	)
	if err != nil {
		return nil, err
	}
	directorySvc, err := directory.NewService(stores.directory)
	if err != nil {
		return nil, err
	}
	activitySvc, err := activity.NewService(stores.activity)
	if err != nil {
		return nil, err
	}
	walletSvc, err := wallet.NewService(stores.wallets, in.gateway, verificationSvc, directorySvc, activitySvc,
		walletservice.WithLogger(log),
		walletservice.WithAuditPublisher(audit),
		walletservice.WithMetrics(walletmetrics.New()),
		walletservice.WithBalanceCache(buildBalanceCache(cfg, in.rdb)),
		walletservice.WithSandbox(cfg.Wallet.Sandbox),
		walletservice.WithLiquidationDestination(walletservice.LiquidationDestination{
			Chain:    id.Chain(cfg.Wallet.DestinationChain),
			Currency: id.Currency(cfg.Wallet.DestinationCurrency),
			Address:  cfg.Wallet.DestinationAddress,
		}),
		walletservice.WithKeyLocks(locks, flight),
	)
	if err != nil {
		return nil, err
	}

	adminHash := cfg.Server.AdminTokenHash
	if adminHash == "" && cfg.Server.AdminToken != "" {
		if adminHash, err = secrets.Hash(cfg.Server.AdminToken); err != nil {
			return nil, err
		}
	}

	limiter := buildRateLimiter(cfg, in.rdb, log)
	verificationHandler := verification.NewHandler(verificationSvc, log)
	handler := httptransport.NewRouter(httptransport.Dependencies{
		Logger:         log,
		Metrics:        metrics.New(),
		Validator:      jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)),
		AdminTokenHash: adminHash,
		AccountLimit:   limiter.PerAccount(ratelimitmodels.Limit{Requests: cfg.RateLimit.AccountRequests, Window: cfg.RateLimit.Window}),
		PublicLimit:    limiter.PerIP(ratelimitmodels.Limit{Requests: cfg.RateLimit.WebhookRequests, Window: cfg.RateLimit.Window}),
		Public: []httptransport.Routes{
			webhook.New(cfg.Provider.WebhookSecret, verificationSvc, walletSvc, activitySvc, log,
				webhook.WithAuditPublisher(audit),
				webhook.WithMetrics(webhookmetrics.New()),
			),
		},
		Account: []httptransport.Routes{
			verificationHandler,
			wallet.NewHandler(walletSvc, log),
			activity.NewHandler(activitySvc, walletSvc, log),
		},
		Admin: []httptransport.AdminRoutes{
			verificationHandler,
			directory.NewHandler(directorySvc, log),
		},
		Health: healthChecks(in.db, in.rdb),
	})

	return &app{handler: handler, audit: audit, auditStore: auditStore}, nil
}

type stores struct {
	profiles  verificationservice.ProfileStore
	reviews   verificationservice.ReviewStore
	wallets   walletservice.Store
	activity  activityservice.Store
	directory directoryservice.Store
}

func buildStores(db *sql.DB) stores {
	if db == nil {
		return stores{
			profiles:  profile.NewInMemory(),
			reviews:   review.NewInMemory(),
			wallets:   walletstore.NewInMemory(),
			activity:  activitystore.NewInMemory(),
			directory: directorystore.NewInMemory(),
		}
	}
	return stores{
		profiles:  profile.NewPostgres(db),
		reviews:   review.NewPostgres(db),
		wallets:   walletstore.NewPostgres(db),
		activity:  activitystore.NewPostgres(db),
		directory: directorystore.NewPostgres(db),
	}
}

func buildAuditStore(db *sql.DB) auditpublisher.Store {
	if db == nil {
		return auditmemory.NewInMemoryStore()
	}
	return auditpostgres.New(db)
}

// buildGateway returns the sandbox when no provider URL is configured.
// Real provider calls go through the breaker, then retry with backoff.
func buildGateway(cfg config.Config, log *slog.Logger) provider.Gateway {
	if cfg.Provider.BaseURL == "" {
		log.Warn("PROVIDER_BASE_URL not set, using sandbox provider")
		var opts []provider.SandboxOption
		if cfg.Provider.SandboxAutoApprove {
			opts = append(opts, provider.WithAutoApprove())
		}
		if cfg.Provider.SandboxAutoVerify {
			opts = append(opts, provider.WithAutoVerify())
		}
		if cfg.Provider.SandboxInitialFunds > 0 {
			opts = append(opts, provider.WithInitialFunds(int64(cfg.Provider.SandboxInitialFunds)))
		}
		return provider.NewSandbox(opts...)
	}
	breaker := circuit.New("provider",
		circuit.WithFailureThreshold(cfg.Provider.BreakerThreshold),
		circuit.WithCooldown(cfg.Provider.BreakerCooldown),
	)
	client := provider.NewHTTPClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout,
		provider.WithBreaker(breaker),
		provider.WithHTTPLogger(log),
	)
	return provider.NewRetrying(client, cfg.Provider.MaxRetries, provider.WithRetryLogger(log))
}

// buildLocks shares one lock table between services; keys are namespaced per
// service. With Redis the locks also hold across instances.
func buildLocks(rdb *redisclient.Client) (*keylock.Mutex, *keylock.Flight) {
	if rdb == nil {
		return keylock.NewMutex(), keylock.NewFlight()
	}
	lease := keylock.WithLease(keylock.NewRedisLease(rdb.Client))
	return keylock.NewMutex(lease), keylock.NewFlight(lease)
}

func buildBalanceCache(cfg config.Config, rdb *redisclient.Client) walletservice.BalanceCache {
	if rdb == nil {
		return walletstore.NewMemoryBalanceCache(cfg.Redis.BalanceCacheTTL)
	}
	return walletstore.NewRedisBalanceCache(rdb.Client, cfg.Redis.BalanceCacheTTL)
}

func buildRateLimiter(cfg config.Config, rdb *redisclient.Client, log *slog.Logger) *ratelimit.Middleware {
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	}
	if rdb == nil {
		return ratelimit.New(bucket.NewInMemory(), log, opts...)
	}
	return ratelimit.New(bucket.NewRedis(rdb.Client), log, opts...)
}

func healthChecks(db *sql.DB, rdb *redisclient.Client) map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = rdb.Health
	}
	return checks
}
