package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"walletgate/internal/platform/config"
	"walletgate/internal/platform/httpserver"
	"walletgate/internal/platform/logger"
	"walletgate/internal/platform/postgres"
	redisclient "walletgate/internal/platform/redis"
	"walletgate/pkg/platform/audit/relay"
	auditpostgres "walletgate/pkg/platform/audit/store/postgres"
)

const auditTopicPartitions = 3

// main wires high-level dependencies and starts the HTTP server. Services and
// stores live under internal/; this file only chooses implementations.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("postgres stores enabled")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	a, err := assemble(ctx, cfg, log, infra{db: db, rdb: rdb, gateway: buildGateway(cfg, log)})
	if err != nil {
		return err
	}
	defer a.audit.Close()

	var auditRelay *relay.Relay
	if pgAudit, ok := a.auditStore.(*auditpostgres.Store); ok && len(cfg.Kafka.Brokers) > 0 {
		client, err := relay.NewClient(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := relay.EnsureTopic(ctx, client, cfg.Kafka.AuditTopic, auditTopicPartitions); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		auditRelay = relay.New(pgAudit, client, cfg.Kafka.AuditTopic, relay.WithLogger(log))
	}

	srv := httpserver.New(cfg.Server, a.handler)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr, "sandbox", cfg.Wallet.Sandbox)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if auditRelay != nil {
		g.Go(func() error {
			if err := auditRelay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
