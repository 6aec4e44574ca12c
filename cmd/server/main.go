// Command server wires high-level dependencies, exposes the HTTP router, and
// keeps the server lifecycle small. Business logic lives in the internal
// feature packages.
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

	"gymgate/internal/attendance"
	attmetrics "gymgate/internal/attendance/metrics"
	"gymgate/internal/attendance/service"
	attstore "gymgate/internal/attendance/store"
	"gymgate/internal/audit"
	"gymgate/internal/biometric"
	"gymgate/internal/directory"
	"gymgate/internal/platform/config"
	"gymgate/internal/platform/httpserver"
	"gymgate/internal/platform/logger"
	"gymgate/internal/platform/postgres"
	platformredis "gymgate/internal/platform/redis"
	"gymgate/internal/subscription"
	httptransport "gymgate/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(slog.LevelInfo)

	var (
		ledger      service.Ledger
		dir         directory.Store
		settings    directory.SettingsStore
		healthCheck func(*http.Request) error
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := attstore.EnsureSchema(ctx, db); err != nil {
			return err
		}
		if err := directory.EnsureSchema(ctx, db); err != nil {
			return err
		}
		ledger = attstore.NewPostgres(db)
		dir = directory.NewPostgres(db)
		settings = directory.NewPostgresSettings(db)
		healthCheck = func(r *http.Request) error { return db.PingContext(r.Context()) }
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		ledger = attstore.NewInMemoryLedger()
		dir = directory.NewInMemoryStore()
		settings = directory.NewInMemorySettingsStore()
	}

	cache, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		dir = directory.NewCachedStore(dir, cache.Client, cfg.Redis.ProfileTTL, log)
	}

	group, ctx := errgroup.WithContext(ctx)

	opts := []attendance.Option{
		service.WithResolver(biometric.NewStubResolver()),
		service.WithMetrics(attmetrics.New()),
		service.WithLogger(log),
	}
	if cfg.Gate.Policy == "all" {
		opts = append(opts, service.WithGatePolicy(subscription.GateAllEntries))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := publisher.EnsureTopic(ctx, 3); err != nil {
			return err
		}
		inbox := make(chan audit.Event, cfg.Kafka.InboxSize)
		opts = append(opts, service.WithAuditPublisher(audit.NewChannelPublisher(inbox)))
		worker := audit.NewWorker(publisher, inbox, log)
		group.Go(func() error { return worker.Run(ctx) })
	}

	svc := attendance.NewService(ledger, dir, settings, opts...)
	devices := biometric.NewDeviceRegistry()

	router := httptransport.NewRouter(httptransport.Deps{
		Attendance:    attendance.NewHandler(svc, log),
		Devices:       devices,
		JWTSigningKey: cfg.Auth.JWTSigningKey,
		Logger:        log,
		Health:        healthCheck,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	group.Go(func() error {
		log.Info("starting gymgate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
