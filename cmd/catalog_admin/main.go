// Package main runs the catalog admin console.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/catalogadmin/internal/app"
	"github.com/abgdnv/catalogadmin/internal/config"
	"github.com/abgdnv/catalogadmin/pkg/bootstrap"
	"github.com/abgdnv/catalogadmin/pkg/config/configloader"
	"github.com/abgdnv/catalogadmin/pkg/messaging"
	"github.com/abgdnv/catalogadmin/pkg/messaging/events"
	natsclient "github.com/abgdnv/catalogadmin/pkg/nats"
	"github.com/abgdnv/catalogadmin/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "catalog"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads configuration, wires the console and serves it until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load(serviceName, &config.Config{}, configloader.Options{Defaults: config.Defaults()})
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	providers, err := telemetry.Setup(ctx, "catalog-admin", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	deps := app.SetupDependencies(cfg, publisher, providers.MetricsHandler, logger)
	defer deps.Store.Close()

	httpServer, err := app.SetupHttpServer(deps, cfg)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	serve(gCtx, g, logger, cfg, "HTTP", httpServer)
	if cfg.Stub.Enabled {
		serve(gCtx, g, logger, cfg, "Stub API", app.SetupStubServer(cfg, logger))
	}
	if cfg.PProf.Enabled {
		serve(gCtx, g, logger, cfg, "Pprof", &http.Server{Addr: cfg.PProf.Addr})
	}

	// initial load; a failure is visible on the list page and can be retried from there
	g.Go(func() error {
		if err := deps.Store.Reload(gCtx); err != nil {
			logger.Warn("Initial product load failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// serve runs srv in g and shuts it down gracefully once ctx is done.
func serve(ctx context.Context, g *errgroup.Group, logger *slog.Logger, cfg *config.Config, name string, srv *http.Server) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down " + name + " server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// newPublisher connects to NATS JetStream when configured, otherwise events are dropped.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Events.Nats.Enabled() {
		logger.Info("NATS not configured, audit events are disabled")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	nc, err := natsclient.NewClient(cfg.Events.Nats.Url, cfg.Events.Nats.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := natsclient.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.Events.Nats.Timeout)
	defer cancel()
	if err := natsclient.EnsureStream(streamCtx, js, cfg.Events.Nats.Stream, events.ProductsSubjectPattern); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Publishing audit events to NATS", "stream", cfg.Events.Nats.Stream)
	closeFn := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", "error", err)
		}
	}
	return natsclient.NewNatsPublisher(js), closeFn, nil
}
