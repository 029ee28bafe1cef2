// Package app wires the catalog admin console together.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/client"
	"github.com/abgdnv/catalogadmin/internal/config"
	"github.com/abgdnv/catalogadmin/internal/store"
	"github.com/abgdnv/catalogadmin/internal/stubapi"
	"github.com/abgdnv/catalogadmin/internal/transport/ui"
	"github.com/abgdnv/catalogadmin/internal/views"
	"github.com/abgdnv/catalogadmin/pkg/messaging"
	"github.com/abgdnv/catalogadmin/pkg/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Dependencies struct {
	API     client.ProductAPI
	Store   *store.Store
	Console *views.Console
	Logger  *slog.Logger
	// MetricsHandler serves the prometheus scrape endpoint; nil disables it.
	MetricsHandler http.Handler
}

// SetupDependencies builds the API client, the product store and the flows on top of them.
func SetupDependencies(cfg *config.Config, publisher messaging.Publisher, metrics http.Handler, logger *slog.Logger) *Dependencies {
	api := client.New(cfg.API.BaseURL, logger,
		client.WithTimeout(cfg.API.Timeout),
		client.WithCircuitBreaker(cfg.Resilience.CircuitBreaker),
	)
	productStore := store.New(api, logger)
	watchStore(productStore, logger)

	return &Dependencies{
		API:            api,
		Store:          productStore,
		Console:        views.NewConsole(api, productStore, publisher, logger),
		Logger:         logger,
		MetricsHandler: metrics,
	}
}

// watchStore logs when the settled status of the store flips between succeeded and failed.
// The subscription ends when the store is closed.
func watchStore(s *store.Store, logger *slog.Logger) {
	var (
		mu   sync.Mutex
		last store.Status
	)
	s.Subscribe(func(st store.State) {
		if st.Status != store.StatusSucceeded && st.Status != store.StatusFailed {
			return
		}
		mu.Lock()
		prev := last
		last = st.Status
		mu.Unlock()
		if prev == st.Status {
			return
		}
		if st.Status == store.StatusFailed {
			logger.Warn("Product list unavailable", "error", st.Err, "version", st.Version)
			return
		}
		logger.Info("Product list available", "version", st.Version, "count", len(st.Items))
	})
}

// SetupHttpHandler builds the console router with its middleware, pages and optional metrics endpoint.
// Used by tests to exercise the full HTTP stack.
func SetupHttpHandler(deps *Dependencies, metricsPath string) (http.Handler, error) {
	mux := server.NewChiRouter(deps.Logger)

	pages, err := ui.NewHandler(deps.Console, deps.Store, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create console handler: %w", err)
	}
	pages.RegisterRoutes(mux)

	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, metricsPath, deps.MetricsHandler)
	}
	return otelhttp.NewHandler(mux, "catalog-admin"), nil
}

// SetupHttpServer creates the console HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) (*http.Server, error) {
	handler, err := SetupHttpHandler(deps, cfg.Telemetry.Metrics.Path)
	if err != nil {
		return nil, err
	}
	return server.NewHTTPServer(cfg.HTTPServer, handler), nil
}

// SetupStubServer creates an in-memory catalog API server for local development.
func SetupStubServer(cfg *config.Config, logger *slog.Logger) *http.Server {
	mux := server.NewChiRouter(logger)
	stubapi.NewHandler(stubapi.NewInMemoryStore(), logger).RegisterRoutes(mux)
	return server.NewHTTPServerOnPort(cfg.HTTPServer, cfg.Stub.Port, otelhttp.NewHandler(mux, "catalog-stub-api"))
}
