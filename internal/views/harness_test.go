package views

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/client"
	"github.com/abgdnv/catalogadmin/internal/store"
	"github.com/abgdnv/catalogadmin/internal/stubapi"
	"github.com/abgdnv/catalogadmin/pkg/messaging"
	"github.com/abgdnv/catalogadmin/pkg/messaging/events"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ProductChangedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.(events.ProductChangedEvent))
	return nil
}

func (p *recordingPublisher) recorded() []events.ProductChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ProductChangedEvent(nil), p.events...)
}

// harness runs the console against the stub API over real HTTP.
type harness struct {
	backend   stubapi.ProductStore
	mutations atomic.Int32
	failWith  atomic.Int32 // when non-zero, every request is answered with this status
	store     *store.Store
	console   *Console
	publisher *recordingPublisher
}

func newHarness(t *testing.T, seed ...catalog.Product) *harness {
	t.Helper()
	h := &harness{backend: stubapi.NewInMemoryStore(seed...), publisher: &recordingPublisher{}}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				h.mutations.Add(1)
			}
			if status := h.failWith.Load(); status != 0 {
				http.Error(w, "backend failure", int(status))
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	stubapi.NewHandler(h.backend, discardLogger()).RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	api := client.New(server.URL+stubapi.BasePath, discardLogger())
	h.store = store.New(api, discardLogger())
	t.Cleanup(h.store.Close)
	h.console = NewConsole(api, h.store, h.publisher, discardLogger())

	require.NoError(t, h.store.Reload(context.Background()))
	return h
}

// blockingAPI holds every mutation until release is closed.
type blockingAPI struct {
	client.ProductAPI
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingAPI() *blockingAPI {
	return &blockingAPI{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingAPI) wait() {
	b.calls.Add(1)
	b.started <- struct{}{}
	<-b.release
}

func (b *blockingAPI) CreateProduct(_ context.Context, p catalog.Payload) (*catalog.Product, error) {
	b.wait()
	created := p.WithID(1)
	return &created, nil
}

func (b *blockingAPI) UpdateProduct(_ context.Context, id int64, p catalog.Payload) (*catalog.Product, error) {
	b.wait()
	updated := p.WithID(id)
	return &updated, nil
}

func (b *blockingAPI) DeleteProduct(context.Context, int64) error {
	b.wait()
	return nil
}

// fakeCatalog is an in-memory Catalog that counts reloads.
type fakeCatalog struct {
	items   map[int64]catalog.Product
	reloads atomic.Int32
}

func (c *fakeCatalog) Find(id int64) (catalog.Product, bool) {
	p, ok := c.items[id]
	return p, ok
}

func (c *fakeCatalog) Reload(context.Context) error {
	c.reloads.Add(1)
	return nil
}
