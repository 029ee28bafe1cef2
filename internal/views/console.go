// Package views holds the product list view model and the create, edit and
// delete flows of the admin console.
//
// Flows never touch the store's items. After every confirmed mutation they ask
// the store to reload, so what the console shows is always what the backend holds.
package views

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/client"
	"github.com/abgdnv/catalogadmin/pkg/messaging"
	"github.com/abgdnv/catalogadmin/pkg/messaging/events"
	"github.com/go-chi/chi/v5/middleware"
)

// Catalog is the part of the product store the flows depend on.
type Catalog interface {
	Find(id int64) (catalog.Product, bool)
	Reload(ctx context.Context) error
}

// Console creates flows bound to the same API, store and event publisher.
type Console struct {
	api       client.ProductAPI
	store     Catalog
	publisher messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewConsole wires the flows. A nil publisher disables audit events.
func NewConsole(api client.ProductAPI, store Catalog, publisher messaging.Publisher, logger *slog.Logger) *Console {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Console{
		api:       api,
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "views"),
		now:       time.Now,
	}
}

// reload refreshes the store. Its failure is recorded in the store status, so it is only logged here.
func (c *Console) reload(ctx context.Context) {
	if err := c.store.Reload(ctx); err != nil {
		c.logger.WarnContext(ctx, "Reload after mutation failed", "error", err)
	}
}

// publish emits an audit event for a confirmed mutation. Failures never undo the mutation.
func (c *Console) publish(ctx context.Context, action string, p catalog.Product) {
	event := events.ProductChangedEvent{
		Action:      action,
		ProductID:   p.ID,
		ProductName: p.ProductName,
		RequestID:   middleware.GetReqID(ctx),
		OccurredAt:  c.now().UTC(),
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish product event", "subject", event.Subject(), "error", err)
	}
}
