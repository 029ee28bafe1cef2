package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/client"
	"github.com/abgdnv/catalogadmin/pkg/messaging/events"
)

// DeleteStatus is the position of a delete confirmation in its lifecycle.
type DeleteStatus string

const (
	DeletePending   DeleteStatus = "pending"
	DeleteRunning   DeleteStatus = "deleting"
	DeleteDone      DeleteStatus = "deleted"
	DeleteCancelled DeleteStatus = "cancelled"
)

// DeleteState is a snapshot of a delete confirmation for rendering.
type DeleteState struct {
	Target catalog.Product
	Status DeleteStatus
	// Error is the visible message of the last failed attempt.
	Error string
}

// DeleteFlow asks for confirmation before deleting one product.
type DeleteFlow struct {
	console *Console
	target  catalog.Product

	mu     sync.Mutex
	status DeleteStatus
	errMsg string
}

// NewDeleteFlow starts a confirmation for the store's record with the given id.
// If the store does not hold id it reloads the store and returns ErrProductNotFound.
func (c *Console) NewDeleteFlow(ctx context.Context, id int64) (*DeleteFlow, error) {
	p, ok := c.store.Find(id)
	if !ok {
		c.logger.WarnContext(ctx, "Delete target not in store", "ID", id)
		c.reload(ctx)
		return nil, fmt.Errorf("delete product %d: %w", id, ErrProductNotFound)
	}
	return &DeleteFlow{console: c, target: p, status: DeletePending}, nil
}

// State returns a snapshot of the confirmation.
func (d *DeleteFlow) State() DeleteState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeleteState{Target: d.target, Status: d.status, Error: d.errMsg}
}

// Cancel abandons the confirmation without calling the API.
func (d *DeleteFlow) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == DeletePending {
		d.status = DeleteCancelled
	}
}

// Confirm deletes the product and reloads the store.
//
// A failure leaves the confirmation pending with a visible error so the user can
// retry. When the backend no longer knows the id the store is reloaded as well and
// the error wraps ErrProductNotFound.
func (d *DeleteFlow) Confirm(ctx context.Context) error {
	d.mu.Lock()
	switch d.status {
	case DeleteRunning:
		d.mu.Unlock()
		return ErrBusy
	case DeleteDone, DeleteCancelled:
		d.mu.Unlock()
		return ErrClosed
	}
	d.status = DeleteRunning
	d.errMsg = ""
	d.mu.Unlock()

	err := d.console.api.DeleteProduct(ctx, d.target.ID)

	d.mu.Lock()
	if err == nil {
		d.status = DeleteDone
		d.mu.Unlock()

		d.console.logger.InfoContext(ctx, "Product deleted", "ID", d.target.ID)
		d.console.publish(ctx, events.ActionDeleted, d.target)
		d.console.reload(ctx)
		return nil
	}

	if errors.Is(err, client.ErrNotFound) {
		d.status = DeleteDone
		d.errMsg = MsgProductGone
		d.mu.Unlock()

		d.console.logger.WarnContext(ctx, "Deleted product no longer exists", "ID", d.target.ID)
		d.console.reload(ctx)
		return fmt.Errorf("delete product %d: %w", d.target.ID, ErrProductNotFound)
	}

	d.status = DeletePending
	d.errMsg = MsgDeleteFailed
	d.mu.Unlock()

	d.console.logger.ErrorContext(ctx, "Failed to delete product", "ID", d.target.ID, "error", err)
	return err
}
