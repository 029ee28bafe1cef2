package views

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/client"
	"github.com/abgdnv/catalogadmin/pkg/messaging/events"
)

// Phase is the position of a form flow in its lifecycle.
type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseClosed     Phase = "closed"
)

// Mode tells whether a flow creates a new product or edits an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// FormState is a snapshot of a flow for rendering.
type FormState struct {
	Mode        Mode
	ProductID   int64
	Phase       Phase
	Draft       catalog.Draft
	FieldErrors catalog.FieldErrors
	FormError   string
	// Notice explains why the flow closed without saving, if it did.
	Notice string
}

// Flow drives one create or edit form:
//
//	editing -> validating -> invalid: editing | valid: submitting -> success: closed | failure: editing
//
// A Flow is safe for concurrent use; a second Submit while one is in flight fails with ErrBusy.
type Flow struct {
	console *Console
	mode    Mode
	id      int64

	mu          sync.Mutex
	phase       Phase
	draft       catalog.Draft
	fieldErrors catalog.FieldErrors
	formError   string
	notice      string
}

// NewCreateFlow opens a create form with a blank draft.
func (c *Console) NewCreateFlow() *Flow {
	return &Flow{console: c, mode: ModeCreate, phase: PhaseEditing}
}

// NewEditFlow opens an edit form initialised from the store's current record for id.
// If the store does not hold id it reloads the store and returns ErrProductNotFound.
func (c *Console) NewEditFlow(ctx context.Context, id int64) (*Flow, error) {
	p, ok := c.store.Find(id)
	if !ok {
		c.logger.WarnContext(ctx, "Edit target not in store", "ID", id)
		c.reload(ctx)
		return nil, fmt.Errorf("edit product %d: %w", id, ErrProductNotFound)
	}
	return &Flow{console: c, mode: ModeEdit, id: id, phase: PhaseEditing, draft: catalog.DraftOf(p)}, nil
}

// State returns a snapshot of the flow.
func (f *Flow) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		Mode:        f.mode,
		ProductID:   f.id,
		Phase:       f.phase,
		Draft:       f.draft,
		FieldErrors: maps.Clone(f.fieldErrors),
		FormError:   f.formError,
		Notice:      f.notice,
	}
}

// Cancel closes the flow. A submission still in flight completes, but its result is ignored.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = PhaseClosed
}

// Submit replaces the draft with d, validates it and, when valid, sends it to the
// catalog API.
//
// It returns catalog.FieldErrors when the draft is invalid, in which case no
// request is made. On success the flow closes and the store is reloaded. A backend
// failure returns the flow to editing with a form error; for an edit whose product
// vanished the flow closes, the store reloads and ErrProductNotFound is returned.
func (f *Flow) Submit(ctx context.Context, d catalog.Draft) error {
	payload, err := f.validate(d)
	if err != nil {
		return err
	}

	saved, apiErr := f.send(ctx, payload)

	f.mu.Lock()
	if f.phase == PhaseClosed {
		f.mu.Unlock()
		f.console.logger.DebugContext(ctx, "Ignoring result for closed flow", "mode", f.mode, "ID", f.id)
		return ErrClosed
	}

	switch {
	case apiErr == nil:
		f.phase = PhaseClosed
		f.draft = catalog.Draft{}
		f.fieldErrors = nil
		f.formError = ""
		f.mu.Unlock()

		action := events.ActionCreated
		if f.mode == ModeEdit {
			action = events.ActionUpdated
		}
		f.console.logger.InfoContext(ctx, "Product saved", "action", action, "ID", saved.ID)
		f.console.publish(ctx, action, saved)
		f.console.reload(ctx)
		return nil

	case f.mode == ModeEdit && errors.Is(apiErr, client.ErrNotFound):
		f.phase = PhaseClosed
		f.notice = MsgProductGone
		f.mu.Unlock()

		f.console.logger.WarnContext(ctx, "Edited product no longer exists", "ID", f.id)
		f.console.reload(ctx)
		return fmt.Errorf("update product %d: %w", f.id, ErrProductNotFound)

	default:
		f.phase = PhaseEditing
		f.formError = MsgSaveFailed
		var ce *client.Error
		if errors.As(apiErr, &ce) && len(ce.Fields) > 0 {
			f.fieldErrors = catalog.FieldErrors(maps.Clone(ce.Fields))
		}
		f.mu.Unlock()

		f.console.logger.ErrorContext(ctx, "Failed to save product", "mode", f.mode, "ID", f.id, "error", apiErr)
		return apiErr
	}
}

// validate moves the flow through validating and leaves it in submitting when d is valid.
func (f *Flow) validate(d catalog.Draft) (catalog.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.phase {
	case PhaseClosed:
		return catalog.Payload{}, ErrClosed
	case PhaseSubmitting, PhaseValidating:
		return catalog.Payload{}, ErrBusy
	}

	f.phase = PhaseValidating
	f.draft = d
	f.formError = ""
	payload, fieldErrs := catalog.ParseDraft(d)
	if fieldErrs != nil {
		f.phase = PhaseEditing
		f.fieldErrors = fieldErrs
		return catalog.Payload{}, fieldErrs
	}
	f.fieldErrors = nil
	f.phase = PhaseSubmitting
	return payload, nil
}

func (f *Flow) send(ctx context.Context, payload catalog.Payload) (catalog.Product, error) {
	var (
		saved *catalog.Product
		err   error
	)
	if f.mode == ModeEdit {
		saved, err = f.console.api.UpdateProduct(ctx, f.id, payload)
	} else {
		saved, err = f.console.api.CreateProduct(ctx, payload)
	}
	if err != nil {
		return catalog.Product{}, err
	}
	return *saved, nil
}
