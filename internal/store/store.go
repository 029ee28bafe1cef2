// Package store holds the console's authoritative copy of the product list.
//
// The store never changes items on its own initiative and exposes no way to
// patch them: every mutation goes through the catalog API and is followed by a
// Reload, so the store only ever holds what the backend confirmed.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned by Reload after Close.
var ErrClosed = errors.New("product store closed")

// Status describes the fetch lifecycle of the store.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Lister is the part of the catalog API the store reads from.
type Lister interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// State is an immutable snapshot of the store.
type State struct {
	Items  []catalog.Product
	Status Status
	// Err is the failure of the newest reload when Status is StatusFailed.
	Err error
	// Version is the sequence number of the reload whose items are shown, zero before the first load.
	Version uint64
}

// Find returns the item with the given id.
func (s State) Find(id int64) (catalog.Product, bool) {
	i := slices.IndexFunc(s.Items, func(p catalog.Product) bool { return p.ID == id })
	if i < 0 {
		return catalog.Product{}, false
	}
	return s.Items[i], true
}

// Listener is notified with the new state after every change.
type Listener func(State)

// Store is safe for concurrent use.
type Store struct {
	lister Lister
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	issued    uint64 // sequence number of the newest reload started
	applied   uint64 // sequence number of the newest reload whose outcome was applied
	listeners map[uint64]Listener
	nextSubID uint64
	closed    bool

	reloads metric.Int64Counter
}

// New creates an idle, empty store reading from lister.
func New(lister Lister, logger *slog.Logger) *Store {
	reloads, err := otel.Meter("catalog-admin/store").Int64Counter("catalog_store_reloads",
		metric.WithDescription("Product list reloads by outcome"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_store_reloads counter: %v", err))
	}
	s := &Store{
		lister:    lister,
		logger:    logger.With("component", "store"),
		state:     State{Items: []catalog.Product{}, Status: StatusIdle},
		listeners: make(map[uint64]Listener),
		reloads:   reloads,
	}
	_, err = otel.Meter("catalog-admin/store").Int64ObservableGauge("catalog_store_items",
		metric.WithDescription("Products currently held by the store"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			s.mu.RLock()
			defer s.mu.RUnlock()
			o.Observe(int64(len(s.state.Items)))
			return nil
		}))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_store_items gauge: %v", err))
	}
	return s
}

// GetState returns a snapshot of the current state. The returned slice is a copy.
func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Find looks up the current item with the given id.
func (s *Store) Find(id int64) (catalog.Product, bool) {
	return s.GetState().Find(id)
}

// Subscribe registers l and returns a function that unregisters it.
// Listeners run synchronously after the change, outside the store lock.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Reload fetches the full list from the backend and replaces the items wholesale.
//
// While a reload is in flight the status is loading. On failure the status becomes
// failed and the previous items are kept. When reloads overlap, an outcome is applied
// only if it belongs to a newer reload than the last applied one, so a slow early
// response can never overwrite data from a later one. The status settles only when
// the newest reload resolves.
func (s *Store) Reload(ctx context.Context) error {
	seq, ok := s.begin()
	if !ok {
		return ErrClosed
	}

	items, err := s.lister.ListProducts(ctx)

	applied := s.finish(ctx, seq, items, err)
	result := "applied"
	if !applied {
		result = "stale"
	} else if err != nil {
		result = "failed"
	}
	s.reloads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	if err != nil {
		return fmt.Errorf("reload products: %w", err)
	}
	return nil
}

// Close drops all listeners; later reloads fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.listeners)
}

func (s *Store) begin() (uint64, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	s.issued++
	seq := s.issued
	s.state.Status = StatusLoading
	s.state.Err = nil
	snap, listeners := s.snapshot(), s.listenerList()
	s.mu.Unlock()

	notify(listeners, snap)
	return seq, true
}

// finish applies the outcome of reload seq unless a newer one was already applied.
func (s *Store) finish(ctx context.Context, seq uint64, items []catalog.Product, err error) bool {
	s.mu.Lock()
	if s.closed || seq <= s.applied {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Discarding stale reload", "seq", seq, "error", err)
		return false
	}
	s.applied = seq
	newest := seq == s.issued

	if err != nil {
		if newest {
			s.state.Status = StatusFailed
			s.state.Err = err
		}
		s.logger.WarnContext(ctx, "Product reload failed", "seq", seq, "error", err)
	} else {
		s.state.Items = slices.Clone(items)
		if s.state.Items == nil {
			s.state.Items = []catalog.Product{}
		}
		s.state.Version = seq
		if newest {
			s.state.Status = StatusSucceeded
			s.state.Err = nil
		}
		s.logger.DebugContext(ctx, "Product list reloaded", "seq", seq, "count", len(items))
	}
	snap, listeners := s.snapshot(), s.listenerList()
	s.mu.Unlock()

	notify(listeners, snap)
	return true
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot() State {
	st := s.state
	st.Items = slices.Clone(s.state.Items)
	return st
}

// listenerList must be called with s.mu held.
func (s *Store) listenerList() []Listener {
	list := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		list = append(list, l)
	}
	return list
}

func notify(listeners []Listener, st State) {
	for _, l := range listeners {
		l(st)
	}
}
