// Package stubapi is an in-memory implementation of the catalog REST API.
// It backs local development and the console's tests.
package stubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/pkg/web"
	"github.com/go-chi/chi/v5"
)

// BasePath is where the products collection is mounted.
const BasePath = "/api/products"

type Handler struct {
	store  ProductStore
	logger *slog.Logger
}

// NewHandler creates a handler serving the products in store.
func NewHandler(store ProductStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("component", "stubapi"),
	}
}

// RegisterRoutes registers the catalog API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route(BasePath, func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll lists every product.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	list := h.store.FindAll()
	h.logger.DebugContext(r.Context(), "Listing products", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// Create stores a new product and responds with it, including its id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	created := h.store.Create(payload)
	h.logger.InfoContext(r.Context(), "Product created", "ID", created.ID, "Name", created.ProductName)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update replaces a product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	updated, err := h.store.Update(id, payload)
	if err != nil {
		h.notFoundOrFail(w, r, id, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated", "ID", updated.ID, "Name", updated.ProductName)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// DeleteByID removes a product.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.store.DeleteByID(id); err != nil {
		h.notFoundOrFail(w, r, id, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodePayload reads and validates the request body, responding 400 when it is unusable.
func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (catalog.Payload, bool) {
	var payload catalog.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return catalog.Payload{}, false
	}
	if fieldErrs := catalog.Validate(payload); fieldErrs != nil {
		h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fieldErrs)
		web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": fieldErrs})
		return catalog.Payload{}, false
	}
	return payload, true
}

func (h *Handler) notFoundOrFail(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, ErrProductNotFound) {
		h.logger.WarnContext(r.Context(), "Product not found", "ID", id)
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
		return
	}
	h.logger.ErrorContext(r.Context(), "Error handling product", "ID", id, "error", err)
	web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to handle product with ID %d", id))
}
