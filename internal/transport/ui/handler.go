// Package ui serves the admin console pages and the JSON store snapshot.
package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/store"
	"github.com/abgdnv/catalogadmin/internal/views"
	"github.com/abgdnv/catalogadmin/pkg/web"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// noticeGone is the query value that shows views.MsgProductGone on the list page.
const noticeGone = "gone"

// flowTTL bounds how long a form stays resumable. Finished flows are kept for the
// same time so a re-posted form lands on the closed flow instead of opening a new one.
const flowTTL = 30 * time.Minute

// Store is the read side of the product store used by the pages.
type Store interface {
	GetState() store.State
	Reload(ctx context.Context) error
}

type Handler struct {
	console *views.Console
	store   Store
	forms   *views.Registry[*views.Flow]
	deletes *views.Registry[*views.DeleteFlow]
	pages   map[string]*template.Template
	logger  *slog.Logger
}

// NewHandler creates the console handler. It fails only if the embedded templates are broken
// or the flow gauge cannot be registered.
func NewHandler(console *views.Console, store Store, logger *slog.Logger) (*Handler, error) {
	return newHandler(console, store, logger, otel.Meter("catalog-admin/ui"))
}

func newHandler(console *views.Console, store Store, logger *slog.Logger, meter metric.Meter) (*Handler, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		console: console,
		store:   store,
		forms:   views.NewRegistry[*views.Flow](flowTTL),
		deletes: views.NewRegistry[*views.DeleteFlow](flowTTL),
		pages:   pages,
		logger:  logger.With("component", "ui"),
	}
	_, err = meter.Int64ObservableGauge("catalog_console_flows",
		metric.WithDescription("Form and delete flows held between requests"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(h.forms.Len()), metric.WithAttributes(attribute.String("kind", "form")))
			o.Observe(int64(h.deletes.Len()), metric.WithAttributes(attribute.String("kind", "delete")))
			return nil
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog_console_flows gauge: %w", err)
	}
	return h, nil
}

// RegisterRoutes registers the console routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/reload", h.Reload)

	r.Route("/products", func(r chi.Router) {
		r.Get("/new", h.NewForm)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/", h.Update)
			r.Get("/edit", h.EditForm)
			r.Get("/delete", h.DeleteConfirm)
			r.Post("/delete", h.Delete)
		})
	})

	r.Get("/api/state", h.State)
	r.Get("/healthz", h.HealthCheck)
}

// List renders the product list from the current store snapshot.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var flash string
	if r.URL.Query().Get("notice") == noticeGone {
		flash = views.MsgProductGone
	}
	h.render(w, r, http.StatusOK, pageList, views.NewList(h.store.GetState(), flash))
}

// Reload refreshes the store and goes back to the list. A failure shows up in the list status.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(context.WithoutCancel(r.Context())); err != nil {
		h.logger.WarnContext(r.Context(), "Manual reload failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// NewForm opens a create flow.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	flow := h.console.NewCreateFlow()
	h.renderForm(w, r, http.StatusOK, h.forms.Open(flow), flow)
}

// Create submits the create form.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid form")
		return
	}
	token := r.PostForm.Get("flow")
	flow, ok := h.forms.Get(token)
	if !ok || flow.State().Mode != views.ModeCreate {
		flow = h.console.NewCreateFlow()
		token = h.forms.Open(flow)
	}
	h.submit(w, r, token, flow)
}

// EditForm opens an edit flow for the product in the URL.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	flow, err := h.console.NewEditFlow(r.Context(), id)
	if err != nil {
		h.redirectGone(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, h.forms.Open(flow), flow)
}

// Update submits the edit form.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid form")
		return
	}
	token := r.PostForm.Get("flow")
	flow, ok := h.forms.Get(token)
	if !ok || flow.State().Mode != views.ModeEdit || flow.State().ProductID != id {
		var err error
		if flow, err = h.console.NewEditFlow(r.Context(), id); err != nil {
			h.redirectGone(w, r, err)
			return
		}
		token = h.forms.Open(flow)
	}
	h.submit(w, r, token, flow)
}

// DeleteConfirm asks for confirmation before deleting the product in the URL.
func (h *Handler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	flow, err := h.console.NewDeleteFlow(r.Context(), id)
	if err != nil {
		h.redirectGone(w, r, err)
		return
	}
	h.renderConfirm(w, r, http.StatusOK, h.deletes.Open(flow), flow)
}

// Delete confirms or cancels a deletion depending on the submitted action.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid form")
		return
	}
	token := r.PostForm.Get("flow")
	flow, found := h.deletes.Get(token)
	if !found || flow.State().Target.ID != id {
		var err error
		if flow, err = h.console.NewDeleteFlow(r.Context(), id); err != nil {
			h.redirectGone(w, r, err)
			return
		}
		token = h.deletes.Open(flow)
	}

	if r.PostForm.Get("action") != "confirm" {
		flow.Cancel()
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	err := flow.Confirm(context.WithoutCancel(r.Context()))
	switch {
	case err == nil, errors.Is(err, views.ErrClosed):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, views.ErrProductNotFound):
		http.Redirect(w, r, "/?notice="+noticeGone, http.StatusSeeOther)
	case errors.Is(err, views.ErrBusy):
		h.renderConfirm(w, r, http.StatusConflict, token, flow)
	default:
		h.renderConfirm(w, r, http.StatusBadGateway, token, flow)
	}
}

// State returns the store snapshot as JSON.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	st := h.store.GetState()
	resp := stateResponse{
		Status:  st.Status,
		Version: st.Version,
		Items:   st.Items,
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	web.RespondJSON(w, h.logger, http.StatusOK, resp)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type stateResponse struct {
	Status  store.Status      `json:"status"`
	Version uint64            `json:"version"`
	Error   string            `json:"error,omitempty"`
	Items   []catalog.Product `json:"items"`
}

// submit runs a form flow with the posted draft and answers with a redirect or the re-rendered form.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, token string, flow *views.Flow) {
	draft := catalog.Draft{
		ProductName: strings.TrimSpace(r.PostForm.Get("product_name")),
		Category:    strings.TrimSpace(r.PostForm.Get("category")),
		Price:       strings.TrimSpace(r.PostForm.Get("price")),
		Discount:    strings.TrimSpace(r.PostForm.Get("discount")),
	}

	err := flow.Submit(context.WithoutCancel(r.Context()), draft)
	var fieldErrs catalog.FieldErrors
	switch {
	case err == nil, errors.Is(err, views.ErrClosed):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.As(err, &fieldErrs):
		h.renderForm(w, r, http.StatusUnprocessableEntity, token, flow)
	case errors.Is(err, views.ErrProductNotFound):
		http.Redirect(w, r, "/?notice="+noticeGone, http.StatusSeeOther)
	case errors.Is(err, views.ErrBusy):
		state := flow.State()
		state.Draft = draft
		state.FormError = views.MsgSubmitInProgress
		h.render(w, r, http.StatusConflict, pageForm, formPage{Token: token, Action: formAction(state), Form: state})
	default:
		h.renderForm(w, r, http.StatusBadGateway, token, flow)
	}
}

func (h *Handler) redirectGone(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, views.ErrProductNotFound) {
		http.Redirect(w, r, "/?notice="+noticeGone, http.StatusSeeOther)
		return
	}
	h.logger.ErrorContext(r.Context(), "Failed to open flow", "error", err)
	web.RespondError(w, h.logger, http.StatusInternalServerError, "Internal Server Error")
}

type formPage struct {
	Token  string
	Action string
	Form   views.FormState
}

type confirmPage struct {
	Token  string
	Delete views.DeleteState
}

func formAction(st views.FormState) string {
	if st.Mode == views.ModeEdit {
		return "/products/" + strconv.FormatInt(st.ProductID, 10)
	}
	return "/products"
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, token string, flow *views.Flow) {
	st := flow.State()
	h.render(w, r, status, pageForm, formPage{Token: token, Action: formAction(st), Form: st})
}

func (h *Handler) renderConfirm(w http.ResponseWriter, r *http.Request, status int, token string, flow *views.DeleteFlow) {
	h.render(w, r, status, pageConfirm, confirmPage{Token: token, Delete: flow.State()})
}

// render executes the page into a buffer first so a template error never sends a partial page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "Error rendering page", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
