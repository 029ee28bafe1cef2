// Package client talks to the catalog REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 10 << 20

// ProductAPI is the set of catalog operations the console needs.
type ProductAPI interface {
	// ListProducts returns every product in backend order.
	ListProducts(ctx context.Context) ([]catalog.Product, error)

	// CreateProduct stores a new product and returns it with its assigned id.
	CreateProduct(ctx context.Context, payload catalog.Payload) (*catalog.Product, error)

	// UpdateProduct replaces the product with the given id.
	// Returns ErrNotFound if the id does not exist.
	UpdateProduct(ctx context.Context, id int64, payload catalog.Payload) (*catalog.Product, error)

	// DeleteProduct removes the product with the given id.
	// Returns ErrNotFound if the id does not exist.
	DeleteProduct(ctx context.Context, id int64) error
}

var _ ProductAPI = (*Client)(nil)

// Client is the HTTP implementation of ProductAPI. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout. Zero keeps the transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithCircuitBreaker guards calls with a breaker that trips on network and server failures only.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(c *Client) {
		if cfg.Enabled {
			c.breaker = newCircuitBreaker(cfg)
		}
	}
}

// New creates a client for the products collection at baseURL,
// e.g. http://localhost:8000/api/products.
func New(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With("component", "catalog-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

// ListProducts fetches the full product list.
func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	const op = "list products"
	resp, err := c.do(ctx, op, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.status) {
		return nil, c.fail(ctx, op, resp, ErrServer)
	}
	var products []catalog.Product
	if err := decode(resp, &products); err != nil {
		return nil, c.malformed(ctx, op, resp, err)
	}
	if products == nil {
		products = []catalog.Product{}
	}
	c.logger.DebugContext(ctx, "Fetched product list", "count", len(products))
	return products, nil
}

// CreateProduct posts payload and returns the created product.
func (c *Client) CreateProduct(ctx context.Context, payload catalog.Payload) (*catalog.Product, error) {
	const op = "create product"
	resp, err := c.do(ctx, op, http.MethodPost, c.baseURL, payload)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.status) {
		return nil, c.fail(ctx, op, resp, mutationKind(resp.status, false))
	}
	var created catalog.Product
	if err := decode(resp, &created); err != nil {
		return nil, c.malformed(ctx, op, resp, err)
	}
	if created.ID == 0 {
		return nil, c.malformed(ctx, op, resp, errors.New("created product has no id"))
	}
	c.logger.InfoContext(ctx, "Product created", "ID", created.ID, "Name", created.ProductName)
	return &created, nil
}

// UpdateProduct sends a full replacement of product id.
func (c *Client) UpdateProduct(ctx context.Context, id int64, payload catalog.Payload) (*catalog.Product, error) {
	op := fmt.Sprintf("update product %d", id)
	resp, err := c.do(ctx, op, http.MethodPut, c.productURL(id), payload.WithID(id))
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.status) {
		return nil, c.fail(ctx, op, resp, mutationKind(resp.status, true))
	}
	updated := payload.WithID(id)
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := decode(resp, &updated); err != nil {
			return nil, c.malformed(ctx, op, resp, err)
		}
	}
	c.logger.InfoContext(ctx, "Product updated", "ID", id)
	return &updated, nil
}

// DeleteProduct removes product id.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	op := fmt.Sprintf("delete product %d", id)
	resp, err := c.do(ctx, op, http.MethodDelete, c.productURL(id), nil)
	if err != nil {
		return err
	}
	if !isSuccess(resp.status) {
		kind := ErrServer
		if resp.status == http.StatusNotFound {
			kind = ErrNotFound
		}
		return c.fail(ctx, op, resp, kind)
	}
	c.logger.InfoContext(ctx, "Product deleted", "ID", id)
	return nil
}

func (c *Client) productURL(id int64) string {
	return c.baseURL + "/" + strconv.FormatInt(id, 10)
}

// do sends one request through the circuit breaker and reads the whole body.
// Transport failures and 5xx responses come back as *Error; other statuses are left to the caller.
func (c *Client) do(ctx context.Context, op, method, url string, body any) (*response, error) {
	c.logger.DebugContext(ctx, "Calling catalog API", "op", op, "method", method, "url", url)

	send := func() (*response, error) {
		return c.send(ctx, op, method, url, body)
	}
	var (
		resp *response
		err  error
	)
	if c.breaker != nil {
		resp, err = c.breaker.Execute(send)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.WarnContext(ctx, "Catalog API circuit open", "op", op, "error", err)
			return nil, &Error{Kind: ErrNetwork, Op: op, Err: err}
		}
	} else {
		resp, err = send()
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, op, method, url string, body any) (*response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: ErrServer, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Catalog API unreachable", "op", op, "error", err)
		return nil, &Error{Kind: ErrNetwork, Op: op, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to read catalog API response", "op", op, "error", err)
		return nil, &Error{Kind: ErrNetwork, Op: op, Status: httpResp.StatusCode, Err: err}
	}
	resp := &response{status: httpResp.StatusCode, body: data}
	if resp.status >= http.StatusInternalServerError {
		return resp, c.fail(ctx, op, resp, ErrServer)
	}
	return resp, nil
}

// fail builds the *Error for a non-success response and logs it.
func (c *Client) fail(ctx context.Context, op string, resp *response, kind error) error {
	e := &Error{Kind: kind, Op: op, Status: resp.status}
	var body struct {
		Error            string            `json:"error"`
		Message          string            `json:"message"`
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	if err := json.Unmarshal(resp.body, &body); err == nil {
		e.Message = body.Error
		if e.Message == "" {
			e.Message = body.Message
		}
		e.Fields = body.ValidationErrors
	}
	if kind == ErrServer {
		c.logger.ErrorContext(ctx, "Catalog API call failed", "op", op, "status", resp.status, "message", e.Message)
	} else {
		c.logger.WarnContext(ctx, "Catalog API refused call", "op", op, "status", resp.status, "message", e.Message)
	}
	return e
}

func (c *Client) malformed(ctx context.Context, op string, resp *response, err error) error {
	c.logger.ErrorContext(ctx, "Malformed catalog API response", "op", op, "status", resp.status, "error", err)
	return &Error{Kind: ErrServer, Op: op, Status: resp.status, Message: "malformed response", Err: err}
}

// mutationKind classifies a non-2xx answer to a create or update.
func mutationKind(status int, byID bool) error {
	switch {
	case status == http.StatusNotFound && byID:
		return ErrNotFound
	case status >= 400 && status < 500 && status != http.StatusNotFound:
		return ErrValidationRejected
	default:
		return ErrServer
	}
}

func decode(resp *response, v any) error {
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(resp.body, v)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
