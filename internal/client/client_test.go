package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordedRequest captures what the fake backend received.
type recordedRequest struct {
	method string
	path   string
	body   map[string]any
}

// fakeBackend answers every request with status and body and records the request.
func fakeBackend(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func Test_Client_ListProducts(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expected    []catalog.Product
		expectError error
	}{
		{
			name:   "Success - backend order kept",
			status: http.StatusOK,
			body:   `[{"id":2,"product_name":"Tea","category":"Drinks","price":5000},{"id":1,"product_name":"Rice","category":"Food","price":12000,"discount":10}]`,
			expected: []catalog.Product{
				{ID: 2, ProductName: "Tea", Category: "Drinks", Price: 5000},
				{ID: 1, ProductName: "Rice", Category: "Food", Price: 12000, Discount: catalog.Float(10)},
			},
		},
		{
			name:     "Success - null list",
			status:   http.StatusOK,
			body:     `null`,
			expected: []catalog.Product{},
		},
		{
			name:        "Error - server error",
			status:      http.StatusInternalServerError,
			body:        `{"error":"db down"}`,
			expectError: ErrServer,
		},
		{
			name:        "Error - not found is a server error for the collection",
			status:      http.StatusNotFound,
			body:        ``,
			expectError: ErrServer,
		},
		{
			name:        "Error - malformed body",
			status:      http.StatusOK,
			body:        `{"not":"a list"}`,
			expectError: ErrServer,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv, rec := fakeBackend(t, tc.status, tc.body)
			c := New(srv.URL+"/api/products", discardLogger())
			// when
			got, err := c.ListProducts(context.Background())
			// then
			assert.Equal(t, http.MethodGet, rec.method)
			assert.Equal(t, "/api/products", rec.path)
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func Test_Client_ListProducts_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, discardLogger()).ListProducts(context.Background())

	assert.ErrorIs(t, err, ErrNetwork)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
}

func Test_Client_CreateProduct(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		body         string
		expected     *catalog.Product
		expectError  error
		expectFields map[string]string
	}{
		{
			name:     "Success - id assigned by backend",
			status:   http.StatusCreated,
			body:     `{"id":11,"product_name":"Tea","category":"Drinks","price":5000}`,
			expected: &catalog.Product{ID: 11, ProductName: "Tea", Category: "Drinks", Price: 5000},
		},
		{
			name:         "Error - backend validation",
			status:       http.StatusBadRequest,
			body:         `{"validation_errors":{"product_name":"already exists"}}`,
			expectError:  ErrValidationRejected,
			expectFields: map[string]string{"product_name": "already exists"},
		},
		{
			name:        "Error - unprocessable",
			status:      http.StatusUnprocessableEntity,
			body:        `{"message":"bad"}`,
			expectError: ErrValidationRejected,
		},
		{
			name:        "Error - server error",
			status:      http.StatusBadGateway,
			body:        ``,
			expectError: ErrServer,
		},
		{
			name:        "Error - created product without id",
			status:      http.StatusCreated,
			body:        `{"product_name":"Tea"}`,
			expectError: ErrServer,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv, rec := fakeBackend(t, tc.status, tc.body)
			c := New(srv.URL+"/api/products/", discardLogger())
			payload := catalog.Payload{ProductName: "Tea", Category: "Drinks", Price: 5000}
			// when
			got, err := c.CreateProduct(context.Background(), payload)
			// then
			assert.Equal(t, http.MethodPost, rec.method)
			assert.Equal(t, "/api/products", rec.path)
			assert.NotContains(t, rec.body, "id", "create must not send an id")
			assert.NotContains(t, rec.body, "discount", "absent discount must not be sent")
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				if tc.expectFields != nil {
					var apiErr *Error
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tc.expectFields, apiErr.Fields)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func Test_Client_UpdateProduct(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expected    *catalog.Product
		expectError error
	}{
		{
			name:     "Success - backend echoes product",
			status:   http.StatusOK,
			body:     `{"id":5,"product_name":"Green Tea","category":"Drinks","price":6000,"discount":5}`,
			expected: &catalog.Product{ID: 5, ProductName: "Green Tea", Category: "Drinks", Price: 6000, Discount: catalog.Float(5)},
		},
		{
			name:     "Success - no content",
			status:   http.StatusNoContent,
			expected: &catalog.Product{ID: 5, ProductName: "Green Tea", Category: "Drinks", Price: 6000, Discount: catalog.Float(5)},
		},
		{
			name:        "Error - not found",
			status:      http.StatusNotFound,
			body:        `{"error":"Product with ID 5 not found"}`,
			expectError: ErrNotFound,
		},
		{
			name:        "Error - rejected",
			status:      http.StatusBadRequest,
			body:        `{"error":"Invalid request body"}`,
			expectError: ErrValidationRejected,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv, rec := fakeBackend(t, tc.status, tc.body)
			c := New(srv.URL+"/api/products", discardLogger())
			payload := catalog.Payload{ProductName: "Green Tea", Category: "Drinks", Price: 6000, Discount: catalog.Float(5)}
			// when
			got, err := c.UpdateProduct(context.Background(), 5, payload)
			// then
			assert.Equal(t, http.MethodPut, rec.method)
			assert.Equal(t, "/api/products/5", rec.path)
			assert.EqualValues(t, 5, rec.body["id"], "update sends the full product")
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func Test_Client_DeleteProduct(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		expectError error
	}{
		{name: "Success - no content", status: http.StatusNoContent},
		{name: "Success - ok", status: http.StatusOK},
		{name: "Error - not found", status: http.StatusNotFound, expectError: ErrNotFound},
		{name: "Error - conflict is a server error", status: http.StatusConflict, expectError: ErrServer},
		{name: "Error - server error", status: http.StatusInternalServerError, expectError: ErrServer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec := fakeBackend(t, tc.status, "")
			err := New(srv.URL+"/api/products", discardLogger()).DeleteProduct(context.Background(), 9)

			assert.Equal(t, http.MethodDelete, rec.method)
			assert.Equal(t, "/api/products/9", rec.path)
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_Client_CircuitBreaker(t *testing.T) {
	// given
	var hits atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, discardLogger(), WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 2,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Hour,
	}))

	// when
	for range 2 {
		_, err := c.ListProducts(context.Background())
		assert.ErrorIs(t, err, ErrServer)
	}
	_, err := c.ListProducts(context.Background())

	// then
	assert.ErrorIs(t, err, ErrNetwork, "open breaker reports the backend as unreachable")
	assert.EqualValues(t, 2, hits.Load(), "open breaker must not reach the backend")
}

func Test_Client_CircuitBreaker_IgnoresNotFound(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusNotFound, "")
	c := New(srv.URL, discardLogger(), WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 1,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Hour,
	}))

	for range 3 {
		err := c.DeleteProduct(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func Test_Error_Message(t *testing.T) {
	err := &Error{Kind: ErrNotFound, Op: "delete product 3", Status: 404, Message: "gone"}
	assert.Equal(t, "delete product 3: product not found (status 404): gone", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrServer))
	assert.False(t, IsNetworkOrServer(err))
}

func Test_Client_ContextCancelled(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `[]`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, discardLogger()).ListProducts(ctx)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}
