package stubapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(seed ...catalog.Product) http.Handler {
	r := chi.NewRouter()
	NewHandler(NewInMemoryStore(seed...), slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func Test_Handler_FindAll(t *testing.T) {
	// given
	h := newTestRouter(
		catalog.Product{ID: 2, ProductName: "Rice", Category: "Food", Price: 12000},
		catalog.Product{ID: 1, ProductName: "Tea", Category: "Drinks", Price: 5000, Discount: catalog.Float(5)},
	)
	// when
	rr := serve(t, h, http.MethodGet, BasePath, "")
	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t,
		`[{"id":1,"product_name":"Tea","category":"Drinks","price":5000,"discount":5},
		  {"id":2,"product_name":"Rice","category":"Food","price":12000}]`,
		rr.Body.String())
}

func Test_Handler_FindAll_Empty(t *testing.T) {
	rr := serve(t, newTestRouter(), http.MethodGet, BasePath, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func Test_Handler_Create(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - first id is 1",
			body:         `{"product_name":"Tea","category":"Drinks","price":5000}`,
			expectedCode: http.StatusCreated,
			expectedBody: `{"id":1,"product_name":"Tea","category":"Drinks","price":5000}`,
		},
		{
			name:         "Validation errors",
			body:         `{"product_name":"","category":"Drinks","price":-1,"discount":150}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{
				"product_name":"Product name is required",
				"price":"Price must be a positive number",
				"discount":"Discount must be less than or equal to 100"}}`,
		},
		{
			name:         "Invalid JSON",
			body:         `{`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Invalid request body"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newTestRouter()
			// when
			rr := serve(t, h, http.MethodPost, BasePath, tc.body)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_Create_SequentialIDs(t *testing.T) {
	h := newTestRouter(catalog.Product{ID: 7, ProductName: "Tea", Category: "Drinks", Price: 1})

	rr := serve(t, h, http.MethodPost, BasePath, `{"product_name":"Rice","category":"Food","price":2}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	var created catalog.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.EqualValues(t, 8, created.ID)
}

func Test_Handler_Update(t *testing.T) {
	seed := catalog.Product{ID: 1, ProductName: "Tea", Category: "Drinks", Price: 5000}
	testCases := []struct {
		name         string
		target       string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success",
			target:       BasePath + "/1",
			body:         `{"product_name":"Green Tea","category":"Drinks","price":6000,"discount":10}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"id":1,"product_name":"Green Tea","category":"Drinks","price":6000,"discount":10}`,
		},
		{
			name:         "Not found",
			target:       BasePath + "/42",
			body:         `{"product_name":"Green Tea","category":"Drinks","price":6000}`,
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"Product with ID 42 not found"}`,
		},
		{
			name:         "Invalid ID",
			target:       BasePath + "/abc",
			body:         `{"product_name":"Green Tea","category":"Drinks","price":6000}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Invalid ID: abc"}`,
		},
		{
			name:         "Validation errors",
			target:       BasePath + "/1",
			body:         `{"product_name":"Green Tea","category":"","price":6000}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"category":"Category is required"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			h := newTestRouter(seed)
			// when
			rr := serve(t, h, http.MethodPut, tc.target, tc.body)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_Delete(t *testing.T) {
	// given
	h := newTestRouter(catalog.Product{ID: 1, ProductName: "Tea", Category: "Drinks", Price: 5000})

	// when
	first := serve(t, h, http.MethodDelete, BasePath+"/1", "")
	second := serve(t, h, http.MethodDelete, BasePath+"/1", "")

	// then
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Empty(t, first.Body.String())
	assert.Equal(t, http.StatusNotFound, second.Code)
	assert.JSONEq(t, `{"error":"Product with ID 1 not found"}`, second.Body.String())

	list := serve(t, h, http.MethodGet, BasePath, "")
	assert.JSONEq(t, `[]`, list.Body.String())
}

func Test_InMemoryStore(t *testing.T) {
	s := NewInMemoryStore()

	a := s.Create(catalog.Payload{ProductName: "Tea", Category: "Drinks", Price: 1})
	b := s.Create(catalog.Payload{ProductName: "Rice", Category: "Food", Price: 2})
	assert.EqualValues(t, 1, a.ID)
	assert.EqualValues(t, 2, b.ID)

	_, err := s.Update(3, catalog.Payload{ProductName: "x", Category: "y", Price: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, s.DeleteByID(1))
	assert.ErrorIs(t, s.DeleteByID(1), ErrProductNotFound)
	assert.Equal(t, []catalog.Product{b}, s.FindAll())
}
