package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/catalog/internal/client"
	"storefront/catalog/internal/domain"
	"storefront/catalog/internal/domain/event"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	categories []domain.Category
	products   map[string]*domain.Product
	err        error

	gotFilters  domain.ProductFilters
	gotPageSize int
	gotPage     int
	invalidated []event.Scope
}

func (f *fakeCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return f.categories, f.err
}

func (f *fakeCatalog) GetCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.categories {
		if f.categories[i].Name == name {
			return &f.categories[i], nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
}

func (f *fakeCatalog) ListProducts(_ context.Context, filters domain.ProductFilters, pageSize, page int) (*domain.ProductsPage, error) {
	f.gotFilters, f.gotPageSize, f.gotPage = filters, pageSize, page
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProductsPage{Products: []domain.Product{}, Page: max(page, 1)}, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
}

func (f *fakeCatalog) Invalidate(_ context.Context, scope event.Scope) error {
	f.invalidated = append(f.invalidated, scope)
	return f.err
}

type fakePublisher struct {
	scopes []event.Scope
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, scope event.Scope, _ string) error {
	p.scopes = append(p.scopes, scope)
	return p.err
}

func serve(t *testing.T, h *Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	w := serve(t, NewHandler(&fakeCatalog{}, nil), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestListCategories(t *testing.T) {
	catalog := &fakeCatalog{categories: []domain.Category{
		{ID: "c1", Name: "Kitchen", Subcategories: []domain.SubCategory{{ID: "s1", Name: "Microwaves"}}, FlatSubcategoryNames: []string{"Microwaves"}},
	}}
	w := serve(t, NewHandler(catalog, nil), http.MethodGet, "/api/categories")

	require.Equal(t, http.StatusOK, w.Code)
	var body []domain.Category
	decodeBody(t, w, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "Kitchen", body[0].Name)
	assert.Equal(t, []string{"Microwaves"}, body[0].FlatSubcategoryNames)
}

func TestGetCategory(t *testing.T) {
	catalog := &fakeCatalog{categories: []domain.Category{{ID: "c1", Name: "Kitchen"}}}
	h := NewHandler(catalog, nil)

	w := serve(t, h, http.MethodGet, "/api/categories/Kitchen")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, h, http.MethodGet, "/api/categories/Garden")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	decodeBody(t, w, &body)
	assert.Contains(t, body["error"], "not found")
}

func TestListProductsParsesQuery(t *testing.T) {
	catalog := &fakeCatalog{}
	w := serve(t, NewHandler(catalog, nil), http.MethodGet,
		"/api/products?category=Kitchen&subCategory=Microwaves&brand=Acme&minPrice=10.50&maxPrice=99&search=oven&inStock=true&sort=price_desc&page=2&pageSize=24")

	require.Equal(t, http.StatusOK, w.Code)
	f := catalog.gotFilters
	assert.Equal(t, "Kitchen", f.Category)
	assert.Equal(t, "Microwaves", f.SubCategory)
	assert.Equal(t, "Acme", f.Brand)
	assert.Equal(t, "oven", f.SearchTerm)
	assert.Equal(t, domain.SortPriceDesc, f.Sort)
	require.NotNil(t, f.MinPrice)
	assert.True(t, f.MinPrice.Equal(decimal.RequireFromString("10.5")))
	require.NotNil(t, f.MaxPrice)
	assert.True(t, f.MaxPrice.Equal(decimal.NewFromInt(99)))
	require.NotNil(t, f.InStock)
	assert.True(t, *f.InStock)
	assert.Equal(t, 24, catalog.gotPageSize)
	assert.Equal(t, 2, catalog.gotPage)
}

func TestListProductsDefaults(t *testing.T) {
	catalog := &fakeCatalog{}
	w := serve(t, NewHandler(catalog, nil), http.MethodGet, "/api/products?pageSize=1000")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ProductFilters{}, catalog.gotFilters)
	assert.Equal(t, MaxPageSize, catalog.gotPageSize)
	assert.Equal(t, 0, catalog.gotPage)
}

func TestListProductsRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad sort", "sort=random"},
		{"bad min price", "minPrice=cheap"},
		{"bad max price", "maxPrice=1,5"},
		{"bad in stock", "inStock=maybe"},
		{"zero page", "page=0"},
		{"negative page size", "pageSize=-3"},
		{"non numeric page", "page=two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, NewHandler(&fakeCatalog{}, nil), http.MethodGet, "/api/products?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"upstream status", &client.APIError{StatusCode: 503, Status: "503 Service Unavailable"}, http.StatusBadGateway},
		{"upstream shape", fmt.Errorf("list products: %w", client.ErrMissingRows), http.StatusBadGateway},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"other", errors.New("redis down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, NewHandler(&fakeCatalog{err: tt.err}, nil), http.MethodGet, "/api/products")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetProduct(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Microwave", Price: decimal.NewFromInt(2500), Images: []string{}},
	}}
	h := NewHandler(catalog, nil)

	w := serve(t, h, http.MethodGet, "/api/products/p1")
	require.Equal(t, http.StatusOK, w.Code)
	var body domain.Product
	decodeBody(t, w, &body)
	assert.Equal(t, "Microwave", body.Name)
	assert.True(t, body.Price.Equal(decimal.NewFromInt(2500)))

	w = serve(t, h, http.MethodGet, "/api/products/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidate(t *testing.T) {
	catalog := &fakeCatalog{}
	publisher := &fakePublisher{}
	h := NewHandler(catalog, publisher)

	w := serve(t, h, http.MethodPost, "/api/cache/invalidate?scope=products")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, "products", body["scope"])
	assert.Equal(t, true, body["published"])

	w = serve(t, h, http.MethodPost, "/api/cache/invalidate")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []event.Scope{event.ScopeProducts, event.ScopeAll}, catalog.invalidated)
	assert.Equal(t, []event.Scope{event.ScopeProducts, event.ScopeAll}, publisher.scopes)

	w = serve(t, h, http.MethodPost, "/api/cache/invalidate?scope=orders")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, catalog.invalidated, 2)
}

func TestInvalidateWithoutStream(t *testing.T) {
	catalog := &fakeCatalog{}
	w := serve(t, NewHandler(catalog, nil), http.MethodPost, "/api/cache/invalidate?scope=categories")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, false, body["published"])
	assert.Equal(t, []event.Scope{event.ScopeCategories}, catalog.invalidated)
}

func TestInvalidatePublishFailureStillSucceeds(t *testing.T) {
	catalog := &fakeCatalog{}
	w := serve(t, NewHandler(catalog, &fakePublisher{err: errors.New("stream down")}), http.MethodPost, "/api/cache/invalidate?scope=all")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	decodeBody(t, w, &body)
	assert.Equal(t, false, body["published"])
}

func TestRecovererReturns500(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	w := serve(t, NewHandler(&fakeCatalog{}, nil), http.MethodDelete, "/api/products")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
