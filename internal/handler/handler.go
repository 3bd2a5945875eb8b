// Package handler exposes the catalog over HTTP for the storefront UI.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storefront/catalog/internal/client"
	"storefront/catalog/internal/domain"
	"storefront/catalog/internal/domain/event"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const MaxPageSize = 100

// Catalog is the part of service.Catalog the HTTP API needs.
type Catalog interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	ListProducts(ctx context.Context, filters domain.ProductFilters, pageSize, page int) (*domain.ProductsPage, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	Invalidate(ctx context.Context, scope event.Scope) error
}

// Publisher forwards invalidations to the other instances.
type Publisher interface {
	Publish(ctx context.Context, scope event.Scope, reason string) error
}

type Handler struct {
	catalog   Catalog
	publisher Publisher
}

// NewHandler returns the API handlers. publisher may be nil when the
// invalidation stream is disabled.
func NewHandler(catalog Catalog, publisher Publisher) *Handler {
	return &Handler{catalog: catalog, publisher: publisher}
}

// Router builds the chi router with every route and middleware.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(Logger)

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{name}", h.GetCategory)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Post("/cache/invalidate", h.Invalidate)
	})
	return r
}

// Health reports liveness only; it never touches the inventory API.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalog.GetCategoryByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), q.filters, q.pageSize, q.page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Invalidate drops cached data of the given scope on this instance and,
// when the stream is enabled, on every other one.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	scope, err := event.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, r, &badRequestError{err})
		return
	}

	if err := h.catalog.Invalidate(r.Context(), scope); err != nil {
		writeError(w, r, err)
		return
	}

	published := false
	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), scope, "api request"); err != nil {
			log.Errorf("❌ Failed to publish %s invalidation: %v", scope, err)
		} else {
			published = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scope":     scope,
		"published": published,
	})
}

type productQuery struct {
	filters  domain.ProductFilters
	pageSize int
	page     int
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func parseProductQuery(r *http.Request) (*productQuery, error) {
	values := r.URL.Query()
	q := &productQuery{
		filters: domain.ProductFilters{
			Category:    values.Get("category"),
			SubCategory: values.Get("subCategory"),
			Brand:       values.Get("brand"),
			SearchTerm:  values.Get("search"),
			Sort:        domain.SortOrder(values.Get("sort")),
		},
	}

	if !q.filters.Sort.Valid() {
		return nil, &badRequestError{fmt.Errorf("unknown sort order %q", q.filters.Sort)}
	}

	var err error
	if q.filters.MinPrice, err = parseDecimal(values.Get("minPrice"), "minPrice"); err != nil {
		return nil, err
	}
	if q.filters.MaxPrice, err = parseDecimal(values.Get("maxPrice"), "maxPrice"); err != nil {
		return nil, err
	}

	if s := values.Get("inStock"); s != "" {
		inStock, err := strconv.ParseBool(s)
		if err != nil {
			return nil, &badRequestError{fmt.Errorf("invalid inStock %q", s)}
		}
		q.filters.InStock = &inStock
	}

	if q.page, err = parsePositive(values.Get("page"), "page"); err != nil {
		return nil, err
	}
	if q.pageSize, err = parsePositive(values.Get("pageSize"), "pageSize"); err != nil {
		return nil, err
	}
	q.pageSize = min(q.pageSize, MaxPageSize)

	return q, nil
}

func parseDecimal(s, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &badRequestError{fmt.Errorf("invalid %s %q", name, s)}
	}
	return &d, nil
}

// parsePositive returns 0 for an absent value, leaving the default to the service.
func parsePositive(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, &badRequestError{fmt.Errorf("invalid %s %q", name, s)}
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("❌ Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var (
		badReq *badRequestError
		apiErr *client.APIError
	)
	switch {
	case errors.As(err, &badReq):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &apiErr), errors.Is(err, client.ErrMissingRows):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("❌ Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
