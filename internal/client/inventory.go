package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/catalog/internal/config"
	"storefront/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// ErrMissingRows is returned when a list response has no rows field.
var ErrMissingRows = errors.New("inventory response has no rows field")

// APIError is returned for any non-2xx response of the inventory API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inventory API error: %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// ListParams are the query parameters accepted by list endpoints.
// Zero values are not sent.
type ListParams struct {
	Limit  int
	Offset int
	Search string
	Filter string // Server-side predicate, e.g. "productid=<id>"
	Order  string // "field,direction"
}

func (p ListParams) query() map[string]string {
	q := make(map[string]string)
	if p.Limit > 0 {
		q["limit"] = strconv.Itoa(p.Limit)
	}
	if p.Offset > 0 {
		q["offset"] = strconv.Itoa(p.Offset)
	}
	if p.Search != "" {
		q["search"] = p.Search
	}
	if p.Filter != "" {
		q["filter"] = p.Filter
	}
	if p.Order != "" {
		q["order"] = p.Order
	}
	return q
}

type InventoryClient interface {
	ListProducts(ctx context.Context, params ListParams) (*domain.CatalogPage[domain.InventoryProduct], error)
	GetProduct(ctx context.Context, id string) (*domain.InventoryProduct, error)
	ListProductImages(ctx context.Context, id string) ([]domain.InventoryImage, error)
	ListProductVariants(ctx context.Context, productID string) ([]domain.InventoryVariant, error)
	ListProductFolders(ctx context.Context, params ListParams) (*domain.CatalogPage[domain.Folder], error)
	GetProductFolder(ctx context.Context, id string) (*domain.Folder, error)
}

type inventoryClient struct {
	rl         ratelimit.Limiter
	httpClient *resty.Client
}

func NewInventoryClient(cfg config.InventoryConfig) InventoryClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("Accept", "application/json;charset=utf-8").
		SetHeader("Accept-Encoding", "gzip")

	if cfg.AuthToken != "" {
		client.SetAuthToken(cfg.AuthToken)
	}

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 15
	}

	return &inventoryClient{
		rl:         ratelimit.New(rps),
		httpClient: client,
	}
}

func (c *inventoryClient) ListProducts(ctx context.Context, params ListParams) (*domain.CatalogPage[domain.InventoryProduct], error) {
	page, err := listPage[domain.InventoryProduct](ctx, c, "/entity/product", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	log.Debugf("Fetched %d products (offset %d, total %d)", len(page.Rows), page.Offset, page.Total)
	return page, nil
}

func (c *inventoryClient) GetProduct(ctx context.Context, id string) (*domain.InventoryProduct, error) {
	var product domain.InventoryProduct
	if err := c.getJSON(ctx, "/entity/product/"+id, nil, &product); err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &product, nil
}

func (c *inventoryClient) ListProductImages(ctx context.Context, id string) ([]domain.InventoryImage, error) {
	page, err := listPage[domain.InventoryImage](ctx, c, "/entity/product/"+id+"/images", ListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images of product %s: %w", id, err)
	}
	return page.Rows, nil
}

func (c *inventoryClient) ListProductVariants(ctx context.Context, productID string) ([]domain.InventoryVariant, error) {
	params := ListParams{Filter: "productid=" + productID}
	page, err := listPage[domain.InventoryVariant](ctx, c, "/entity/variant", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants of product %s: %w", productID, err)
	}
	return page.Rows, nil
}

func (c *inventoryClient) ListProductFolders(ctx context.Context, params ListParams) (*domain.CatalogPage[domain.Folder], error) {
	page, err := listPage[domain.Folder](ctx, c, "/entity/productfolder", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list product folders: %w", err)
	}

	log.Debugf("Fetched %d product folders (total %d)", len(page.Rows), page.Total)
	return page, nil
}

func (c *inventoryClient) GetProductFolder(ctx context.Context, id string) (*domain.Folder, error) {
	var folder domain.Folder
	if err := c.getJSON(ctx, "/entity/productfolder/"+id, nil, &folder); err != nil {
		return nil, fmt.Errorf("failed to get product folder %s: %w", id, err)
	}
	return &folder, nil
}

func listPage[T any](ctx context.Context, c *inventoryClient, path string, params ListParams) (*domain.CatalogPage[T], error) {
	var envelope domain.ListResponse
	if err := c.getJSON(ctx, path, params.query(), &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Rows) == 0 || string(envelope.Rows) == "null" {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingRows)
	}

	var rows []T
	if err := json.Unmarshal(envelope.Rows, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows of %s: %w", path, err)
	}

	return &domain.CatalogPage[T]{
		Rows:   rows,
		Total:  envelope.Meta.Size,
		Offset: envelope.Meta.Offset,
		Limit:  envelope.Meta.Limit,
	}, nil
}

func (c *inventoryClient) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	c.rl.Take()

	req := c.httpClient.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			Body:       resp.String(),
		}
	}

	if err := json.Unmarshal([]byte(resp.String()), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}
