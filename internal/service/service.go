package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/catalog/internal/cache"
	"storefront/catalog/internal/catalog"
	"storefront/catalog/internal/client"
	"storefront/catalog/internal/domain"
	"storefront/catalog/internal/domain/event"
	"storefront/catalog/internal/state"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultPageSize = 12

var categoriesKey = cache.NameKey("categories")

type Options struct {
	Loader      LoaderConfig
	FolderLimit int
	CategoryTTL time.Duration
	QueryTTL    time.Duration
	Clock       clock.Clock
}

// Catalog is what the storefront talks to: category tree, product listings
// and single products, each behind its cache.
type Catalog struct {
	client      client.InventoryClient
	loader      *Loader
	folderLimit int

	categories      *cache.CategoryCache
	categoryQueries *cache.QueryCache[[]domain.Category]
	productQueries  *cache.QueryCache[*domain.ProductsPage]
}

func NewCatalog(client client.InventoryClient, store state.SnapshotStore, opts Options) *Catalog {
	c := &Catalog{
		client:          client,
		loader:          NewLoader(client, store, opts.Loader, opts.Clock),
		folderLimit:     opts.FolderLimit,
		categoryQueries: cache.NewQueryCache[[]domain.Category]("categories", opts.QueryTTL, opts.Clock),
		productQueries:  cache.NewQueryCache[*domain.ProductsPage]("products", opts.QueryTTL, opts.Clock),
	}
	c.categories = cache.NewCategoryCache(c.fetchFolders, opts.CategoryTTL, opts.Clock)

	// Pages computed over the fast-loaded subset are stale once the full
	// catalog is resident.
	c.loader.OnRefresh(c.productQueries.InvalidateAll)
	return c
}

func (c *Catalog) Loader() *Loader {
	return c.loader
}

// ListCategories returns the category tree built from the current folder list.
func (c *Catalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if categories, ok := c.categoryQueries.Get(categoriesKey); ok {
		return categories, nil
	}

	gen := c.categoryQueries.Generation()

	folders, err := c.categories.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	categories, stats := catalog.BuildCategoryTree(folders)
	if stats.Dropped > 0 {
		log.Warnf("⚠️ %d of %d folders are not reachable from any category (orphaned or under an archived folder)",
			stats.Dropped, stats.Total)
	}
	if stats.DuplicateRoots > 0 {
		log.Warnf("⚠️ Skipped %d top-level folders with duplicate names", stats.DuplicateRoots)
	}

	c.categoryQueries.SetAt(gen, categoriesKey, categories)
	return categories, nil
}

// GetCategoryByName finds a top-level category, ignoring case and ordinal
// prefixes. Returns domain.ErrNotFound when there is none.
func (c *Catalog) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	categories, err := c.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	category, ok := catalog.FindCategory(categories, name)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
	}
	return category, nil
}

// ListProducts filters and paginates the resident catalog. Filters are never
// sent to the inventory API.
func (c *Catalog) ListProducts(ctx context.Context, filters domain.ProductFilters, pageSize, page int) (*domain.ProductsPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	key := cache.ProductsKey(filters, pageSize, page)
	if result, ok := c.productQueries.Get(key); ok {
		return result, nil
	}

	gen := c.productQueries.Generation()
	set, err := c.loader.Resident(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	result := catalog.Query(set.Products, filters, pageSize, page)
	// Pages over a partial set are answered but not kept, so the next
	// query sees the fill or retries it.
	if set.State.Complete() {
		c.productQueries.SetAt(gen, key, result)
	}
	return result, nil
}

// GetProduct fetches a single product with its images and, for products with
// variants, the merged variant characteristics.
func (c *Catalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	raw, err := c.client.GetProduct(ctx, id)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}

	product := catalog.TransformProduct(*raw)

	var (
		images   []domain.InventoryImage
		variants []domain.InventoryVariant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		images, err = c.client.ListProductImages(gctx, id)
		return err
	})
	if raw.VariantsCount > 0 {
		g.Go(func() error {
			var err error
			variants, err = c.client.ListProductVariants(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, img := range images {
		if url := img.URL(); url != "" {
			product.Images = append(product.Images, url)
		}
	}
	product.Characteristics = catalog.MergeCharacteristics(variants)

	return &product, nil
}

func (c *Catalog) InvalidateCategories(_ context.Context) {
	c.categories.Invalidate()
	c.categoryQueries.InvalidateAll()
	log.Infof("🗑️ Category caches invalidated")
}

func (c *Catalog) InvalidateProducts(ctx context.Context) error {
	// Reset first: a page computed from the old set between the two calls
	// is then dropped by InvalidateAll.
	err := c.loader.Reset(ctx)
	c.productQueries.InvalidateAll()
	if err != nil {
		return err
	}
	log.Infof("🗑️ Product caches invalidated")
	return nil
}

// Invalidate applies an invalidation of the given scope.
func (c *Catalog) Invalidate(ctx context.Context, scope event.Scope) error {
	if scope.Categories() {
		c.InvalidateCategories(ctx)
	}
	if scope.Products() {
		return c.InvalidateProducts(ctx)
	}
	return nil
}

// Close stops a running background fill.
func (c *Catalog) Close() {
	c.loader.Close()
}

func (c *Catalog) fetchFolders(ctx context.Context) ([]domain.Folder, error) {
	page, err := c.client.ListProductFolders(ctx, client.ListParams{Limit: c.folderLimit})
	if err != nil {
		return nil, err
	}

	if page.HasMore() || (c.folderLimit > 0 && len(page.Rows) >= c.folderLimit) {
		log.Warnf("⚠️ Folder listing returned %d rows for limit %d (server total %d); categories may be incomplete",
			len(page.Rows), c.folderLimit, page.Total)
	}
	return page.Rows, nil
}
