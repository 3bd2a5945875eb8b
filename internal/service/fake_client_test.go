package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"storefront/catalog/internal/client"
	"storefront/catalog/internal/domain"
)

// fakeInventory serves an in-memory catalog through the InventoryClient
// interface and records every product list call.
type fakeInventory struct {
	mu sync.Mutex

	products []domain.InventoryProduct
	folders  []domain.Folder
	images   map[string][]domain.InventoryImage
	variants map[string][]domain.InventoryVariant

	listErr      error // Returned for every product list call
	listErrAfter int   // Returned only for offsets >= this when > 0
	gate         chan struct{}
	gateOffset   int // Calls at this offset wait on gate

	offsets     []int
	folderCalls int
}

func newFakeInventory(n int) *fakeInventory {
	f := &fakeInventory{
		images:     make(map[string][]domain.InventoryImage),
		variants:   make(map[string][]domain.InventoryVariant),
		gateOffset: -1,
	}
	for i := 0; i < n; i++ {
		f.products = append(f.products, domain.InventoryProduct{
			ID:         fmt.Sprintf("p%d", i+1),
			Name:       fmt.Sprintf("Product %d", i+1),
			PathName:   "Kitchen/Microwaves",
			SalePrices: []domain.SalePrice{{Value: float64((i + 1) * 100)}},
		})
	}
	return f
}

var _ client.InventoryClient = (*fakeInventory)(nil)

func (f *fakeInventory) ListProducts(ctx context.Context, params client.ListParams) (*domain.CatalogPage[domain.InventoryProduct], error) {
	// Rows are read when the call arrives, so a gated call answers with the
	// catalog as it was before the gate.
	f.mu.Lock()
	f.offsets = append(f.offsets, params.Offset)
	gate := f.gate
	waitGate := gate != nil && params.Offset == f.gateOffset
	err := f.listErr
	if f.listErrAfter > 0 && params.Offset >= f.listErrAfter {
		err = fmt.Errorf("offset %d: %w", params.Offset, errUpstream)
	}

	start := min(params.Offset, len(f.products))
	end := len(f.products)
	if params.Limit > 0 {
		end = min(start+params.Limit, len(f.products))
	}
	rows := make([]domain.InventoryProduct, end-start)
	copy(rows, f.products[start:end])
	total := len(f.products)
	f.mu.Unlock()

	if waitGate {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	return &domain.CatalogPage[domain.InventoryProduct]{
		Rows:   rows,
		Total:  total,
		Offset: params.Offset,
		Limit:  params.Limit,
	}, nil
}

func (f *fakeInventory) GetProduct(_ context.Context, id string) (*domain.InventoryProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.products {
		if f.products[i].ID == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
}

func (f *fakeInventory) ListProductImages(_ context.Context, id string) ([]domain.InventoryImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[id], nil
}

func (f *fakeInventory) ListProductVariants(_ context.Context, productID string) ([]domain.InventoryVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variants[productID], nil
}

func (f *fakeInventory) ListProductFolders(_ context.Context, params client.ListParams) (*domain.CatalogPage[domain.Folder], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.folderCalls++
	return &domain.CatalogPage[domain.Folder]{
		Rows:  f.folders,
		Total: len(f.folders),
		Limit: params.Limit,
	}, nil
}

func (f *fakeInventory) GetProductFolder(_ context.Context, id string) (*domain.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, folder := range f.folders {
		if folder.ID == id {
			return &folder, nil
		}
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound}
}

func (f *fakeInventory) listOffsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.offsets...)
}

func (f *fakeInventory) setListErrAfter(offset int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErrAfter = offset
}

func (f *fakeInventory) rename(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i].Name = name
		}
	}
}

func (f *fakeInventory) folderCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.folderCalls
}

var errUpstream = errors.New("upstream unavailable")
