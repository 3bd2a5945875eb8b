package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"storefront/catalog/internal/catalog"
	"storefront/catalog/internal/client"
	"storefront/catalog/internal/domain"
	"storefront/catalog/internal/state"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultProductTTL        = time.Hour
	DefaultFillRetryInterval = 30 * time.Second
)

type LoadState int32

const (
	StateCold              LoadState = iota // Nothing resident, no usable snapshot
	StateFastLoaded                         // First page resident
	StateBackgroundFilling                  // Remaining pages are being fetched
	StateCached                             // Full catalog resident and saved
	StateWarm                               // Full catalog restored from the snapshot
)

func (s LoadState) String() string {
	switch s {
	case StateCold:
		return "cold"
	case StateFastLoaded:
		return "fast_loaded"
	case StateBackgroundFilling:
		return "background_filling"
	case StateCached:
		return "cached"
	case StateWarm:
		return "warm"
	default:
		return "unknown"
	}
}

// Complete reports whether a set read in this state is the whole catalog.
func (s LoadState) Complete() bool {
	return s == StateCached || s == StateWarm
}

type LoaderConfig struct {
	FastLoadLimit int           // Size of the first, latency-hiding page
	PageSize      int           // Page size of the background fill
	MaxProducts   int           // Hard cap on the resident catalog
	Order         string        // Server-side order, e.g. "updated,desc"
	TTL           time.Duration // Lifetime of the snapshot and of the resident set
	RetryInterval time.Duration // Wait before a failed background fill is retried
}

// ResidentSet is the product set a query runs against, with the state it
// was read in.
type ResidentSet struct {
	Products []domain.Product
	State    LoadState
}

// Loader owns the resident product set and decides when to read and write
// the durable snapshot.
//
// A query on an empty loader first tries the snapshot. Without a fresh one it
// fetches a single page and returns it immediately; when the server holds
// more, the rest is fetched by one background goroutine that replaces the
// resident set and saves the snapshot on completion. A failed fill is started
// again by the first query after RetryInterval.
//
// Reset bumps the generation. Sets fetched under an older generation are
// never made resident or saved.
type Loader struct {
	client client.InventoryClient
	store  state.SnapshotStore
	cfg    LoaderConfig
	clock  clock.Clock

	// Called after a background fill replaced the resident set.
	onRefresh func()

	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	group   singleflight.Group
	filling atomic.Bool

	// Held across commit+save and across Reset, so a stale set is never
	// saved after the snapshot was cleared.
	persistMu sync.Mutex

	mu         sync.RWMutex
	generation uint64
	products   []domain.Product
	loadedAt   time.Time
	state      LoadState
	total      int       // Server total seen by the fast load
	retryAt    time.Time // Earliest restart of a failed fill
}

func NewLoader(client client.InventoryClient, store state.SnapshotStore, cfg LoaderConfig, clk clock.Clock) *Loader {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = cfg.FastLoadLimit
	}
	if cfg.MaxProducts < cfg.FastLoadLimit {
		cfg.MaxProducts = cfg.FastLoadLimit
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultProductTTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultFillRetryInterval
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Loader{
		client:   client,
		store:    store,
		cfg:      cfg,
		clock:    clk,
		lifetime: lifetime,
		cancel:   cancel,
	}
}

// OnRefresh registers fn to run whenever a background fill completes.
func (l *Loader) OnRefresh(fn func()) {
	l.onRefresh = fn
}

func (l *Loader) State() LoadState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Products returns the resident product set, loading it when empty or expired.
// The returned slice must not be modified.
func (l *Loader) Products(ctx context.Context) ([]domain.Product, error) {
	set, err := l.Resident(ctx)
	if err != nil {
		return nil, err
	}
	return set.Products, nil
}

// Resident is Products plus the state the set was read in.
func (l *Loader) Resident(ctx context.Context) (ResidentSet, error) {
	if set, ok := l.resident(); ok {
		return set, nil
	}

	// Every caller arriving during the load shares it, so the load must
	// outlive the request that started it. Close still stops it.
	ch := l.group.DoChan("products", func() (interface{}, error) {
		loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(l.lifetime, cancel)
		defer stop()

		return l.load(loadCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return ResidentSet{}, res.Err
		}
		if res.Shared {
			log.Debugf("Joined an in-flight product load")
		}
		return res.Val.(ResidentSet), nil
	case <-ctx.Done():
		return ResidentSet{}, ctx.Err()
	}
}

// resident returns the current set unless it is missing or expired. A
// partial set whose fill failed starts a new fill once retryAt has passed.
func (l *Loader) resident() (ResidentSet, bool) {
	l.mu.RLock()
	set := ResidentSet{Products: l.products, State: l.state}
	expired := l.products == nil || l.clock.Since(l.loadedAt) >= l.cfg.TTL
	retry := l.state == StateFastLoaded && l.total > len(l.products) && !l.clock.Now().Before(l.retryAt)
	gen, total := l.generation, l.total
	l.mu.RUnlock()

	if expired {
		return ResidentSet{}, false
	}
	if retry && l.startFill(gen, set.Products, total) {
		log.Infof("🔁 Restarting background fill from offset %d", len(set.Products))
		set.State = StateBackgroundFilling
	}
	return set, true
}

func (l *Loader) load(ctx context.Context) (ResidentSet, error) {
	for {
		if set, ok := l.resident(); ok {
			return set, nil
		}

		gen := l.currentGeneration()

		if snap := l.readSnapshot(ctx); snap != nil {
			if l.commit(gen, snap.Products, snap.SavedAt, len(snap.Products), StateWarm) {
				log.Infof("📦 Restored %d products from snapshot saved at %s",
					len(snap.Products), snap.SavedAt.Format(time.RFC3339))
				return ResidentSet{Products: snap.Products, State: StateWarm}, nil
			}
			log.Infof("Catalog was reset while reading the snapshot, loading again")
			continue
		}

		page, err := l.client.ListProducts(ctx, client.ListParams{
			Limit: l.cfg.FastLoadLimit,
			Order: l.cfg.Order,
		})
		if err != nil {
			return ResidentSet{}, fmt.Errorf("fast load failed: %w", err)
		}

		products := catalog.TransformProducts(page.Rows)
		now := l.clock.Now()

		if !page.HasMore() || len(page.Rows) == 0 {
			if !l.persist(gen, products, now) {
				log.Infof("Catalog was reset during the fast load, loading again")
				continue
			}
			log.Infof("⚡ Loaded the whole catalog of %d products in one page", len(products))
			return ResidentSet{Products: products, State: StateCached}, nil
		}

		if !l.commit(gen, products, now, page.Total, StateFastLoaded) {
			log.Infof("Catalog was reset during the fast load, loading again")
			continue
		}
		log.Infof("⚡ Fast-loaded %d of %d products", len(products), page.Total)

		set := ResidentSet{Products: products, State: StateFastLoaded}
		if l.startFill(gen, products, page.Total) {
			set.State = StateBackgroundFilling
		}
		return set, nil
	}
}

// StartBackgroundFill fetches the catalog past initial in the background.
// It returns false without doing anything when a fill is already running.
func (l *Loader) StartBackgroundFill(initial []domain.Product, total int) bool {
	return l.startFill(l.currentGeneration(), initial, total)
}

func (l *Loader) startFill(gen uint64, initial []domain.Product, total int) bool {
	if !l.filling.CompareAndSwap(false, true) {
		log.Debugf("Background fill already running, skipping")
		return false
	}

	l.setStateIf(gen, StateFastLoaded, StateBackgroundFilling)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.filling.Store(false)

		if err := l.backgroundFill(gen, initial, total); err != nil {
			log.Errorf("❌ Background product fill abandoned: %v", err)
			l.fillFailed(gen)
		}
	}()
	return true
}

func (l *Loader) backgroundFill(gen uint64, initial []domain.Product, total int) error {
	ctx := l.lifetime

	all := make([]domain.Product, len(initial), max(len(initial), min(total, l.cfg.MaxProducts)))
	copy(all, initial)

	offset := len(initial)
	for offset < total && len(all) < l.cfg.MaxProducts {
		limit := min(l.cfg.PageSize, l.cfg.MaxProducts-len(all))

		page, err := l.client.ListProducts(ctx, client.ListParams{
			Limit:  limit,
			Offset: offset,
			Order:  l.cfg.Order,
		})
		if err != nil {
			return fmt.Errorf("page at offset %d: %w", offset, err)
		}
		if len(page.Rows) == 0 {
			break
		}

		rows := page.Rows
		if room := l.cfg.MaxProducts - len(all); len(rows) > room {
			rows = rows[:room]
		}
		all = append(all, catalog.TransformProducts(rows)...)
		offset += len(page.Rows)
		if page.Total > 0 {
			total = page.Total
		}

		log.Debugf("Background fill: %d of %d products", len(all), total)
	}

	if len(all) >= l.cfg.MaxProducts && offset < total {
		log.Warnf("⚠️ Product cap of %d reached, %d products left unloaded", l.cfg.MaxProducts, total-offset)
	}

	if !l.persist(gen, all, l.clock.Now()) {
		log.Infof("Discarding background fill of %d products, catalog was reset", len(all))
		return nil
	}
	log.Infof("✅ Background fill complete: %d products resident", len(all))

	if l.onRefresh != nil {
		l.onRefresh()
	}
	return nil
}

// Reset drops the resident set and the snapshot. Loads and fills still
// running finish, but their results are discarded.
func (l *Loader) Reset(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	l.generation++
	l.products = nil
	l.loadedAt = time.Time{}
	l.state = StateCold
	l.total = 0
	l.retryAt = time.Time{}
	l.mu.Unlock()

	if err := l.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear product snapshot: %w", err)
	}
	return nil
}

// Wait blocks until any running background fill has finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels running loads and fills and waits for the fill to stop.
func (l *Loader) Close() {
	l.cancel()
	l.wg.Wait()
}

func (l *Loader) readSnapshot(ctx context.Context) *domain.ProductSnapshot {
	snap, err := l.store.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrCorruptSnapshot) {
			log.Warnf("⚠️ Ignoring corrupt product snapshot: %v", err)
		} else {
			log.Errorf("❌ Failed to read product snapshot: %v", err)
		}
		return nil
	}
	if snap == nil {
		return nil
	}
	if !snap.Fresh(l.clock.Now(), l.cfg.TTL) {
		log.Debugf("Product snapshot from %s expired", snap.SavedAt.Format(time.RFC3339))
		return nil
	}
	return snap
}

// persist makes a complete set resident and saves it, both only while gen
// is current. It reports whether the set was accepted.
func (l *Loader) persist(gen uint64, products []domain.Product, savedAt time.Time) bool {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	if !l.commit(gen, products, savedAt, len(products), StateCached) {
		return false
	}

	err := l.store.Save(l.lifetime, &domain.ProductSnapshot{
		Products: products,
		SavedAt:  savedAt,
	})
	if err != nil {
		log.Errorf("❌ Failed to save product snapshot: %v", err)
	}
	return true
}

// commit replaces the resident set unless the loader was reset since gen.
func (l *Loader) commit(gen uint64, products []domain.Product, loadedAt time.Time, total int, s LoadState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.generation != gen {
		return false
	}
	l.products = products
	l.loadedAt = loadedAt
	l.total = total
	l.state = s
	l.retryAt = time.Time{}
	return true
}

func (l *Loader) fillFailed(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.generation != gen || l.state != StateBackgroundFilling {
		return
	}
	l.state = StateFastLoaded
	l.retryAt = l.clock.Now().Add(l.cfg.RetryInterval)
}

func (l *Loader) currentGeneration() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

func (l *Loader) setStateIf(gen uint64, from, to LoadState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation == gen && l.state == from {
		l.state = to
	}
}
