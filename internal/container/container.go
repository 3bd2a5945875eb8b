package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/catalog/internal/client"
	"storefront/catalog/internal/config"
	"storefront/catalog/internal/handler"
	"storefront/catalog/internal/queue"
	"storefront/catalog/internal/repository"
	"storefront/catalog/internal/service"
	"storefront/catalog/internal/state"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	InstanceID string

	Client   client.InventoryClient
	Store    state.SnapshotStore
	Catalog  *service.Catalog
	Queue    queue.Queue
	Listener *service.InvalidationListener
	Server   *http.Server

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:     cfg,
		InstanceID: uuid.NewString(),
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")
		c.redis = rdb
	}

	store, err := c.newSnapshotStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = store

	c.Client = client.NewInventoryClient(cfg.Inventory)
	c.Catalog = service.NewCatalog(c.Client, store, service.Options{
		Loader: service.LoaderConfig{
			FastLoadLimit: cfg.Inventory.FastLoadLimit,
			PageSize:      cfg.Inventory.PageSize,
			MaxProducts:   cfg.Inventory.MaxProducts,
			Order:         cfg.Inventory.ProductOrder,
			TTL:           cfg.Cache.ProductTTL,
			RetryInterval: cfg.Inventory.FillRetryInterval,
		},
		FolderLimit: cfg.Inventory.FolderLimit,
		CategoryTTL: cfg.Cache.CategoryTTL,
		QueryTTL:    cfg.Cache.QueryTTL,
	})

	var publisher handler.Publisher
	if c.redis != nil {
		redisQueue, err := queue.NewRedisQueue(ctx, c.redis, cfg.Redis, c.InstanceID)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Queue = redisQueue
		c.Listener = service.NewInvalidationListener(redisQueue, c.Catalog, c.InstanceID)
		publisher = c.Listener
	} else {
		log.Warn("⚠️ Redis disabled, cache invalidations stay local to this instance")
	}

	c.Server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler.NewHandler(c.Catalog, publisher).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return c, nil
}

func (c *Container) newSnapshotStore(ctx context.Context) (state.SnapshotStore, error) {
	cfg := c.Config
	switch cfg.Cache.Backend {
	case "redis":
		if c.redis == nil {
			return nil, errors.New("cache backend redis requires redis.enabled")
		}
		// Keys outlive the TTL; only abandoned versions ever reach expiry.
		return state.NewRedisSnapshotStore(c.redis, cfg.Redis.KeyPrefix, cfg.Cache.Version, 24*cfg.Cache.ProductTTL), nil

	case "postgres":
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		c.db = db
		if err := db.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info("✅ Connected to PostgreSQL successfully")

		repo := repository.NewSnapshotRepository(db, cfg.Cache.Version)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil

	default:
		log.Warn("⚠️ Using in-memory snapshot store, products are refetched after every restart")
		return state.NewMemorySnapshotStore(), nil
	}
}

// Run serves HTTP and listens for invalidations until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("🚀 Catalog API listening on %s", c.Server.Addr)
		if err := c.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Config.Server.ShutdownTimeout)
		defer cancel()
		return c.Server.Shutdown(shutdownCtx)
	})

	if c.Listener != nil {
		g.Go(func() error {
			return c.Listener.Run(ctx)
		})
	}

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Catalog != nil {
		c.Catalog.Close()
	}
	if c.Queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Queue.Close(ctx); err != nil {
			log.Warnf("⚠️ %v", err)
		}
	}
	if c.redis != nil {
		c.redis.Close()
	}
	if c.db != nil {
		c.db.Close()
	}

	log.Info("Container shut down successfully")
	return nil
}
