package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/catalog/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// redisSnapshotStore keeps the products and their save time under two keys,
// both suffixed with the cache format version. Bumping the version orphans
// old entries.
type redisSnapshotStore struct {
	redisClient *redis.Client
	dataKey     string
	savedAtKey  string
	retention   time.Duration
}

// NewRedisSnapshotStore creates a store under keyPrefix. Keys expire after
// retention so abandoned versions do not linger; zero keeps them forever.
func NewRedisSnapshotStore(redisClient *redis.Client, keyPrefix, version string, retention time.Duration) SnapshotStore {
	return &redisSnapshotStore{
		redisClient: redisClient,
		dataKey:     keyPrefix + "products:" + version,
		savedAtKey:  keyPrefix + "products_saved_at:" + version,
		retention:   retention,
	}
}

func (s *redisSnapshotStore) Load(ctx context.Context) (*domain.ProductSnapshot, error) {
	vals, err := s.redisClient.MGet(ctx, s.dataKey, s.savedAtKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read product snapshot: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, nil // Nothing saved for this version
	}

	data, ok := vals[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected products value %T", ErrCorruptSnapshot, vals[0])
	}
	savedAtRaw, ok := vals[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected timestamp value %T", ErrCorruptSnapshot, vals[1])
	}

	millis, err := strconv.ParseInt(savedAtRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", ErrCorruptSnapshot, savedAtRaw)
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	return &domain.ProductSnapshot{
		Products: products,
		SavedAt:  time.UnixMilli(millis),
	}, nil
}

func (s *redisSnapshotStore) Save(ctx context.Context, snapshot *domain.ProductSnapshot) error {
	data, err := json.Marshal(snapshot.Products)
	if err != nil {
		return fmt.Errorf("failed to encode product snapshot: %w", err)
	}

	// Both keys are replaced in one transaction so readers never pair
	// products with a foreign timestamp.
	_, err = s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.dataKey, data, s.retention)
		pipe.Set(ctx, s.savedAtKey, snapshot.SavedAt.UnixMilli(), s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save product snapshot: %w", err)
	}

	log.Debugf("Saved %d products to %s", len(snapshot.Products), s.dataKey)
	return nil
}

func (s *redisSnapshotStore) Clear(ctx context.Context) error {
	err := s.redisClient.Del(ctx, s.dataKey, s.savedAtKey).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to clear product snapshot: %w", err)
	}
	return nil
}
