package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/catalog/internal/config"
	"storefront/catalog/internal/domain/event"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Queue interface {
	Publish(ctx context.Context, event event.Event) (string, error) // Returns message ID
	Read(ctx context.Context, consumer string) (*redis.XMessage, error)
	Ack(ctx context.Context, msgID string) error
	Close(ctx context.Context) error
}

// RedisQueue broadcasts events over a Redis stream. Each instance reads
// through its own consumer group, so every instance sees every event.
type RedisQueue struct {
	redisClient *redis.Client
	stream      string
	groupName   string
	maxLen      int64
	block       time.Duration
}

// NewRedisQueue creates the stream and a consumer group named after the
// configured group and instanceID. The group starts at the stream tail.
func NewRedisQueue(ctx context.Context, redisClient *redis.Client, cfg config.RedisConfig, instanceID string) (*RedisQueue, error) {
	q := &RedisQueue{
		redisClient: redisClient,
		stream:      cfg.InvalidationStream,
		groupName:   cfg.ConsumerGroup + ":" + instanceID,
		maxLen:      cfg.StreamMaxLen,
		block:       5 * time.Second,
	}

	if err := q.createGroup(ctx); err != nil {
		return nil, fmt.Errorf("failed to create consumer group for %s: %w", q.stream, err)
	}

	log.Infof("✅ Stream %s and consumer group %s ready", q.stream, q.groupName)
	return q, nil
}

func (q *RedisQueue) createGroup(ctx context.Context) error {
	err := q.redisClient.XGroupCreateMkStream(ctx, q.stream, q.groupName, "$").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Infof("Group %s already exists for stream %s", q.groupName, q.stream)
		return nil
	}
	return err
}

func (q *RedisQueue) Publish(ctx context.Context, e event.Event) (string, error) {
	value, err := e.EventValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize event: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_type": e.EventType(),
			"event_data": string(value),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add event to Redis stream %s: %w", q.stream, err)
	}

	log.Debugf("Published %s to %s with message ID: %s", e.EventType(), q.stream, messageID)
	return messageID, nil
}

// Read blocks for up to five seconds and returns nil when nothing arrived.
func (q *RedisQueue) Read(ctx context.Context, consumer string) (*redis.XMessage, error) {
	result, err := q.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    q.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No new messages
		}
		return nil, fmt.Errorf("failed to read from Redis stream %s: %w", q.stream, err)
	}

	if len(result) == 0 || len(result[0].Messages) == 0 {
		return nil, nil
	}

	return &result[0].Messages[0], nil
}

func (q *RedisQueue) Ack(ctx context.Context, msgID string) error {
	return q.redisClient.XAck(ctx, q.stream, q.groupName, msgID).Err()
}

// Close removes this instance's consumer group; the stream itself stays.
func (q *RedisQueue) Close(ctx context.Context) error {
	if err := q.redisClient.XGroupDestroy(ctx, q.stream, q.groupName).Err(); err != nil {
		return fmt.Errorf("failed to destroy consumer group %s: %w", q.groupName, err)
	}
	return nil
}
