// internal/notify/queue.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saberactivo/social/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list notifications are queued on.
var DefaultQueueName = "social_notifications"

// Queue is a FIFO of serialized notifications.
type Queue interface {
	Push(ctx context.Context, data []byte) error
	// Pop waits up to timeout for an item; it returns nil, nil when none arrived.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// RedisQueue is a Queue on a Redis list (RPUSH / BLPOP).
type RedisQueue struct {
	rdb  *redis.Client
	name string
}

func NewRedisQueue(rdb *redis.Client, name string) *RedisQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Push(ctx context.Context, data []byte) error {
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop '%s': %w", q.name, err)
	}
	// res[0] is the list name and res[1] the payload
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// QueueEmitter hands notifications to a queue; a Drainer persists them later.
type QueueEmitter struct {
	q      Queue
	logger *logrus.Logger
}

func NewQueueEmitter(q Queue, logger *logrus.Logger) *QueueEmitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QueueEmitter{q: q, logger: logger}
}

// Emit serializes n and pushes it, logging instead of returning failures.
func (e *QueueEmitter) Emit(ctx context.Context, n models.Notification) {
	data, err := json.Marshal(n)
	if err == nil {
		err = e.q.Push(ctx, data)
	}
	if err != nil {
		e.logger.WithError(err).WithField("user_id", n.UserID).Warn("failed to queue notification")
	}
}
