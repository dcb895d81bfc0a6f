package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/notion2jira/internal/model"
)

// RedisQueue implements Queue on Redis lists. Messages are JSON envelopes;
// BLPOP makes the consumer block server-side instead of polling.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a queue on an existing Redis client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Push enqueues msg on the named list. Priority 0 is urgent and jumps the
// line via LPUSH; everything else appends with RPUSH.
func (q *RedisQueue) Push(ctx context.Context, name string, msg *model.QueueMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	if msg.Priority == 0 {
		err = q.client.LPush(ctx, name, data).Err()
	} else {
		err = q.client.RPush(ctx, name, data).Err()
	}
	if err != nil {
		return fmt.Errorf("pushing to queue %s: %w", name, err)
	}

	return nil
}

// Pop blocks up to timeout for the next message; nil means empty.
func (q *RedisQueue) Pop(ctx context.Context, name string, timeout time.Duration) (*model.QueueMessage, error) {
	result, err := q.client.BLPop(ctx, timeout, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("popping from queue %s: %w", name, err)
	}

	// BLPOP returns [key, value].
	if len(result) < 2 {
		return nil, fmt.Errorf("popping from queue %s: unexpected reply of %d elements", name, len(result))
	}

	return model.DecodeQueueMessage([]byte(result[1]))
}

// Length returns the number of pending messages on the named list.
func (q *RedisQueue) Length(ctx context.Context, name string) (int64, error) {
	n, err := q.client.LLen(ctx, name).Result()
	if err != nil {
		return 0, fmt.Errorf("measuring queue %s: %w", name, err)
	}
	return n, nil
}
