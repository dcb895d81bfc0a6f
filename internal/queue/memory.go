package queue

import (
	"context"
	"sync"
	"time"

	"github.com/nhle/notion2jira/internal/model"
)

// MemoryQueue is an in-process Queue for tests. It mirrors the Redis
// semantics: priority 0 prepends, everything else appends, Pop waits up
// to the timeout for a message.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string][]*model.QueueMessage
	wake   chan struct{}
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues: make(map[string][]*model.QueueMessage),
		wake:   make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Push(_ context.Context, name string, msg *model.QueueMessage) error {
	q.mu.Lock()
	if msg.Priority == 0 {
		q.queues[name] = append([]*model.QueueMessage{msg}, q.queues[name]...)
	} else {
		q.queues[name] = append(q.queues[name], msg)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context, name string, timeout time.Duration) (*model.QueueMessage, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if msgs := q.queues[name]; len(msgs) > 0 {
			msg := msgs[0]
			q.queues[name] = msgs[1:]
			q.mu.Unlock()
			return msg, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-q.wake:
		}
	}
}

func (q *MemoryQueue) Length(_ context.Context, name string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[name])), nil
}
