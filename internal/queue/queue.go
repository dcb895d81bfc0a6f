package queue

import (
	"context"
	"time"

	"github.com/nhle/notion2jira/internal/model"
)

// Queue is a durable FIFO of sync messages. Delivery is at-least-once:
// a popped message that fails processing is re-enqueued by the retry
// policy, so consumers must be idempotent.
type Queue interface {
	// Push enqueues a message. Priority 0 goes to the front of the queue;
	// any other priority goes to the back.
	Push(ctx context.Context, name string, msg *model.QueueMessage) error

	// Pop blocks up to timeout for the next message. A nil message with a
	// nil error means the queue stayed empty.
	Pop(ctx context.Context, name string, timeout time.Duration) (*model.QueueMessage, error)

	// Length returns the number of pending messages.
	Length(ctx context.Context, name string) (int64, error)
}
