package sync

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/notion2jira/internal/model"
)

const (
	// popErrorBackoff is how long the consumer sleeps after a queue
	// error before trying again.
	popErrorBackoff = 5 * time.Second
)

// Run consumes the sync queue until ctx is canceled. One message is
// processed at a time; handler failures go through the retry policy and
// never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	popTimeout := time.Duration(s.cfg.Sync.PopTimeoutSec) * time.Second
	if popTimeout <= 0 {
		popTimeout = 10 * time.Second
	}

	s.logger.Info("sync consumer started",
		"queue", s.cfg.Sync.QueueName, "pop_timeout", popTimeout)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("sync consumer stopped")
			return err
		}

		msg, err := s.queue.Pop(ctx, s.cfg.Sync.QueueName, popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("sync consumer stopped")
				return err
			}
			s.logger.Error("popping sync message", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(popErrorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}

		s.processMessage(ctx, msg)
	}
}

// processMessage runs one message through the handler and routes any
// failure into retry or dead-letter.
func (s *Service) processMessage(ctx context.Context, msg *model.QueueMessage) {
	s.stats.recordProcessed()

	err := s.HandleEvent(ctx, msg.Event)
	if err == nil {
		s.stats.recordSuccess()
		return
	}

	s.stats.recordFailure()
	s.logger.Error("processing sync message failed",
		"message_id", msg.ID,
		"event_type", msg.Event.Type,
		"page_id", msg.Event.Page.ID,
		"retry_count", msg.RetryCount,
		"error", err,
	)

	if s.policy.Exhausted(msg.RetryCount) {
		s.deadLetter(ctx, msg, err)
		return
	}

	s.retry(ctx, msg, err)
}

// retry waits out the policy delay and re-enqueues the message with a
// bumped attempt count and a back-of-queue priority.
func (s *Service) retry(ctx context.Context, msg *model.QueueMessage, cause error) {
	attempt := msg.RetryCount + 1
	delay := s.policy.Delay(attempt)

	s.logger.Info("scheduling retry",
		"message_id", msg.ID, "attempt", attempt, "delay", delay)

	select {
	case <-ctx.Done():
		// Shutting down: re-enqueue immediately so the message survives.
	case <-time.After(delay):
	}

	msg.RetryCount = attempt
	msg.Priority = s.policy.Priority(attempt)
	msg.LastError = cause.Error()

	if err := s.queue.Push(context.WithoutCancel(ctx), s.cfg.Sync.QueueName, msg); err != nil {
		s.logger.Error("re-enqueueing message",
			"message_id", msg.ID, "error", err)
	}
}

// deadLetter parks an exhausted message on the dead-letter queue. It is
// never drained automatically; operators inspect and re-drive by hand.
func (s *Service) deadLetter(ctx context.Context, msg *model.QueueMessage, cause error) {
	msg.LastError = cause.Error()

	if err := s.queue.Push(context.WithoutCancel(ctx), s.cfg.Sync.DeadLetterQueue, msg); err != nil {
		s.logger.Error("pushing to dead-letter queue",
			"message_id", msg.ID, "error", err)
		return
	}

	s.logger.Warn("message dead-lettered",
		"message_id", msg.ID,
		"page_id", msg.Event.Page.ID,
		"attempts", msg.RetryCount,
		"last_error", msg.LastError,
	)
}
