package sync

import "time"

// RetryPolicy decides how failed messages are re-enqueued. Delay and
// Priority are pure functions of the attempt number so the schedule is
// predictable and testable.
type RetryPolicy struct {
	// MaxAttempts is the number of retries before dead-lettering.
	MaxAttempts int

	// BaseDelay is the first retry delay; each attempt doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy mirrors the service defaults: 3 attempts, 60s base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   60 * time.Second,
		MaxDelay:    15 * time.Minute,
	}
}

// Delay returns how long to wait before the given retry attempt
// (1-based). Attempt n waits BaseDelay * 2^(n-1), capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Priority returns the queue priority of the given retry attempt.
// Retries carry attempt*10 so they join the back of the queue instead of
// starving fresh work.
func (p RetryPolicy) Priority(attempt int) int {
	return attempt * 10
}

// Exhausted reports whether a message that already failed retryCount
// times should be dead-lettered instead of retried.
func (p RetryPolicy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxAttempts
}
