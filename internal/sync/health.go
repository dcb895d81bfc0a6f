package sync

import (
	"context"
	"sync"
	"time"
)

// Health states reported by HealthCheck.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// backlogWarnThreshold is the queue depth above which the service
// reports itself degraded.
const backlogWarnThreshold = 100

// Status is a point-in-time snapshot of consumer activity.
type Status struct {
	Processed    uint64    `json:"processed_messages"`
	Succeeded    uint64    `json:"successful_syncs"`
	Failed       uint64    `json:"failed_syncs"`
	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
}

// Health is the result of a health check.
type Health struct {
	State   string   `json:"status"`
	Issues  []string `json:"issues,omitempty"`
	Backlog int64    `json:"queue_backlog"`
	Status  Status   `json:"stats"`
}

type stats struct {
	mu           sync.Mutex
	processed    uint64
	succeeded    uint64
	failed       uint64
	startTime    time.Time
	lastActivity time.Time
}

func (s *stats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = time.Now().UTC()
	s.lastActivity = s.startTime
}

func (s *stats) recordProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	s.lastActivity = time.Now().UTC()
}

func (s *stats) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded++
}

func (s *stats) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

func (s *stats) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Processed:    s.processed,
		Succeeded:    s.succeeded,
		Failed:       s.failed,
		StartTime:    s.startTime,
		LastActivity: s.lastActivity,
	}
}

// Status returns current consumer counters.
func (s *Service) Status() Status {
	return s.stats.snapshot()
}

// HealthCheck probes the store and queue and classifies the service
// state: unhealthy when the store is unreachable, degraded when the
// backlog piles up, healthy otherwise.
func (s *Service) HealthCheck(ctx context.Context) Health {
	health := Health{State: HealthHealthy, Status: s.stats.snapshot()}

	if err := s.kv.Ping(ctx); err != nil {
		health.State = HealthUnhealthy
		health.Issues = append(health.Issues, "store unreachable: "+err.Error())
	}

	backlog, err := s.queue.Length(ctx, s.cfg.Sync.QueueName)
	if err != nil {
		if health.State == HealthHealthy {
			health.State = HealthDegraded
		}
		health.Issues = append(health.Issues, "queue length unavailable: "+err.Error())
	} else {
		health.Backlog = backlog
		if backlog > backlogWarnThreshold {
			if health.State == HealthHealthy {
				health.State = HealthDegraded
			}
			health.Issues = append(health.Issues, "queue backlog above threshold")
		}
	}

	return health
}
