package mapping

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/nhle/notion2jira/internal/jira"
)

// UserFinder looks up a tracker user by email. Implemented by
// *jira.Client.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*jira.User, error)
}

// ReporterCache remembers which emails exist in the tracker's user
// directory. Lookups are lazy and cached for the process lifetime; a
// directory error counts as valid so a flaky directory never blocks a
// sync.
type ReporterCache struct {
	mu     sync.Mutex
	finder UserFinder
	known  map[string]bool
	logger *slog.Logger
}

// NewReporterCache creates an empty cache over the given directory.
func NewReporterCache(finder UserFinder, logger *slog.Logger) *ReporterCache {
	return &ReporterCache{
		finder: finder,
		known:  make(map[string]bool),
		logger: logger,
	}
}

// Valid reports whether email belongs to a known tracker user.
func (c *ReporterCache) Valid(ctx context.Context, email string) bool {
	key := strings.ToLower(email)

	c.mu.Lock()
	if valid, ok := c.known[key]; ok {
		c.mu.Unlock()
		return valid
	}
	c.mu.Unlock()

	user, err := c.finder.FindUserByEmail(ctx, email)
	if err != nil {
		c.logger.Warn("user directory lookup failed, treating email as valid",
			"email", email, "error", err)
		return true
	}

	valid := user != nil
	c.mu.Lock()
	c.known[key] = valid
	c.mu.Unlock()
	return valid
}
