package version

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nhle/notion2jira/internal/model"
	"github.com/nhle/notion2jira/internal/notion"
)

// nameFields are the candidate properties that may carry a version page's
// display name, in lookup order.
var nameFields = []string{"项目", "Name", "name", "名称", "title", "版本名称", "Version"}

// PageFetcher fetches a single workspace page. Satisfied by
// *notion.Client; tests inject a fake.
type PageFetcher interface {
	GetPage(ctx context.Context, pageID string) (*notion.Page, error)
}

// snapshotFile is the persisted form of the remote name cache, so a cold
// start needs no remote calls for names seen before.
type snapshotFile struct {
	Versions      map[string]snapshotEntry `json:"versions"`
	LastUpdate    string                   `json:"last_update"`
	CacheTTLHours int                      `json:"cache_ttl_hours"`
}

type snapshotEntry struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// localFile is the operator-pinned id→name mapping; pinned names bypass
// the remote cache entirely.
type localFile struct {
	Mappings map[string]struct {
		Name string `json:"name"`
	} `json:"mappings"`
}

// PageNameCache resolves version-library page ids to display names in
// three tiers: the pinned local mapping, a TTL-bounded in-memory cache
// persisted to a snapshot file, and finally a remote page fetch. It never
// fails: a page with no resolvable name gets a synthetic one from its id.
type PageNameCache struct {
	mu           sync.Mutex
	fetcher      PageFetcher
	snapshotPath string
	ttl          time.Duration
	pinned       map[string]string
	entries      map[string]snapshotEntry
	logger       *slog.Logger
}

// NewPageNameCache builds the cache, loading the pinned mapping from
// localPath and any prior snapshot from snapshotPath. Both files are
// optional.
func NewPageNameCache(
	fetcher PageFetcher,
	localPath, snapshotPath string,
	ttl time.Duration,
	logger *slog.Logger,
) *PageNameCache {
	c := &PageNameCache{
		fetcher:      fetcher,
		snapshotPath: snapshotPath,
		ttl:          ttl,
		pinned:       map[string]string{},
		entries:      map[string]snapshotEntry{},
		logger:       logger,
	}

	if localPath != "" {
		if data, err := os.ReadFile(localPath); err == nil {
			var local localFile
			if err := json.Unmarshal(data, &local); err == nil {
				for id, entry := range local.Mappings {
					c.pinned[id] = entry.Name
				}
			} else {
				logger.Warn("ignoring malformed local version mapping", "path", localPath, "error", err)
			}
		}
	}

	if snapshotPath != "" {
		if data, err := os.ReadFile(snapshotPath); err == nil {
			var snap snapshotFile
			if err := json.Unmarshal(data, &snap); err == nil && snap.Versions != nil {
				c.entries = snap.Versions
			}
		}
	}

	return c
}

// Name resolves a page id to its display name. It always returns a
// usable name; remote failures fall back to the synthetic form.
func (c *PageNameCache) Name(ctx context.Context, pageID string) string {
	if name, ok := c.pinned[pageID]; ok {
		return name
	}

	c.mu.Lock()
	if entry, ok := c.entries[pageID]; ok && time.Since(entry.UpdatedAt) < c.ttl {
		c.mu.Unlock()
		return entry.Name
	}
	c.mu.Unlock()

	page, err := c.fetcher.GetPage(ctx, pageID)
	if err != nil {
		c.logger.Warn("fetching version page name", "page_id", pageID, "error", err)

		// A stale cached name beats a synthetic one.
		c.mu.Lock()
		entry, ok := c.entries[pageID]
		c.mu.Unlock()
		if ok {
			return entry.Name
		}
		return syntheticName(pageID)
	}

	name := extractName(page)
	if name == "" {
		name = syntheticName(pageID)
	}

	c.mu.Lock()
	c.entries[pageID] = snapshotEntry{Name: name, UpdatedAt: time.Now().UTC()}
	c.mu.Unlock()

	if err := c.persist(); err != nil {
		c.logger.Warn("persisting version name cache", "error", err)
	}

	return name
}

// extractName pulls the display name from the candidate properties.
func extractName(page *notion.Page) string {
	for _, field := range nameFields {
		raw, ok := page.Properties[field]
		if !ok {
			continue
		}
		var prop model.Property
		if err := json.Unmarshal(raw, &prop); err != nil {
			continue
		}
		if name := prop.PlainText(); name != "" {
			return name
		}
	}
	return ""
}

// syntheticName derives a stable placeholder from the page id.
func syntheticName(pageID string) string {
	id := pageID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Version-" + id
}

// persist writes the snapshot file.
func (c *PageNameCache) persist() error {
	if c.snapshotPath == "" {
		return nil
	}

	c.mu.Lock()
	snap := snapshotFile{
		Versions:      c.entries,
		LastUpdate:    time.Now().UTC().Format(time.RFC3339),
		CacheTTLHours: int(c.ttl / time.Hour),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding version name cache: %w", err)
	}

	if err := os.WriteFile(c.snapshotPath, data, 0o644); err != nil {
		return fmt.Errorf("writing version name cache %s: %w", c.snapshotPath, err)
	}
	return nil
}
