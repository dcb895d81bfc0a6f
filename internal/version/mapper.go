package version

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nhle/notion2jira/internal/jira"
)

// tableFile is the on-disk alias table, keyed by Jira version id. It is
// operator-editable: notion_names and comment survive refreshes from Jira.
type tableFile struct {
	LastUpdated      string                  `json:"last_updated"`
	Description      string                  `json:"description,omitempty"`
	DefaultVersionID string                  `json:"default_version_id"`
	VersionMappings  map[string]tableEntry   `json:"version_mappings"`
	JiraSyncTime     string                  `json:"jira_sync_time,omitempty"`
}

type tableEntry struct {
	JiraName    string   `json:"jira_name"`
	NotionNames []string `json:"notion_names"`
	Released    bool     `json:"released"`
	Archived    bool     `json:"archived"`
	Description string   `json:"description,omitempty"`
	Comment     string   `json:"comment,omitempty"`
}

// Mapper resolves workspace version names to Jira version ids through the
// alias table. Resolution is total: every input yields an id, with the
// configured default as the final fallback.
type Mapper struct {
	mu               sync.RWMutex
	path             string
	defaultVersionID string
	table            tableFile
	logger           *slog.Logger
}

// NewMapper loads the alias table from path. A missing file is not an
// error: the mapper starts empty and resolves everything to
// defaultVersionID until the table appears.
func NewMapper(path, defaultVersionID string, logger *slog.Logger) (*Mapper, error) {
	m := &Mapper{
		path:             path,
		defaultVersionID: defaultVersionID,
		table:            tableFile{VersionMappings: map[string]tableEntry{}},
		logger:           logger,
	}

	if err := m.Reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.Warn("version table missing, using default only",
			"path", path, "default_version_id", defaultVersionID)
	}

	return m, nil
}

// Reload re-reads the alias table file.
func (m *Mapper) Reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var table tableFile
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parsing version table %s: %w", m.path, err)
	}
	if table.VersionMappings == nil {
		table.VersionMappings = map[string]tableEntry{}
	}

	m.mu.Lock()
	m.table = table
	m.mu.Unlock()

	m.logger.Info("version table loaded", "path", m.path, "entries", len(table.VersionMappings))
	return nil
}

// normalizeName lowercases and strips surrounding space for fuzzy alias
// comparison.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve maps a workspace version name to a Jira version id. Order:
// exact alias match, case/space-insensitive alias match, then
// case/space-insensitive jira_name match, then the default id. It never
// fails.
func (m *Mapper) Resolve(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if strings.TrimSpace(name) == "" {
		return m.fallbackID()
	}

	for id, entry := range m.table.VersionMappings {
		for _, alias := range entry.NotionNames {
			if alias == name {
				return id
			}
		}
	}

	normalized := normalizeName(name)
	for id, entry := range m.table.VersionMappings {
		for _, alias := range entry.NotionNames {
			if normalizeName(alias) == normalized {
				return id
			}
		}
	}

	for id, entry := range m.table.VersionMappings {
		if normalizeName(entry.JiraName) == normalized {
			return id
		}
	}

	m.logger.Info("version name unmapped, using default",
		"name", name, "default_version_id", m.fallbackID())
	return m.fallbackID()
}

// DefaultVersionID returns the effective fallback id.
func (m *Mapper) DefaultVersionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbackID()
}

func (m *Mapper) fallbackID() string {
	if m.table.DefaultVersionID != "" {
		return m.table.DefaultVersionID
	}
	return m.defaultVersionID
}

// RefreshFromJira merges the live Jira version list into the table,
// preserving operator-maintained aliases and comments, and persists the
// result.
func (m *Mapper) RefreshFromJira(versions []jira.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, v := range versions {
		entry, ok := m.table.VersionMappings[v.ID]
		if !ok {
			entry = tableEntry{NotionNames: []string{}}
		}
		entry.JiraName = v.Name
		entry.Released = v.Released
		entry.Archived = v.Archived
		m.table.VersionMappings[v.ID] = entry
	}
	m.table.JiraSyncTime = now
	m.table.LastUpdated = now

	data, err := json.MarshalIndent(m.table, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding version table: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("writing version table %s: %w", m.path, err)
	}

	m.logger.Info("version table refreshed from jira",
		"versions", len(versions), "entries", len(m.table.VersionMappings))
	return nil
}

// Watch reloads the table whenever the file is rewritten, until ctx is
// canceled. Operators edit the table in place; no restart needed.
func (m *Mapper) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating version table watcher: %w", err)
	}

	if err := watcher.Add(m.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching version table %s: %w", m.path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.Reload(); err != nil {
					m.logger.Error("reloading version table", "path", m.path, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Error("version table watcher", "error", err)
			}
		}
	}()

	return nil
}
