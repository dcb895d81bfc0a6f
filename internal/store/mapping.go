package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/notion2jira/internal/model"
)

const (
	mappingKeyPrefix = "sync_mapping:"
	reverseKeyPrefix = "reverse_mapping:"
)

// MappingStore persists page↔issue identity mappings on top of a KV Store.
// Mappings are written in both directions and never deleted; their
// existence is the idempotency check for the create path. There is no
// compare-and-set: the service runs as a single consumer, and a duplicate
// create racing its own mapping write is accepted as a bounded hazard.
type MappingStore struct {
	kv Store
}

// NewMappingStore creates a mapping store over the given KV backend.
func NewMappingStore(kv Store) *MappingStore {
	return &MappingStore{kv: kv}
}

// Save records that pageID is synced to issueKey, in both directions.
func (m *MappingStore) Save(ctx context.Context, pageID, issueKey string) error {
	now := time.Now().UTC()
	mapping := model.SyncMapping{
		PageID:    pageID,
		IssueKey:  issueKey,
		CreatedAt: now,
		LastSync:  now,
	}

	// Preserve the original creation time on re-save.
	if existing, err := m.Get(ctx, pageID); err == nil {
		mapping.CreatedAt = existing.CreatedAt
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encoding mapping for page %s: %w", pageID, err)
	}

	if err := m.kv.Set(ctx, mappingKeyPrefix+pageID, data, 0); err != nil {
		return fmt.Errorf("saving mapping for page %s: %w", pageID, err)
	}
	if err := m.kv.Set(ctx, reverseKeyPrefix+issueKey, data, 0); err != nil {
		return fmt.Errorf("saving reverse mapping for issue %s: %w", issueKey, err)
	}

	return nil
}

// Get returns the mapping for a page, or ErrNotFound.
func (m *MappingStore) Get(ctx context.Context, pageID string) (*model.SyncMapping, error) {
	return m.load(ctx, mappingKeyPrefix+pageID)
}

// GetReverse returns the mapping for an issue key, or ErrNotFound.
func (m *MappingStore) GetReverse(ctx context.Context, issueKey string) (*model.SyncMapping, error) {
	return m.load(ctx, reverseKeyPrefix+issueKey)
}

// Exists reports whether the page already has a counterpart issue.
func (m *MappingStore) Exists(ctx context.Context, pageID string) (bool, error) {
	return m.kv.Exists(ctx, mappingKeyPrefix+pageID)
}

// Touch advances the mapping's last-sync time after a successful update.
func (m *MappingStore) Touch(ctx context.Context, pageID string) error {
	mapping, err := m.Get(ctx, pageID)
	if err != nil {
		return fmt.Errorf("touching mapping for page %s: %w", pageID, err)
	}
	mapping.LastSync = time.Now().UTC()

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encoding mapping for page %s: %w", pageID, err)
	}
	if err := m.kv.Set(ctx, mappingKeyPrefix+pageID, data, 0); err != nil {
		return fmt.Errorf("touching mapping for page %s: %w", pageID, err)
	}
	if err := m.kv.Set(ctx, reverseKeyPrefix+mapping.IssueKey, data, 0); err != nil {
		return fmt.Errorf("touching reverse mapping for issue %s: %w", mapping.IssueKey, err)
	}

	return nil
}

func (m *MappingStore) load(ctx context.Context, key string) (*model.SyncMapping, error) {
	data, err := m.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var mapping model.SyncMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("decoding mapping %s: %w", key, err)
	}
	return &mapping, nil
}
