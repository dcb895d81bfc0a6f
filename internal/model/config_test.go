package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notion2jira/internal/model"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sync_queue", cfg.Sync.QueueName)
	assert.Equal(t, "failed_sync_queue", cfg.Sync.DeadLetterQueue)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, 60, cfg.Sync.RetryDelaySec)
	assert.Equal(t, 900, cfg.Sync.RetryMaxDelaySec)
	assert.Equal(t, "SMBNET", cfg.Jira.ProjectKey)
	assert.Equal(t, "14577", cfg.Jira.DefaultVersionID)
	assert.Equal(t, "JIRA Card", cfg.Notion.IssueRefProperty)
	assert.Equal(t, "1", cfg.Mapping.PriorityMap["高 High"])
	assert.Equal(t, "5", cfg.Mapping.PriorityMap["无 None"])
	assert.Equal(t, "zhujiayin@tp-link.com.hk", cfg.Mapping.ProductLineOwners["Gateway"])
	assert.Equal(t, "ludingyang@tp-link.com.hk", cfg.Mapping.DefaultOwner)
	assert.Equal(t, "redis", cfg.Store.Backend)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
jira:
  base_url: http://rdjira.example.com
  project_key: NET
sync:
  max_retries: 5
mapping:
  default_owner: owner@example.com
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://rdjira.example.com", cfg.Jira.BaseURL)
	assert.Equal(t, "NET", cfg.Jira.ProjectKey)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, "owner@example.com", cfg.Mapping.DefaultOwner)
	// Untouched keys keep their defaults.
	assert.Equal(t, "sync_queue", cfg.Sync.QueueName)
	assert.Equal(t, "10001", cfg.Jira.DefaultIssueTypeID)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	cfg.Jira.BaseURL = "http://jira.internal"

	require.NoError(t, model.SaveConfig(path, cfg))

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://jira.internal", loaded.Jira.BaseURL)
}
