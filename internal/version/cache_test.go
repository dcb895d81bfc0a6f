package version_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notion2jira/internal/notion"
	"github.com/nhle/notion2jira/internal/version"
)

// fakeFetcher serves canned pages and records call counts.
type fakeFetcher struct {
	pages map[string]*notion.Page
	calls int
	err   error
}

func (f *fakeFetcher) GetPage(_ context.Context, pageID string) (*notion.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[pageID]
	if !ok {
		return nil, errors.New("page not found")
	}
	return page, nil
}

func versionPage(id, name string) *notion.Page {
	title, _ := json.Marshal(map[string]interface{}{
		"type":  "title",
		"title": []map[string]string{{"plain_text": name}},
	})
	return &notion.Page{
		ID:         id,
		Properties: map[string]json.RawMessage{"项目": title},
	}
}

func TestPageNameCacheFetchesAndCaches(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*notion.Page{
		"v-page-1": versionPage("v-page-1", "Network 6.4"),
	}}
	cache := version.NewPageNameCache(fetcher, "", "", time.Hour, testLogger())

	assert.Equal(t, "Network 6.4", cache.Name(context.Background(), "v-page-1"))
	assert.Equal(t, "Network 6.4", cache.Name(context.Background(), "v-page-1"))
	assert.Equal(t, 1, fetcher.calls)
}

func TestPageNameCachePinnedMappingWins(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "local.json")
	local := `{"mappings": {"v-page-1": {"name": "Pinned Name"}}}`
	require.NoError(t, os.WriteFile(localPath, []byte(local), 0o644))

	fetcher := &fakeFetcher{pages: map[string]*notion.Page{
		"v-page-1": versionPage("v-page-1", "Remote Name"),
	}}
	cache := version.NewPageNameCache(fetcher, localPath, "", time.Hour, testLogger())

	assert.Equal(t, "Pinned Name", cache.Name(context.Background(), "v-page-1"))
	assert.Zero(t, fetcher.calls)
}

func TestPageNameCacheSyntheticFallback(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("api down")}
	cache := version.NewPageNameCache(fetcher, "", "", time.Hour, testLogger())

	assert.Equal(t, "Version-21e12345", cache.Name(context.Background(), "21e12345-6789"))
}

func TestPageNameCacheSnapshotSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "cache.json")

	fetcher := &fakeFetcher{pages: map[string]*notion.Page{
		"v-page-1": versionPage("v-page-1", "Network 6.4"),
	}}
	cache := version.NewPageNameCache(fetcher, "", snapshotPath, time.Hour, testLogger())
	require.Equal(t, "Network 6.4", cache.Name(context.Background(), "v-page-1"))

	// A fresh cache over the same snapshot needs no remote call.
	cold := version.NewPageNameCache(&fakeFetcher{err: errors.New("api down")},
		"", snapshotPath, time.Hour, testLogger())
	assert.Equal(t, "Network 6.4", cold.Name(context.Background(), "v-page-1"))
}

func TestPageNameCacheStaleEntryBeatsFailedFetch(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*notion.Page{
		"v-page-1": versionPage("v-page-1", "Network 6.4"),
	}}
	// Zero TTL: every lookup goes remote.
	cache := version.NewPageNameCache(fetcher, "", "", 0, testLogger())
	require.Equal(t, "Network 6.4", cache.Name(context.Background(), "v-page-1"))

	fetcher.err = errors.New("api down")
	assert.Equal(t, "Network 6.4", cache.Name(context.Background(), "v-page-1"))
}
