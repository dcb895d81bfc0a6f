package mapping_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notion2jira/internal/jira"
	"github.com/nhle/notion2jira/internal/mapping"
	"github.com/nhle/notion2jira/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeVersions records resolve calls and maps a fixed table.
type fakeVersions struct {
	table    map[string]string
	resolved []string
}

func (f *fakeVersions) Resolve(name string) string {
	f.resolved = append(f.resolved, name)
	if id, ok := f.table[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id
	}
	return "14577"
}

func (f *fakeVersions) DefaultVersionID() string { return "14577" }

// fakeNames maps version page ids to display names.
type fakeNames struct{ names map[string]string }

func (f *fakeNames) Name(_ context.Context, pageID string) string {
	if name, ok := f.names[pageID]; ok {
		return name
	}
	return "Version-" + pageID
}

// fakeFinder serves a fixed user directory.
type fakeFinder struct {
	users map[string]bool
	err   error
	calls int
}

func (f *fakeFinder) FindUserByEmail(_ context.Context, email string) (*jira.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.users[strings.ToLower(email)] {
		return &jira.User{Name: email, EmailAddress: email}, nil
	}
	return nil, nil
}

func testConfig() model.MappingConfig {
	return model.MappingConfig{
		PriorityMap: map[string]string{
			"高 High": "1", "中 Medium": "3", "低 Low": "4", "无 None": "5",
		},
		StatusMap: map[string]string{"待评估 UR": "待可行性评估"},
		ProductLineOwners: map[string]string{
			"Gateway": "zhujiayin@tp-link.com.hk",
			"EAP":     "ouhuanrui@tp-link.com.hk",
		},
		DefaultOwner: "ludingyang@tp-link.com.hk",
	}
}

func newMapper(versions *fakeVersions, names *fakeNames, reporters *mapping.ReporterCache) *mapping.Mapper {
	if versions == nil {
		versions = &fakeVersions{}
	}
	if names == nil {
		names = &fakeNames{}
	}
	jiraCfg := model.JiraConfig{
		ProjectKey:         "SMBNET",
		DefaultIssueTypeID: "10001",
		DefaultVersionID:   "14577",
	}
	return mapping.NewMapper(testConfig(), jiraCfg, versions, names, reporters, testLogger())
}

func titleProp(text string) model.Property {
	return model.Property{Type: model.PropertyTitle, Text: text}
}

func selectProp(name string) model.Property {
	return model.Property{Type: model.PropertySelect, Select: name}
}

func TestMapTypicalPage(t *testing.T) {
	m := newMapper(nil, nil, nil)

	page := &model.Page{
		ID:  "21e12345-6789-0abc-def1-234567890abc",
		URL: "https://www.notion.so/page1",
		Properties: map[string]model.Property{
			"功能 Name":   titleProp("Support WPA3 on guest networks"),
			"优先级 P":     selectProp("高 High"),
			"产品线":       selectProp("Gateway"),
			"功能说明 Desc": {Type: model.PropertyRichText, Text: "Guests need WPA3."},
			"Status":    {Type: model.PropertyStatus, Select: "待评估 UR"},
		},
	}

	fields := m.Map(context.Background(), page)

	assert.Equal(t, "Support WPA3 on guest networks", fields.Summary)
	assert.Equal(t, "1", fields.PriorityID)
	assert.Equal(t, "10001", fields.IssueTypeID)
	assert.Equal(t, "zhujiayin@tp-link.com.hk", fields.Assignee)
	assert.Equal(t, "zhujiayin@tp-link.com.hk", fields.Reporter)
	assert.Equal(t, "14577", fields.FixVersionID)
	assert.Equal(t, "待可行性评估", fields.Status)
	assert.Contains(t, fields.Description, "## 需求说明\nGuests need WPA3.")
	assert.Contains(t, fields.Description, "## 原始需求链接\nhttps://www.notion.so/page1")

	require.Len(t, fields.RemoteLinks, 1)
	assert.Equal(t, model.LinkCategoryOriginal, fields.RemoteLinks[0].Category)
	assert.Equal(t, "https://www.notion.so/page1", fields.RemoteLinks[0].URL)
}

func TestMapEmptyPageStillYieldsRequiredFields(t *testing.T) {
	m := newMapper(nil, nil, nil)

	fields := m.Map(context.Background(), &model.Page{ID: "21e12345-6789"})

	assert.Equal(t, "未命名需求 21e12345", fields.Summary)
	assert.Contains(t, fields.Description, "## 原始需求链接")
	assert.Equal(t, "14577", fields.FixVersionID)
	assert.Equal(t, "ludingyang@tp-link.com.hk", fields.Assignee)
	assert.Empty(t, fields.PriorityID)
}

func TestSummaryFallsBackToScenario(t *testing.T) {
	m := newMapper(nil, nil, nil)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"需求场景 Scenario": {Type: model.PropertyRichText, Text: "Roaming between floors"},
		},
	}

	fields := m.Map(context.Background(), page)
	assert.Equal(t, "Roaming between floors", fields.Summary)
}

func TestSummaryFallsBackToDescriptionExcerpt(t *testing.T) {
	m := newMapper(nil, nil, nil)

	long := strings.Repeat("需", 80)
	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"功能说明 Desc": {Type: model.PropertyRichText, Text: long},
		},
	}

	fields := m.Map(context.Background(), page)
	assert.True(t, strings.HasPrefix(fields.Summary, "需求: "))
	assert.True(t, strings.HasSuffix(fields.Summary, "..."))
	assert.LessOrEqual(t, len([]rune(fields.Summary)), 4+50+3)
}

func TestUnmappedPriorityIsDropped(t *testing.T) {
	m := newMapper(nil, nil, nil)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"优先级 P": selectProp("urgent!!"),
		},
	}

	fields := m.Map(context.Background(), page)
	assert.Empty(t, fields.PriorityID)
}

func TestAssigneePrefersPeopleEmail(t *testing.T) {
	m := newMapper(nil, nil, nil)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"需求录入": {Type: model.PropertyPeople, People: []model.Person{
				{ID: "u1", Name: "Huang", Email: "huang@tp-link.com.hk"},
			}},
			"产品线": selectProp("Gateway"),
		},
	}

	fields := m.Map(context.Background(), page)
	assert.Equal(t, "huang@tp-link.com.hk", fields.Assignee)
}

func TestReporterFallsBackWhenEmailInvalid(t *testing.T) {
	finder := &fakeFinder{users: map[string]bool{"ouhuanrui@tp-link.com.hk": true}}
	reporters := mapping.NewReporterCache(finder, testLogger())
	m := newMapper(nil, nil, reporters)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"需求录入": {Type: model.PropertyPeople, People: []model.Person{
				{ID: "u1", Email: "ghost@example.com"},
			}},
			"产品线": selectProp("EAP"),
		},
	}

	fields := m.Map(context.Background(), page)
	assert.Equal(t, "ouhuanrui@tp-link.com.hk", fields.Reporter)
	// Assignee skips directory validation.
	assert.Equal(t, "ghost@example.com", fields.Assignee)
}

func TestReporterOmittedWhenNoCandidateValidates(t *testing.T) {
	finder := &fakeFinder{users: map[string]bool{}}
	reporters := mapping.NewReporterCache(finder, testLogger())
	m := newMapper(nil, nil, reporters)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"需求录入": {Type: model.PropertyPeople, People: []model.Person{
				{ID: "u1", Email: "ghost@example.com"},
			}},
			"产品线": selectProp("EAP"),
		},
	}

	fields := m.Map(context.Background(), page)
	// Even the owner defaults are validated; nothing passes, so the
	// reporter is dropped and the tracker default applies.
	assert.Empty(t, fields.Reporter)
	assert.Equal(t, "ghost@example.com", fields.Assignee)
}

func TestFixVersionViaRelationAndNameCache(t *testing.T) {
	versions := &fakeVersions{table: map[string]string{"network 6.3": "15001"}}
	names := &fakeNames{names: map[string]string{"v-page-1": "network 6.3"}}
	m := newMapper(versions, names, nil)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"关联项目": {Type: model.PropertyRelation, RelationIDs: []string{"v-page-1"}},
		},
	}

	fields := m.Map(context.Background(), page)
	assert.Equal(t, "15001", fields.FixVersionID)
	assert.Equal(t, []string{"network 6.3"}, versions.resolved)
}

func TestFixVersionViaSelectName(t *testing.T) {
	versions := &fakeVersions{table: map[string]string{"network 6.4": "15000"}}
	m := newMapper(versions, nil, nil)

	page := &model.Page{
		ID: "p1",
		Properties: map[string]model.Property{
			"关联项目": selectProp("Network 6.4"),
		},
	}

	fields := m.Map(context.Background(), page)
	assert.Equal(t, "15000", fields.FixVersionID)
}

func TestRelationLinksPartitionedIntoKeysAndURLs(t *testing.T) {
	m := newMapper(nil, nil, nil)

	page := &model.Page{
		ID:  "p1",
		URL: "https://www.notion.so/p1",
		Properties: map[string]model.Property{
			"relation": {
				Type: model.PropertyFormula,
				Text: "http://jira.example.com/browse/PROJ-12,https://docs.example.com/spec",
			},
			"相关文档": {Type: model.PropertyRelation, RelationIDs: []string{"doc-page-1"}},
		},
	}

	fields := m.Map(context.Background(), page)

	assert.Equal(t, []string{"PROJ-12"}, fields.CrossIssueKeys)

	categories := map[string]int{}
	for _, link := range fields.RemoteLinks {
		categories[link.Category]++
	}
	assert.Equal(t, 1, categories[model.LinkCategoryOriginal])
	assert.Equal(t, 1, categories[model.LinkCategoryDoc])
	assert.Equal(t, 1, categories[model.LinkCategoryOther])
}

func TestStableGlobalIDDeterministic(t *testing.T) {
	a := mapping.StableGlobalID("https://www.notion.so/p1", model.LinkCategoryOriginal)
	b := mapping.StableGlobalID("https://www.notion.so/p1", model.LinkCategoryOriginal)
	c := mapping.StableGlobalID("https://www.notion.so/p1", model.LinkCategoryDoc)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, mapping.GlobalIDPrefix))
}

func TestReporterCacheCachesLookups(t *testing.T) {
	finder := &fakeFinder{users: map[string]bool{"lu@example.com": true}}
	cache := mapping.NewReporterCache(finder, testLogger())

	ctx := context.Background()
	assert.True(t, cache.Valid(ctx, "lu@example.com"))
	assert.True(t, cache.Valid(ctx, "LU@example.com"))
	assert.Equal(t, 1, finder.calls)

	assert.False(t, cache.Valid(ctx, "ghost@example.com"))
}

func TestReporterCacheLookupErrorCountsValid(t *testing.T) {
	finder := &fakeFinder{err: errors.New("directory down")}
	cache := mapping.NewReporterCache(finder, testLogger())

	assert.True(t, cache.Valid(context.Background(), "anyone@example.com"))
}
