package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nhle/notion2jira/internal/crossref"
	"github.com/nhle/notion2jira/internal/model"
	"github.com/nhle/notion2jira/internal/notion"
)

// Candidate property names per logical field. Workspace databases have
// drifted over time, so every extraction walks a candidate list.
var (
	titleFields       = []string{"功能 Name", "title", "name", "Title", "Name"}
	scenarioFields    = []string{"需求场景 Scenario"}
	descFields        = []string{"功能说明 Desc", "description", "Description"}
	priorityFields    = []string{"优先级 P", "priority", "Priority"}
	assigneeFields    = []string{"需求录入", "assignee", "Assignee", "分配人员"}
	productLineFields = []string{"产品线"}
	versionFields     = []string{"关联项目", "version", "Version", "fixVersion"}
	statusFields      = []string{"Status", "status", "状态"}
	relationFields    = []string{"relation", "Relation", "关联"}
	docFields         = []string{"相关文档"}
)

// summaryFallbackRunes bounds the description excerpt used as a summary
// of last resort.
const summaryFallbackRunes = 50

// VersionResolver maps a workspace version name to a tracker version id.
// Implemented by version.Mapper.
type VersionResolver interface {
	Resolve(name string) string
	DefaultVersionID() string
}

// PageNamer resolves a version-library page id to its display name.
// Implemented by version.PageNameCache.
type PageNamer interface {
	Name(ctx context.Context, pageID string) string
}

// Mapper translates a workspace page into tracker issue fields. Every
// extraction degrades instead of failing: a page with nothing but an id
// still maps to a valid create request.
type Mapper struct {
	cfg       model.MappingConfig
	jiraCfg   model.JiraConfig
	versions  VersionResolver
	pageNames PageNamer
	reporters *ReporterCache
	logger    *slog.Logger
}

// NewMapper builds the field mapping engine. reporters may be nil, in
// which case reporter emails skip directory validation.
func NewMapper(
	cfg model.MappingConfig,
	jiraCfg model.JiraConfig,
	versions VersionResolver,
	pageNames PageNamer,
	reporters *ReporterCache,
	logger *slog.Logger,
) *Mapper {
	return &Mapper{
		cfg:       cfg,
		jiraCfg:   jiraCfg,
		versions:  versions,
		pageNames: pageNames,
		reporters: reporters,
		logger:    logger,
	}
}

// Map produces the issue fields for a page. It never returns an error:
// missing or malformed properties fall through their documented
// fallbacks.
func (m *Mapper) Map(ctx context.Context, page *model.Page) model.IssueFields {
	fields := model.IssueFields{
		ProjectKey:  m.jiraCfg.ProjectKey,
		IssueTypeID: m.jiraCfg.DefaultIssueTypeID,
	}

	fields.Description = m.buildDescription(page)
	fields.Summary = m.extractSummary(page)
	fields.PriorityID = m.extractPriority(page)
	fields.Status = m.extractStatus(page)
	fields.Assignee = m.extractAssignee(page)
	fields.Reporter = m.extractReporter(ctx, page)
	fields.FixVersionID = m.extractFixVersion(ctx, page)
	m.extractLinks(page, &fields)

	m.logger.Info("page mapped to issue fields",
		"page_id", page.ID,
		"summary", fields.Summary,
		"priority_id", fields.PriorityID,
		"fix_version_id", fields.FixVersionID,
		"has_assignee", fields.Assignee != "",
		"remote_links", len(fields.RemoteLinks),
		"cross_issue_keys", len(fields.CrossIssueKeys),
	)
	return fields
}

// extractSummary walks the summary fallback chain: title candidates,
// the scenario field, an excerpt of the description field, and finally a
// placeholder derived from the page id.
func (m *Mapper) extractSummary(page *model.Page) string {
	if prop, ok := page.FirstProp(titleFields...); ok {
		if text := prop.PlainText(); text != "" {
			return text
		}
	}

	if prop, ok := page.FirstProp(scenarioFields...); ok {
		if text := prop.PlainText(); text != "" {
			return text
		}
	}

	if prop, ok := page.FirstProp(descFields...); ok {
		if excerpt := summaryExcerpt(prop.PlainText()); excerpt != "" {
			return excerpt
		}
	}

	id := page.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "未命名需求 " + id
}

// summaryExcerpt condenses description text into a one-line summary.
func summaryExcerpt(description string) string {
	text := strings.TrimSpace(description)
	if text == "" {
		return ""
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > summaryFallbackRunes {
			return "需求: " + string(runes[:summaryFallbackRunes]) + "..."
		}
		return "需求: " + line
	}
	return ""
}

const emptyDescription = "无详细描述"

// buildDescription assembles the issue description from its sections.
// The AI-generated summary field is deliberately left out: it churns on
// every edit and drowns the mapped diff.
func (m *Mapper) buildDescription(page *model.Page) string {
	var parts []string

	if prop, ok := page.FirstProp(descFields...); ok {
		if text := prop.PlainText(); text != "" {
			parts = append(parts, "## 需求说明\n"+text)
		}
	}

	if pageURL := m.pageURL(page); pageURL != "" {
		parts = append(parts, "## 原始需求链接\n"+pageURL)
	}

	if len(parts) == 0 {
		return emptyDescription
	}
	return strings.Join(parts, "\n\n")
}

func (m *Mapper) pageURL(page *model.Page) string {
	if page.URL != "" {
		return page.URL
	}
	if page.ID != "" {
		return notion.PageURL(page.ID)
	}
	return ""
}

// extractPriority maps the priority option through the config table.
// Unmapped options drop the field so the project default applies.
func (m *Mapper) extractPriority(page *model.Page) string {
	prop, ok := page.FirstProp(priorityFields...)
	if !ok {
		return ""
	}

	name := prop.PlainText()
	id, ok := m.cfg.PriorityMap[name]
	if !ok {
		if name != "" {
			m.logger.Warn("priority option unmapped, dropping field",
				"page_id", page.ID, "priority", name)
		}
		return ""
	}
	return id
}

// extractStatus maps the workspace status for logging. Workflow
// transitions are never driven from here.
func (m *Mapper) extractStatus(page *model.Page) string {
	prop, ok := page.FirstProp(statusFields...)
	if !ok {
		return ""
	}

	name := prop.PlainText()
	if mapped, ok := m.cfg.StatusMap[name]; ok {
		return mapped
	}
	return name
}

// extractAssignee prefers the entering person's email, then the product
// line owner, then the global default.
func (m *Mapper) extractAssignee(page *model.Page) string {
	if prop, ok := page.FirstProp(assigneeFields...); ok {
		for _, person := range prop.People {
			if person.Email != "" {
				return person.Email
			}
		}
	}

	if owner := m.productLineOwner(page); owner != "" {
		return owner
	}
	return m.cfg.DefaultOwner
}

// extractReporter walks the owner chain and validates every candidate
// email against the tracker's user directory. When no candidate
// validates, the reporter is omitted rather than failing the create.
func (m *Mapper) extractReporter(ctx context.Context, page *model.Page) string {
	var candidates []string
	if prop, ok := page.FirstProp(assigneeFields...); ok {
		for _, person := range prop.People {
			if person.Email != "" {
				candidates = append(candidates, person.Email)
			}
		}
	}
	if owner := m.productLineOwner(page); owner != "" {
		candidates = append(candidates, owner)
	}
	if m.cfg.DefaultOwner != "" {
		candidates = append(candidates, m.cfg.DefaultOwner)
	}

	for _, email := range candidates {
		if m.reporters == nil || m.reporters.Valid(ctx, email) {
			return email
		}
		m.logger.Warn("reporter email not in user directory",
			"page_id", page.ID, "email", email)
	}
	return ""
}

func (m *Mapper) productLineOwner(page *model.Page) string {
	prop, ok := page.FirstProp(productLineFields...)
	if !ok {
		return ""
	}
	return m.cfg.ProductLineOwners[prop.PlainText()]
}

// extractFixVersion resolves exactly one fix version: relation id via
// the page-name cache, select/multi-select by name, then the default.
func (m *Mapper) extractFixVersion(ctx context.Context, page *model.Page) string {
	prop, ok := page.FirstProp(versionFields...)
	if !ok {
		return m.versions.DefaultVersionID()
	}

	switch prop.Type {
	case model.PropertyRelation:
		if len(prop.RelationIDs) > 0 {
			name := m.pageNames.Name(ctx, prop.RelationIDs[0])
			return m.versions.Resolve(name)
		}
	case model.PropertySelect, model.PropertyStatus, model.PropertyMultiSelect,
		model.PropertyRichText, model.PropertyTitle, model.PropertyFormula:
		if name := prop.PlainText(); name != "" {
			return m.versions.Resolve(name)
		}
	}

	return m.versions.DefaultVersionID()
}

// extractLinks fills the remote-link and cross-issue side channels.
func (m *Mapper) extractLinks(page *model.Page, fields *model.IssueFields) {
	if pageURL := m.pageURL(page); pageURL != "" {
		fields.RemoteLinks = append(fields.RemoteLinks, model.RemoteLink{
			URL:      pageURL,
			Title:    fields.Summary,
			Category: model.LinkCategoryOriginal,
		})
	}

	if prop, ok := page.FirstProp(docFields...); ok {
		for _, id := range prop.RelationIDs {
			fields.RemoteLinks = append(fields.RemoteLinks, model.RemoteLink{
				URL:      notion.PageURL(id),
				Title:    "相关文档",
				Category: model.LinkCategoryDoc,
			})
		}
	}

	entries := m.relationEntries(page)
	issueKeys, others := crossref.PartitionLinks(entries)
	fields.CrossIssueKeys = issueKeys
	for i, u := range others {
		fields.RemoteLinks = append(fields.RemoteLinks, model.RemoteLink{
			URL:      u,
			Title:    fmt.Sprintf("相关链接 %d", i+1),
			Category: model.LinkCategoryOther,
		})
	}
}

// relationEntries collects candidate link strings from the relation
// field, which is either a relation array of page ids or a formula of
// comma-separated URLs.
func (m *Mapper) relationEntries(page *model.Page) []string {
	prop, ok := page.FirstProp(relationFields...)
	if !ok {
		return nil
	}

	switch prop.Type {
	case model.PropertyRelation:
		entries := make([]string, 0, len(prop.RelationIDs))
		for _, id := range prop.RelationIDs {
			entries = append(entries, notion.PageURL(id))
		}
		return entries
	case model.PropertyFormula, model.PropertyRichText, model.PropertyURL:
		text := prop.PlainText()
		if text == "" {
			return nil
		}
		return strings.Split(text, ",")
	}
	return nil
}
