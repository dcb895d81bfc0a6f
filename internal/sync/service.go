package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhle/notion2jira/internal/crossref"
	"github.com/nhle/notion2jira/internal/jira"
	"github.com/nhle/notion2jira/internal/model"
	"github.com/nhle/notion2jira/internal/queue"
	"github.com/nhle/notion2jira/internal/store"
)

// Tracker is the destination issue tracker. Implemented by *jira.Client.
type Tracker interface {
	CreateIssue(ctx context.Context, projectID string, f model.IssueFields) (*jira.CreatedIssue, error)
	UpdateIssue(ctx context.Context, issueKey string, f model.IssueFields) error
	RemoteLinks(ctx context.Context, issueKey string) ([]jira.RemoteLink, error)
	UpsertRemoteLink(ctx context.Context, issueKey string, link jira.RemoteLink) (bool, error)
	DeleteRemoteLink(ctx context.Context, issueKey string, linkID int64) error
	LinkIssues(ctx context.Context, inwardKey, outwardKey string) error
	BrowseURL(issueKey string) string
}

// Workspace writes sync results back to the source system. Implemented
// by *notion.Client.
type Workspace interface {
	SetIssueRef(ctx context.Context, pageID, propertyName, browseURL string) error
	SetSyncedStatus(ctx context.Context, pageID, statusName string) error
}

// FieldMapper turns a page into issue fields. Implemented by
// *mapping.Mapper.
type FieldMapper interface {
	Map(ctx context.Context, page *model.Page) model.IssueFields
}

// Service owns the sync pipeline: it consumes queue messages, decides
// create vs update, and drives the tracker and workspace clients.
type Service struct {
	cfg      model.AppConfig
	tracker  Tracker
	worksp   Workspace
	mapper   FieldMapper
	mappings *store.MappingStore
	queue    queue.Queue
	kv       store.Store
	policy   RetryPolicy
	logger   *slog.Logger

	stats stats
}

// NewService wires the sync pipeline together.
func NewService(
	cfg model.AppConfig,
	tracker Tracker,
	worksp Workspace,
	mapper FieldMapper,
	mappings *store.MappingStore,
	q queue.Queue,
	kv store.Store,
	policy RetryPolicy,
	logger *slog.Logger,
) *Service {
	s := &Service{
		cfg:      cfg,
		tracker:  tracker,
		worksp:   worksp,
		mapper:   mapper,
		mappings: mappings,
		queue:    q,
		kv:       kv,
		policy:   policy,
		logger:   logger,
	}
	s.stats.reset()
	return s
}

// HandleEvent dispatches one sync event. Unknown event types are dropped
// with a warning rather than retried forever.
func (s *Service) HandleEvent(ctx context.Context, event model.SyncEvent) error {
	switch event.Type {
	case model.EventNotionToJiraCreate, model.EventNotionToJiraUpdate:
		return s.syncPage(ctx, event)
	case model.EventJiraToNotionUpdate:
		return s.handleReverse(ctx, event)
	default:
		s.logger.Warn("dropping unknown event type",
			"event_type", event.Type, "page_id", event.Page.ID)
		return nil
	}
}

// syncPage runs the create-vs-update decision for a page event. The
// event's own type is advisory: the back-reference and the mapping store
// decide the real path, which is what makes replays idempotent.
func (s *Service) syncPage(ctx context.Context, event model.SyncEvent) error {
	page := &event.Page
	if page.ID == "" {
		s.logger.Warn("dropping event without page id", "event_type", event.Type)
		return nil
	}

	if issueKey, ok := s.backReference(page); ok {
		return s.updateIssue(ctx, page, issueKey)
	}

	mapping, err := s.mappings.Get(ctx, page.ID)
	if err == nil {
		return s.updateIssue(ctx, page, mapping.IssueKey)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up mapping for page %s: %w", page.ID, err)
	}

	return s.createIssue(ctx, page)
}

// backReference reads the issue-reference URL property and returns its
// issue key when it points into the configured project. Malformed or
// foreign references are logged and ignored, routing the page to the
// create path.
func (s *Service) backReference(page *model.Page) (string, bool) {
	prop, ok := page.Prop(s.cfg.Notion.IssueRefProperty)
	if !ok || prop.Empty() {
		return "", false
	}

	rawURL := prop.PlainText()
	ref, ok := crossref.ParseBrowseURL(rawURL)
	if !ok {
		s.logger.Warn("malformed issue reference, treating as unsynced",
			"page_id", page.ID, "url", rawURL)
		return "", false
	}

	if crossref.ProjectOf(ref.Key) != s.cfg.Jira.ProjectKey {
		s.logger.Warn("issue reference points outside project, treating as unsynced",
			"page_id", page.ID, "issue_key", ref.Key, "project_key", s.cfg.Jira.ProjectKey)
		return "", false
	}

	return ref.Key, true
}

// createIssue maps the page, creates the issue, persists the mapping,
// then runs the best-effort tail: links, back-reference, status.
func (s *Service) createIssue(ctx context.Context, page *model.Page) error {
	fields := s.mapper.Map(ctx, page)

	created, err := s.tracker.CreateIssue(ctx, s.cfg.Jira.ProjectID, fields)
	if err != nil {
		return fmt.Errorf("creating issue for page %s: %w", page.ID, err)
	}

	s.logger.Info("issue created",
		"page_id", page.ID, "issue_key", created.Key, "summary", fields.Summary)

	if err := s.mappings.Save(ctx, page.ID, created.Key); err != nil {
		// The issue exists now; surfacing the error would retry the
		// message and create a duplicate. Swallow it and still run the
		// write-back tail: the back-reference routes every later event
		// for this page to the update path, which heals the mapping.
		s.logger.Error("saving mapping after create",
			"page_id", page.ID, "issue_key", created.Key, "error", err)
	}

	s.finishSync(ctx, page, created.Key, fields, true)
	return nil
}

// updateIssue maps the page and overwrites the issue's mapped fields.
func (s *Service) updateIssue(ctx context.Context, page *model.Page, issueKey string) error {
	fields := s.mapper.Map(ctx, page)

	if err := s.tracker.UpdateIssue(ctx, issueKey, fields); err != nil {
		return fmt.Errorf("updating issue %s for page %s: %w", issueKey, page.ID, err)
	}

	s.logger.Info("issue updated", "page_id", page.ID, "issue_key", issueKey)

	if err := s.mappings.Touch(ctx, page.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Back-reference updates can predate the mapping store; heal it.
			if err := s.mappings.Save(ctx, page.ID, issueKey); err != nil {
				s.logger.Error("healing mapping after update",
					"page_id", page.ID, "issue_key", issueKey, "error", err)
			}
		} else {
			s.logger.Error("touching mapping",
				"page_id", page.ID, "issue_key", issueKey, "error", err)
		}
	}

	s.finishSync(ctx, page, issueKey, fields, false)
	return nil
}

// finishSync runs the post-sync tail. Everything here is best-effort:
// the issue write already succeeded, so failures are logged and never
// propagate into a retry that would duplicate work.
func (s *Service) finishSync(ctx context.Context, page *model.Page, issueKey string, fields model.IssueFields, created bool) {
	s.reconcileLinks(ctx, issueKey, fields)

	if created {
		browseURL := s.tracker.BrowseURL(issueKey)
		if err := s.worksp.SetIssueRef(ctx, page.ID, s.cfg.Notion.IssueRefProperty, browseURL); err != nil {
			s.logger.Error("writing issue reference back",
				"page_id", page.ID, "issue_key", issueKey, "error", err)
		}
		if err := s.worksp.SetSyncedStatus(ctx, page.ID, s.cfg.Notion.SyncedStatusName); err != nil {
			s.logger.Error("writing synced status back",
				"page_id", page.ID, "issue_key", issueKey, "error", err)
		}
	}
}

// handleReverse acknowledges tracker-side updates. Writing tracker state
// back into the workspace is out of scope; the reverse mapping is
// resolved and logged so operators can trace the event.
func (s *Service) handleReverse(ctx context.Context, event model.SyncEvent) error {
	if event.IssueKey == "" {
		s.logger.Warn("dropping reverse event without issue key")
		return nil
	}

	mapping, err := s.mappings.GetReverse(ctx, event.IssueKey)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("reverse event for unmapped issue", "issue_key", event.IssueKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up reverse mapping for %s: %w", event.IssueKey, err)
	}

	s.logger.Info("reverse sync acknowledged (workspace write-back disabled)",
		"issue_key", event.IssueKey, "page_id", mapping.PageID)
	return nil
}
