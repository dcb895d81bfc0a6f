package sync

import (
	"context"
	"strings"

	"github.com/nhle/notion2jira/internal/mapping"
	"github.com/nhle/notion2jira/internal/model"
)

// reconcileLinks converges the issue's managed remote links onto the
// desired set and relates cross-referenced issues. Only links whose
// globalId carries the service prefix are ever touched; everything is
// best-effort and idempotent, so re-running after a partial failure
// finishes the job.
func (s *Service) reconcileLinks(ctx context.Context, issueKey string, fields model.IssueFields) {
	desired := make(map[string]model.RemoteLink, len(fields.RemoteLinks))
	for _, link := range fields.RemoteLinks {
		desired[mapping.StableGlobalID(link.URL, link.Category)] = link
	}

	upserts := 0
	for _, link := range fields.RemoteLinks {
		if _, err := s.tracker.UpsertRemoteLink(ctx, issueKey, mapping.BuildRemoteLink(link)); err != nil {
			s.logger.Error("upserting remote link",
				"issue_key", issueKey, "url", link.URL, "error", err)
			continue
		}
		upserts++
	}

	existing, err := s.tracker.RemoteLinks(ctx, issueKey)
	if err != nil {
		s.logger.Error("listing remote links", "issue_key", issueKey, "error", err)
	} else {
		deletes := 0
		for _, link := range existing {
			if !strings.HasPrefix(link.GlobalID, mapping.GlobalIDPrefix) {
				continue
			}
			if _, ok := desired[link.GlobalID]; ok {
				continue
			}
			if err := s.tracker.DeleteRemoteLink(ctx, issueKey, link.ID); err != nil {
				s.logger.Error("deleting stale remote link",
					"issue_key", issueKey, "link_id", link.ID, "error", err)
				continue
			}
			deletes++
		}
		if upserts > 0 || deletes > 0 {
			s.logger.Info("remote links reconciled",
				"issue_key", issueKey, "upserts", upserts, "deletes", deletes)
		}
	}

	for _, key := range fields.CrossIssueKeys {
		if key == issueKey {
			continue
		}
		if err := s.tracker.LinkIssues(ctx, issueKey, key); err != nil {
			s.logger.Error("linking cross-referenced issue",
				"issue_key", issueKey, "target_key", key, "error", err)
		}
	}
}
