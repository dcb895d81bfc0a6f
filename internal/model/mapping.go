package model

import "time"

// SyncMapping records that a workspace page has a counterpart issue.
// Its existence is what makes creation idempotent: once saved, replays
// of the same create event route to the update path.
type SyncMapping struct {
	PageID    string    `json:"notion_page_id"`
	IssueKey  string    `json:"jira_issue_key"`
	CreatedAt time.Time `json:"created_at"`
	LastSync  time.Time `json:"last_sync"`
}
