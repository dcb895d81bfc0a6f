package model

// Remote link categories, used to derive stable link identifiers.
const (
	LinkCategoryOriginal = "original"
	LinkCategoryDoc      = "doc"
	LinkCategoryOther    = "other"
)

// RemoteLink is one outbound reference a synced issue should carry.
type RemoteLink struct {
	URL      string
	Title    string
	Category string
}

// IssueFields is the mapped form of a page, ready to send to the tracker.
// Project and IssueType apply on create only; empty Priority, Assignee,
// Reporter, or FixVersionID mean the field is omitted from the request.
type IssueFields struct {
	ProjectKey   string
	IssueTypeID  string
	Summary      string
	Description  string
	PriorityID   string
	Assignee     string
	Reporter     string
	FixVersionID string

	// Status is the mapped destination status name. It is recorded for
	// logging only; workflow transitions are out of scope.
	Status string

	// RemoteLinks and CrossIssueKeys are side channels reconciled after
	// the issue itself is created or updated.
	RemoteLinks    []RemoteLink
	CrossIssueKeys []string
}
