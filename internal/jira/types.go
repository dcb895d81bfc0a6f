package jira

// ErrorResponse is the standard Jira error response format.
type ErrorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// CreatedIssue is the response from POST /rest/api/2/issue.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Issue represents a single Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the fields of a Jira issue relevant to sync.
type IssueFields struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Assignee    *User     `json:"assignee,omitempty"`
	Reporter    *User     `json:"reporter,omitempty"`
	FixVersions []Version `json:"fixVersions,omitempty"`
	Updated     string    `json:"updated,omitempty"`
}

// Status represents the status of a Jira issue.
type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Priority represents the priority level of a Jira issue.
type Priority struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// User represents a Jira user.
type User struct {
	Key          string `json:"key,omitempty"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active,omitempty"`
}

// Version represents a project version (fix version).
type Version struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Released bool   `json:"released"`
	Archived bool   `json:"archived"`
}

// Myself is the response from GET /rest/api/2/myself.
type Myself struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

// idRef references an entity by id in request payloads.
type idRef struct {
	ID string `json:"id"`
}

// nameRef references a user by name in request payloads.
type nameRef struct {
	Name string `json:"name"`
}

// createIssueRequest is the payload of POST /rest/api/2/issue.
type createIssueRequest struct {
	Fields createIssueFields `json:"fields"`
}

type createIssueFields struct {
	Project     idRef    `json:"project"`
	IssueType   idRef    `json:"issuetype"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Priority    *idRef   `json:"priority,omitempty"`
	Assignee    *nameRef `json:"assignee,omitempty"`
	Reporter    *nameRef `json:"reporter,omitempty"`
	FixVersions []idRef  `json:"fixVersions,omitempty"`
}

// updateIssueRequest is the payload of PUT /rest/api/2/issue/{key}.
type updateIssueRequest struct {
	Fields updateIssueFields `json:"fields"`
}

type updateIssueFields struct {
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Priority    *idRef   `json:"priority,omitempty"`
	Assignee    *nameRef `json:"assignee,omitempty"`
	FixVersions []idRef  `json:"fixVersions,omitempty"`
}

// RemoteLink is a remote issue link as stored by Jira. GlobalID is the
// dedup handle: posting a link with an existing globalId updates it in
// place instead of creating a duplicate.
type RemoteLink struct {
	ID       int64            `json:"id,omitempty"`
	GlobalID string           `json:"globalId,omitempty"`
	Object   RemoteLinkObject `json:"object"`

	Application  map[string]string `json:"application,omitempty"`
	Relationship string            `json:"relationship,omitempty"`
}

// RemoteLinkObject is the target of a remote link.
type RemoteLinkObject struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// issueLinkRequest is the payload of POST /rest/api/2/issueLink.
type issueLinkRequest struct {
	Type         idRef  `json:"type"`
	InwardIssue  keyRef `json:"inwardIssue"`
	OutwardIssue keyRef `json:"outwardIssue"`
}

type keyRef struct {
	Key string `json:"key"`
}
