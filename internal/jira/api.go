package jira

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nhle/notion2jira/internal/model"
)

// CreateIssue creates a new issue from mapped fields and returns its
// key, id, and API self link.
func (c *Client) CreateIssue(ctx context.Context, projectID string, f model.IssueFields) (*CreatedIssue, error) {
	req := createIssueRequest{
		Fields: createIssueFields{
			Project:     idRef{ID: projectID},
			IssueType:   idRef{ID: f.IssueTypeID},
			Summary:     f.Summary,
			Description: f.Description,
		},
	}
	if f.PriorityID != "" {
		req.Fields.Priority = &idRef{ID: f.PriorityID}
	}
	if f.Assignee != "" {
		req.Fields.Assignee = &nameRef{Name: f.Assignee}
	}
	if f.Reporter != "" {
		req.Fields.Reporter = &nameRef{Name: f.Reporter}
	}
	if f.FixVersionID != "" {
		req.Fields.FixVersions = []idRef{{ID: f.FixVersionID}}
	}

	var created CreatedIssue
	if _, err := c.post(ctx, "/rest/api/2/issue", req, &created); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	return &created, nil
}

// UpdateIssue overwrites the mapped fields of an existing issue. Project
// and issue type are create-only and never touched here.
func (c *Client) UpdateIssue(ctx context.Context, issueKey string, f model.IssueFields) error {
	req := updateIssueRequest{
		Fields: updateIssueFields{
			Summary:     f.Summary,
			Description: f.Description,
		},
	}
	if f.PriorityID != "" {
		req.Fields.Priority = &idRef{ID: f.PriorityID}
	}
	if f.Assignee != "" {
		req.Fields.Assignee = &nameRef{Name: f.Assignee}
	}
	if f.FixVersionID != "" {
		req.Fields.FixVersions = []idRef{{ID: f.FixVersionID}}
	}

	if err := c.put(ctx, "/rest/api/2/issue/"+escape(issueKey), req); err != nil {
		return fmt.Errorf("updating issue %s: %w", issueKey, err)
	}
	return nil
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (*Issue, error) {
	var issue Issue
	if err := c.get(ctx, "/rest/api/2/issue/"+escape(issueKey), &issue); err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", issueKey, err)
	}
	return &issue, nil
}

// ProjectVersions lists all versions of a project.
func (c *Client) ProjectVersions(ctx context.Context, projectKey string) ([]Version, error) {
	var versions []Version
	path := "/rest/api/2/project/" + escape(projectKey) + "/versions"
	if err := c.get(ctx, path, &versions); err != nil {
		return nil, fmt.Errorf("listing versions for %s: %w", projectKey, err)
	}
	return versions, nil
}

// SearchUsers queries the user directory.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	var users []User
	path := "/rest/api/2/user/search?username=" + escape(query)
	if err := c.get(ctx, path, &users); err != nil {
		return nil, fmt.Errorf("searching users %q: %w", query, err)
	}
	return users, nil
}

// FindUserByEmail searches the user directory and matches the email
// address case-insensitively. Returns nil when no user matches.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := c.SearchUsers(ctx, email)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if strings.EqualFold(u.EmailAddress, email) {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

// Myself validates the connection and returns the authenticated user.
func (c *Client) Myself(ctx context.Context) (*Myself, error) {
	var me Myself
	if err := c.get(ctx, "/rest/api/2/myself", &me); err != nil {
		return nil, fmt.Errorf("validating jira connection: %w", err)
	}
	return &me, nil
}

// RemoteLinks lists all remote links of an issue.
func (c *Client) RemoteLinks(ctx context.Context, issueKey string) ([]RemoteLink, error) {
	var links []RemoteLink
	path := "/rest/api/2/issue/" + escape(issueKey) + "/remotelink"
	if err := c.get(ctx, path, &links); err != nil {
		return nil, fmt.Errorf("listing remote links for %s: %w", issueKey, err)
	}
	return links, nil
}

// UpsertRemoteLink creates or updates a remote link keyed by its
// globalId. It reports whether a new link was created (201) as opposed
// to an existing one updated (200).
func (c *Client) UpsertRemoteLink(ctx context.Context, issueKey string, link RemoteLink) (bool, error) {
	path := "/rest/api/2/issue/" + escape(issueKey) + "/remotelink"
	status, err := c.post(ctx, path, link, nil)
	if err != nil {
		return false, fmt.Errorf("upserting remote link on %s: %w", issueKey, err)
	}
	return status == http.StatusCreated, nil
}

// DeleteRemoteLink removes a remote link by its internal id.
func (c *Client) DeleteRemoteLink(ctx context.Context, issueKey string, linkID int64) error {
	path := fmt.Sprintf("/rest/api/2/issue/%s/remotelink/%d", escape(issueKey), linkID)
	if err := c.delete(ctx, path); err != nil {
		return fmt.Errorf("deleting remote link %d on %s: %w", linkID, issueKey, err)
	}
	return nil
}

// relatesLinkTypeID is the "Relates" issue link type on Jira Server.
const relatesLinkTypeID = "10003"

// LinkIssues relates two issues. An already-existing link reported by
// the server is treated as success.
func (c *Client) LinkIssues(ctx context.Context, inwardKey, outwardKey string) error {
	req := issueLinkRequest{
		Type:         idRef{ID: relatesLinkTypeID},
		InwardIssue:  keyRef{Key: inwardKey},
		OutwardIssue: keyRef{Key: outwardKey},
	}

	if _, err := c.post(ctx, "/rest/api/2/issueLink", req, nil); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("linking %s to %s: %w", inwardKey, outwardKey, err)
	}
	return nil
}
