package jira_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notion2jira/internal/jira"
	"github.com/nhle/notion2jira/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *jira.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return jira.NewClient(srv.URL, "svc", "secret", 5*time.Second, 2)
}

func TestCreateIssueSendsMappedFields(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/api/2/issue", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "svc", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(jira.CreatedIssue{ID: "10042", Key: "SMBNET-123"})
	}))

	created, err := c.CreateIssue(context.Background(), "13904", model.IssueFields{
		IssueTypeID:  "10001",
		Summary:      "Support WPA3",
		Description:  "## 需求说明\ndetails",
		PriorityID:   "1",
		Assignee:     "zhujiayin@tp-link.com.hk",
		FixVersionID: "14577",
	})
	require.NoError(t, err)
	assert.Equal(t, "SMBNET-123", created.Key)

	fields := got["fields"].(map[string]interface{})
	assert.Equal(t, "Support WPA3", fields["summary"])
	assert.Equal(t, "13904", fields["project"].(map[string]interface{})["id"])
	assert.Equal(t, "1", fields["priority"].(map[string]interface{})["id"])
	assert.Equal(t, "zhujiayin@tp-link.com.hk", fields["assignee"].(map[string]interface{})["name"])
	versions := fields["fixVersions"].([]interface{})
	require.Len(t, versions, 1)
	assert.Equal(t, "14577", versions[0].(map[string]interface{})["id"])
	// No empty optional fields leak into the payload.
	assert.NotContains(t, fields, "reporter")
}

func TestUpdateIssueOmitsCreateOnlyFields(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/rest/api/2/issue/SMBNET-123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.UpdateIssue(context.Background(), "SMBNET-123", model.IssueFields{
		Summary:    "Updated summary",
		PriorityID: "3",
	})
	require.NoError(t, err)

	fields := got["fields"].(map[string]interface{})
	assert.Equal(t, "Updated summary", fields["summary"])
	assert.NotContains(t, fields, "project")
	assert.NotContains(t, fields, "issuetype")
}

func TestUpsertRemoteLinkReportsCreation(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		w.Write([]byte(`{}`))
	}))

	link := jira.RemoteLink{
		GlobalID: "notion2jira:abc",
		Object:   jira.RemoteLinkObject{URL: "https://notion.so/p1", Title: "original"},
	}

	created, err := c.UpsertRemoteLink(context.Background(), "SMBNET-1", link)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.UpsertRemoteLink(context.Background(), "SMBNET-1", link)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestFindUserByEmailMatchesCaseInsensitively(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]jira.User{
			{Name: "other", EmailAddress: "other@example.com"},
			{Name: "lu", EmailAddress: "Lu@Example.COM"},
		})
	}))

	user, err := c.FindUserByEmail(context.Background(), "lu@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "lu", user.Name)

	none, err := c.FindUserByEmail(context.Background(), "missing@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestClientRetriesOn429(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(jira.Myself{Name: "svc", Active: true})
	}))

	me, err := c.Myself(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "svc", me.Name)
	assert.Equal(t, 2, calls)
}

func TestClientSurfacesJiraErrorMessages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(jira.ErrorResponse{
			Errors: map[string]string{"summary": "Summary is required."},
		})
	}))

	_, err := c.CreateIssue(context.Background(), "13904", model.IssueFields{IssueTypeID: "10001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Summary is required.")
}

func TestLinkIssuesToleratesDuplicate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(jira.ErrorResponse{
			ErrorMessages: []string{"An issue link already exists between these issues."},
		})
	}))

	err := c.LinkIssues(context.Background(), "SMBNET-1", "PROJ-2")
	assert.NoError(t, err)
}
