package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultAPIVersion = "2022-06-28"

// Client is a thin HTTP client for the Notion API. It fetches pages for
// the version library and writes back sync results (the issue reference
// URL and the synced status).
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a new Notion API client with Bearer token auth.
func NewClient(token, apiVersion string, timeout time.Duration) *Client {
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    "https://api.notion.com/v1",
		token:      token,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do executes a JSON request against the API.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf(
				"notion API error (%d) on %s %s: %s",
				resp.StatusCode, method, path, apiErr.Message,
			)
		}
		return fmt.Errorf(
			"unexpected status %d on %s %s: %s",
			resp.StatusCode, method, path, string(respBody),
		)
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

// GetPage fetches a single page with its raw properties.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, &page); err != nil {
		return nil, fmt.Errorf("getting page %s: %w", pageID, err)
	}
	return &page, nil
}

// QueryDatabase pages through all records of a database. Used to refresh
// the version library cache.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string) ([]Page, error) {
	var pages []Page
	cursor := ""

	for {
		req := map[string]interface{}{"page_size": 100}
		if cursor != "" {
			req["start_cursor"] = cursor
		}

		var result queryResponse
		path := "/databases/" + databaseID + "/query"
		if err := c.do(ctx, http.MethodPost, path, req, &result); err != nil {
			return nil, fmt.Errorf("querying database %s: %w", databaseID, err)
		}

		pages = append(pages, result.Results...)
		if !result.HasMore || result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return pages, nil
}

// UpdatePageProperties patches the given properties on a page.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, properties map[string]interface{}) error {
	body := map[string]interface{}{"properties": properties}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("updating page %s: %w", pageID, err)
	}
	return nil
}

// SetIssueRef writes the issue browse URL into the back-reference url
// property. The same property is what routes later events to the update
// path.
func (c *Client) SetIssueRef(ctx context.Context, pageID, propertyName, browseURL string) error {
	return c.UpdatePageProperties(ctx, pageID, map[string]interface{}{
		propertyName: map[string]interface{}{"url": browseURL},
	})
}

// SetSyncedStatus moves the page's Status property to the synced label.
func (c *Client) SetSyncedStatus(ctx context.Context, pageID, statusName string) error {
	return c.UpdatePageProperties(ctx, pageID, map[string]interface{}{
		"Status": map[string]interface{}{
			"status": map[string]interface{}{"name": statusName},
		},
	})
}

// PageURL derives the public page URL from a page id when the API object
// did not carry one.
func PageURL(pageID string) string {
	return "https://www.notion.so/" + strings.ReplaceAll(pageID, "-", "")
}
