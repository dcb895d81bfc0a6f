package notion

import "encoding/json"

// Page is a page object as returned by the API, with properties kept raw
// for the shared property decoder.
type Page struct {
	ID             string                     `json:"id"`
	URL            string                     `json:"url"`
	LastEditedTime string                     `json:"last_edited_time"`
	Properties     map[string]json.RawMessage `json:"properties"`
}

// queryResponse is one page of database query results.
type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// ErrorResponse is the standard Notion API error format.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
