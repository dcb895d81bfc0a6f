package mapping

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/nhle/notion2jira/internal/jira"
	"github.com/nhle/notion2jira/internal/model"
)

// GlobalIDPrefix namespaces every remote link this service manages. The
// link reconciler only ever touches links carrying this prefix; operator
// or plugin links on the same issue are left alone.
const GlobalIDPrefix = "notion2jira:"

// linkApplication identifies the service in the tracker's link UI.
var linkApplication = map[string]string{
	"type": "com.notion.sync",
	"name": "Notion",
}

// relationships maps link categories to the relationship label shown on
// the issue.
var relationships = map[string]string{
	model.LinkCategoryOriginal: "原始需求",
	model.LinkCategoryDoc:      "相关文档",
	model.LinkCategoryOther:    "相关链接",
}

// StableGlobalID derives the deterministic globalId of a remote link
// from its URL and category. Re-syncing the same page always produces
// the same ids, which is what makes link upserts idempotent.
func StableGlobalID(url, category string) string {
	sum := sha1.Sum([]byte(url + "|" + category))
	return GlobalIDPrefix + hex.EncodeToString(sum[:])
}

// BuildRemoteLink converts a mapped link into the tracker's wire form.
func BuildRemoteLink(link model.RemoteLink) jira.RemoteLink {
	relationship := relationships[link.Category]
	if relationship == "" {
		relationship = relationships[model.LinkCategoryOther]
	}

	return jira.RemoteLink{
		GlobalID:     StableGlobalID(link.URL, link.Category),
		Application:  linkApplication,
		Relationship: relationship,
		Object: jira.RemoteLinkObject{
			URL:   link.URL,
			Title: link.Title,
		},
	}
}
