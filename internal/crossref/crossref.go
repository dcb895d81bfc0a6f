package crossref

import (
	"net/url"
	"regexp"
	"strings"
)

// jiraKeyPattern matches Jira issue keys (e.g., PROJ-123, ABC-1).
var jiraKeyPattern = regexp.MustCompile(`([A-Z][A-Z0-9]+-\d+)`)

// ExtractJiraKeys extracts all Jira issue key matches from text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractJiraKeys(text string) []string {
	matches := jiraKeyPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}

// PartitionLinks splits candidate link strings into issue keys and plain
// URLs. An entry counts as an issue reference when it contains a key,
// either bare ("PROJ-12") or inside a browse URL; everything else is
// returned as-is for generic link handling.
func PartitionLinks(entries []string) (issueKeys, others []string) {
	seen := make(map[string]bool)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if keys := ExtractJiraKeys(entry); len(keys) > 0 {
			for _, key := range keys {
				if !seen[key] {
					seen[key] = true
					issueKeys = append(issueKeys, key)
				}
			}
			continue
		}

		others = append(others, entry)
	}
	return issueKeys, others
}

// IssueRef is a parsed back-reference to a tracker issue.
type IssueRef struct {
	Host string
	Key  string
}

// ParseBrowseURL parses a Jira browse URL ("http://host/browse/KEY")
// into its host and issue key. The boolean reports whether the URL is a
// well-formed browse link with a valid key.
func ParseBrowseURL(rawURL string) (IssueRef, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return IssueRef{}, false
	}

	const prefix = "/browse/"
	if !strings.HasPrefix(u.Path, prefix) {
		return IssueRef{}, false
	}

	key := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
	if !jiraKeyPattern.MatchString(key) || jiraKeyPattern.FindString(key) != key {
		return IssueRef{}, false
	}

	return IssueRef{Host: u.Host, Key: key}, true
}

// ProjectOf returns the project prefix of an issue key ("PROJ-12" →
// "PROJ"), or "" when the key is malformed.
func ProjectOf(issueKey string) string {
	idx := strings.LastIndex(issueKey, "-")
	if idx <= 0 {
		return ""
	}
	return issueKey[:idx]
}
