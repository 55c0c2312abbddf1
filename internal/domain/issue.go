package domain

import (
	"encoding/json"
	"time"
)

// ReferenceKind identifies what kind of item cross-referenced an issue.
type ReferenceKind string

// Reference kinds returned by the timeline of an issue.
const (
	ReferencePullRequest ReferenceKind = "PullRequest"
	ReferenceIssue       ReferenceKind = "Issue"
)

// CrossReference is a pull request or issue that mentions an issue.
// Fields are ordered to minimize memory padding.
type CrossReference struct {
	URL               string
	Kind              ReferenceKind
	Merged            bool // Only meaningful for pull requests
	Closed            bool // Only meaningful for issues
	IsCrossRepository bool
}

// CrossReferences holds the cross-referencing timeline items of an issue.
// TotalCount may exceed len(Items) since only the first page is fetched.
type CrossReferences struct {
	Items      []CrossReference
	TotalCount int
}

// MergedPullRequests returns how many referencing pull requests were merged.
func (c CrossReferences) MergedPullRequests() int {
	n := 0
	for _, ref := range c.Items {
		if ref.Kind == ReferencePullRequest && ref.Merged {
			n++
		}
	}
	return n
}

// PullRequests returns how many referencing items are pull requests.
func (c CrossReferences) PullRequests() int {
	n := 0
	for _, ref := range c.Items {
		if ref.Kind == ReferencePullRequest {
			n++
		}
	}
	return n
}

// Issue is a single issue returned by the search API.
// Fields are ordered to minimize memory padding.
type Issue struct {
	CreatedAt       time.Time
	ID              string
	Author          string   // Empty when the author account was deleted
	Assignees       []string // Assignee logins in API order
	CrossReferences CrossReferences
	Number          int
	Closed          bool
}

// IsAssigned reports whether the issue has at least one assignee.
func (i *Issue) IsAssigned() bool {
	return len(i.Assignees) > 0
}

// Page is one page of search results.
type Page struct {
	EndCursor   string
	Issues      []Issue
	HasNextPage bool
}

// Envelope is a successful search response: the body exactly as received
// plus the page decoded from it.
type Envelope struct {
	Page *Page
	Raw  json.RawMessage
}
