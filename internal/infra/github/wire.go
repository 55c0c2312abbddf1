package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/runoshun/issue-tally/internal/domain"
)

// Wire types mirror the JSON shape of the search query document.

type wireResponse struct {
	Data   *wireData   `json:"data"`
	Errors []wireError `json:"errors"`
}

type wireData struct {
	Search *wireSearch `json:"search"`
}

type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type wireSearch struct {
	PageInfo wirePageInfo `json:"pageInfo"`
	Nodes    []wireIssue  `json:"nodes"`
}

type wirePageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type wireActor struct {
	Login string `json:"login"`
}

type wireIssue struct {
	CreatedAt     time.Time     `json:"createdAt"`
	Author        *wireActor    `json:"author"`
	TimelineItems *wireTimeline `json:"timelineItems"`
	ID            string        `json:"id"`
	Assignees     wireAssignees `json:"assignees"`
	Number        int           `json:"number"`
	Closed        bool          `json:"closed"`
}

type wireAssignees struct {
	Nodes []wireActor `json:"nodes"`
}

type wireTimeline struct {
	Nodes      []wireTimelineItem `json:"nodes"`
	TotalCount int                `json:"totalCount"`
}

type wireTimelineItem struct {
	Source            *wireSource `json:"source"`
	IsCrossRepository bool        `json:"isCrossRepository"`
}

type wireSource struct {
	Merged   *bool  `json:"merged"`
	Closed   *bool  `json:"closed"`
	Typename string `json:"__typename"`
	URL      string `json:"url"`
}

// decodeEnvelope parses a 200 response body. Bodies that are not JSON,
// carry no search result or report GraphQL errors (even alongside a
// partial result) wrap domain.ErrMalformedResponse.
func decodeEnvelope(body []byte) (*domain.Envelope, error) {
	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedResponse, joinErrors(resp.Errors))
	}
	if resp.Data == nil || resp.Data.Search == nil {
		return nil, fmt.Errorf("%w: no data.search in response", domain.ErrMalformedResponse)
	}

	search := resp.Data.Search
	page := &domain.Page{
		HasNextPage: search.PageInfo.HasNextPage,
		Issues:      make([]domain.Issue, 0, len(search.Nodes)),
	}
	if search.PageInfo.EndCursor != nil {
		page.EndCursor = *search.PageInfo.EndCursor
	}
	for i := range search.Nodes {
		node := &search.Nodes[i]
		// Non-issue results match no fragment and decode empty.
		if node.ID == "" {
			continue
		}
		page.Issues = append(page.Issues, node.toDomain())
	}

	return &domain.Envelope{
		Raw:  json.RawMessage(body),
		Page: page,
	}, nil
}

func (w *wireIssue) toDomain() domain.Issue {
	issue := domain.Issue{
		ID:        w.ID,
		Number:    w.Number,
		CreatedAt: w.CreatedAt,
		Closed:    w.Closed,
	}
	if w.Author != nil {
		issue.Author = w.Author.Login
	}
	for _, a := range w.Assignees.Nodes {
		issue.Assignees = append(issue.Assignees, a.Login)
	}
	if w.TimelineItems != nil {
		issue.CrossReferences.TotalCount = w.TimelineItems.TotalCount
		for _, item := range w.TimelineItems.Nodes {
			if item.Source == nil || item.Source.URL == "" {
				continue
			}
			issue.CrossReferences.Items = append(issue.CrossReferences.Items, item.toDomain())
		}
	}
	return issue
}

func (w *wireTimelineItem) toDomain() domain.CrossReference {
	ref := domain.CrossReference{
		URL:               w.Source.URL,
		IsCrossRepository: w.IsCrossRepository,
	}
	switch {
	case w.Source.Typename == string(domain.ReferencePullRequest), w.Source.Merged != nil:
		ref.Kind = domain.ReferencePullRequest
	default:
		ref.Kind = domain.ReferenceIssue
	}
	if w.Source.Merged != nil {
		ref.Merged = *w.Source.Merged
	}
	if w.Source.Closed != nil {
		ref.Closed = *w.Source.Closed
	}
	return ref
}

func joinErrors(errs []wireError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Type != "" {
			msgs = append(msgs, e.Type+": "+e.Message)
			continue
		}
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
