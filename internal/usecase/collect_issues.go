package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/issue-tally/internal/domain"
)

// CollectIssuesInput contains the parameters for collecting issues.
type CollectIssuesInput struct {
	// OnPage, when set, receives each page before the next one is requested.
	OnPage func(page *domain.Page) error
	Filter domain.SearchFilter
}

// CollectIssuesOutput contains every page of a search.
type CollectIssuesOutput struct {
	Envelopes []*domain.Envelope // Responses in request order
	Issues    []domain.Issue     // Issues of all pages in order
}

// CollectIssues is the use case that follows search cursors until the
// last page. Requests are strictly sequential: each cursor is only known
// once the previous response has arrived.
type CollectIssues struct {
	searcher domain.IssueSearcher
	logger   domain.Logger
}

// NewCollectIssues creates a new CollectIssues use case.
func NewCollectIssues(searcher domain.IssueSearcher, logger domain.Logger) *CollectIssues {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &CollectIssues{
		searcher: searcher,
		logger:   logger,
	}
}

// Execute fetches every page matching the filter.
func (uc *CollectIssues) Execute(ctx context.Context, in CollectIssuesInput) (*CollectIssuesOutput, error) {
	if err := in.Filter.Validate(); err != nil {
		return nil, err
	}

	out := &CollectIssuesOutput{}
	seen := make(map[string]bool)
	cursor := domain.StartCursor()

	for {
		query, err := domain.BuildSearchQuery(cursor, in.Filter)
		if err != nil {
			return nil, err
		}

		envelope, err := uc.searcher.Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search page %d: %w", len(out.Envelopes)+1, err)
		}
		page := envelope.Page
		out.Envelopes = append(out.Envelopes, envelope)
		out.Issues = append(out.Issues, page.Issues...)
		uc.logger.Debug("search", fmt.Sprintf("page %d: %d issues (after %s)", len(out.Envelopes), len(page.Issues), cursor))

		if in.OnPage != nil {
			if err := in.OnPage(page); err != nil {
				return nil, err
			}
		}

		if !page.HasNextPage {
			break
		}
		if page.EndCursor == "" || seen[page.EndCursor] {
			return nil, fmt.Errorf("%w: page %d returned %q", domain.ErrCursorNotAdvancing, len(out.Envelopes), page.EndCursor)
		}
		seen[page.EndCursor] = true
		cursor = domain.NewCursor(page.EndCursor)
	}

	uc.logger.Info("search", fmt.Sprintf("fetched %d issues in %d pages", len(out.Issues), len(out.Envelopes)))
	return out, nil
}
