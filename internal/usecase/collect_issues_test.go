package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/issue-tally/internal/domain"
	"github.com/runoshun/issue-tally/internal/testutil"
	"github.com/runoshun/issue-tally/internal/usecase"
)

var labelFilter = domain.SearchFilter{Repo: "osrf/ros2_test_cases", Label: "jazzy"}

func threePages() []*domain.Page {
	return []*domain.Page{
		{
			Issues:      []domain.Issue{testutil.NewIssue(1, true, "A")},
			EndCursor:   "c1",
			HasNextPage: true,
		},
		{
			Issues:      []domain.Issue{testutil.NewIssue(2, false, "B"), testutil.NewIssue(3, true, "A", "B")},
			EndCursor:   "c2",
			HasNextPage: true,
		},
		{
			Issues:      []domain.Issue{testutil.NewIssue(4, false)},
			EndCursor:   "c3",
			HasNextPage: false,
		},
	}
}

func TestCollectIssues_Execute(t *testing.T) {
	t.Run("visits every page once in order", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: threePages()}
		uc := usecase.NewCollectIssues(searcher, nil)

		var visited []string
		out, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{
			Filter: labelFilter,
			OnPage: func(page *domain.Page) error {
				visited = append(visited, page.EndCursor)
				return nil
			},
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2", "c3"}, visited)
		require.Len(t, searcher.Queries, 3)
		require.Len(t, out.Envelopes, 3)
		numbers := make([]int, 0, len(out.Issues))
		for _, issue := range out.Issues {
			numbers = append(numbers, issue.Number)
		}
		assert.Equal(t, []int{1, 2, 3, 4}, numbers)
	})

	t.Run("next cursor is the previous end cursor", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: threePages()}
		uc := usecase.NewCollectIssues(searcher, nil)

		_, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})
		require.NoError(t, err)

		require.Len(t, searcher.Queries, 3)
		assert.Contains(t, searcher.Queries[0], "after: null,")
		assert.NotContains(t, searcher.Queries[0], `after: "`)
		assert.Contains(t, searcher.Queries[1], `after: "c1",`)
		assert.Contains(t, searcher.Queries[2], `after: "c2",`)
	})

	t.Run("single page stops without following cursor", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: []*domain.Page{
			{Issues: []domain.Issue{testutil.NewIssue(1, true)}, EndCursor: "c1"},
		}}
		uc := usecase.NewCollectIssues(searcher, nil)

		out, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})

		require.NoError(t, err)
		assert.Len(t, searcher.Queries, 1)
		assert.Len(t, out.Issues, 1)
	})

	t.Run("empty result", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: []*domain.Page{{}}}
		uc := usecase.NewCollectIssues(searcher, nil)

		out, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})

		require.NoError(t, err)
		assert.Empty(t, out.Issues)
		assert.Len(t, out.Envelopes, 1)
	})

	t.Run("repeated cursor terminates", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: []*domain.Page{
			{EndCursor: "c1", HasNextPage: true},
			{EndCursor: "c1", HasNextPage: true},
			{EndCursor: "c2"},
		}}
		uc := usecase.NewCollectIssues(searcher, nil)

		_, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})

		assert.ErrorIs(t, err, domain.ErrCursorNotAdvancing)
		assert.Len(t, searcher.Queries, 2)
	})

	t.Run("missing cursor terminates", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: []*domain.Page{{HasNextPage: true}}}
		uc := usecase.NewCollectIssues(searcher, nil)

		_, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})

		assert.ErrorIs(t, err, domain.ErrCursorNotAdvancing)
	})

	t.Run("searcher error discards progress", func(t *testing.T) {
		fatal := errors.New("decode failed")
		searcher := &testutil.MockSearcher{Pages: threePages(), Err: fatal, ErrAt: 2}
		uc := usecase.NewCollectIssues(searcher, nil)

		out, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})

		assert.ErrorIs(t, err, fatal)
		assert.Nil(t, out)
	})

	t.Run("invalid filter makes no request", func(t *testing.T) {
		searcher := &testutil.MockSearcher{}
		uc := usecase.NewCollectIssues(searcher, nil)

		_, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{
			Filter: domain.SearchFilter{Repo: "not-a-repo", Label: "jazzy"},
		})

		assert.ErrorIs(t, err, domain.ErrInvalidRepo)
		assert.Empty(t, searcher.Queries)
	})

	t.Run("page callback error stops the run", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: threePages()}
		uc := usecase.NewCollectIssues(searcher, nil)
		stop := errors.New("stop")

		_, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{
			Filter: labelFilter,
			OnPage: func(*domain.Page) error { return stop },
		})

		assert.ErrorIs(t, err, stop)
		assert.Len(t, searcher.Queries, 1)
	})

	t.Run("logs run summary", func(t *testing.T) {
		searcher := &testutil.MockSearcher{Pages: threePages()}
		logger := &testutil.MockLogger{}
		uc := usecase.NewCollectIssues(searcher, logger)

		_, err := uc.Execute(context.Background(), usecase.CollectIssuesInput{Filter: labelFilter})

		require.NoError(t, err)
		assert.True(t, testutil.Contains(logger.ByLevel("INFO"), "fetched 4 issues in 3 pages"))
		assert.Len(t, logger.ByLevel("DEBUG"), 3)
	})
}
