package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects how issues are aggregated.
type Mode string

// Aggregation modes.
const (
	// ModeClosed tallies assignees of closed issues and reports the closed ratio.
	ModeClosed Mode = "closed"
	// ModeAssignment tallies assignees of open issues and reports the assigned ratio.
	ModeAssignment Mode = "assignment"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeClosed || m == ModeAssignment
}

// Tally maps assignee logins to the number of matching issues.
type Tally struct {
	counts map[string]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Inc adds one issue for login.
func (t *Tally) Inc(login string) {
	t.counts[login]++
}

// Count returns the count for login.
func (t *Tally) Count(login string) int {
	return t.counts[login]
}

// Len returns the number of distinct logins.
func (t *Tally) Len() int {
	return len(t.counts)
}

// Counts returns a copy of the underlying map.
func (t *Tally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// TallyEntry is one ranked contributor.
type TallyEntry struct {
	Login string `json:"login" yaml:"login"`
	Rank  int    `json:"rank" yaml:"rank"`
	Count int    `json:"count" yaml:"count"`
}

// Ranked returns the entries sorted by count, highest first.
// Equal counts are ordered by login, reverse lexicographically.
func (t *Tally) Ranked() []TallyEntry {
	entries := make([]TallyEntry, 0, len(t.counts))
	for login, count := range t.counts {
		entries = append(entries, TallyEntry{Login: login, Count: count})
	}
	slices.SortFunc(entries, func(a, b TallyEntry) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(b.Login, a.Login)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Summary holds the counters of a finished run.
// LinkedPullRequests and MergedPullRequests count cross-referencing pull
// requests of the tallied issues.
type Summary struct {
	Mode               Mode `json:"mode" yaml:"mode"`
	Open               int  `json:"open" yaml:"open"`
	Closed             int  `json:"closed" yaml:"closed"`
	Assigned           int  `json:"assigned" yaml:"assigned"`
	Total              int  `json:"total" yaml:"total"`
	LinkedPullRequests int  `json:"linked_pull_requests" yaml:"linked_pull_requests"`
	MergedPullRequests int  `json:"merged_pull_requests" yaml:"merged_pull_requests"`
}

// Percentage returns closed/total (closed mode) or assigned/open
// (assignment mode) as a percentage. ok is false when the denominator is zero.
func (s Summary) Percentage() (pct float64, ok bool) {
	num, den := s.ratio()
	if den == 0 {
		return 0, false
	}
	return float64(num) * 100.0 / float64(den), true
}

func (s Summary) ratio() (num, den int) {
	if s.Mode == ModeAssignment {
		return s.Assigned, s.Open
	}
	return s.Closed, s.Total
}

// Aggregator accumulates issues into a Tally and Summary.
type Aggregator struct {
	tally     *Tally
	summary   Summary
	finalized bool
}

// NewAggregator returns an aggregator for mode.
func NewAggregator(mode Mode) (*Aggregator, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return &Aggregator{
		tally:   NewTally(),
		summary: Summary{Mode: mode},
	}, nil
}

// Add accounts for one issue.
func (a *Aggregator) Add(issue *Issue) error {
	if a.finalized {
		return ErrAggregatorFinalized
	}
	a.summary.Total++
	switch a.summary.Mode {
	case ModeClosed:
		if !issue.Closed {
			a.summary.Open++
			return nil
		}
		a.summary.Closed++
		if issue.IsAssigned() {
			a.summary.Assigned++
		}
	case ModeAssignment:
		if issue.Closed {
			a.summary.Closed++
			return nil
		}
		a.summary.Open++
		if !issue.IsAssigned() {
			return nil
		}
		a.summary.Assigned++
	}
	for _, login := range issue.Assignees {
		a.tally.Inc(login)
	}
	a.summary.LinkedPullRequests += issue.CrossReferences.PullRequests()
	a.summary.MergedPullRequests += issue.CrossReferences.MergedPullRequests()
	return nil
}

// AddPage accounts for every issue of page.
func (a *Aggregator) AddPage(page *Page) error {
	for i := range page.Issues {
		if err := a.Add(&page.Issues[i]); err != nil {
			return err
		}
	}
	return nil
}

// Finalize stops accumulation and returns the results.
func (a *Aggregator) Finalize() (*Tally, Summary) {
	a.finalized = true
	return a.tally, a.summary
}

// Report is everything a reporter renders.
type Report struct {
	Ranking  []TallyEntry
	Summary  Summary
	Numbered bool // Prefix entries with their rank
}
