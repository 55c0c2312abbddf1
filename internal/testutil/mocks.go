// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/runoshun/issue-tally/internal/domain"
)

// LogEntry is one message captured by MockLogger.
type LogEntry struct {
	Level    string
	Category string
	Msg      string
}

// MockLogger is a test double for domain.Logger that records messages.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (m *MockLogger) add(level, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Category: category, Msg: msg})
}

// Debug records a debug message.
func (m *MockLogger) Debug(category, msg string) { m.add("DEBUG", category, msg) }

// Info records an info message.
func (m *MockLogger) Info(category, msg string) { m.add("INFO", category, msg) }

// Warn records a warning.
func (m *MockLogger) Warn(category, msg string) { m.add("WARN", category, msg) }

// Error records an error message.
func (m *MockLogger) Error(category, msg string) { m.add("ERROR", category, msg) }

// ByLevel returns the messages logged at level.
func (m *MockLogger) ByLevel(level string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var msgs []string
	for _, e := range m.Entries {
		if e.Level == level {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}

// MockSearcher is a test double for domain.IssueSearcher that serves
// scripted pages in order and records every query it receives.
// Fields are ordered to minimize memory padding.
type MockSearcher struct {
	Pages   []*domain.Page
	Queries []string
	Err     error // Returned once the pages are exhausted, or at ErrAt
	ErrAt   int   // 1-based call that fails with Err; 0 disables
}

// Search returns the next scripted page.
func (m *MockSearcher) Search(_ context.Context, query string) (*domain.Envelope, error) {
	m.Queries = append(m.Queries, query)
	call := len(m.Queries)
	if m.ErrAt > 0 && call == m.ErrAt {
		return nil, m.Err
	}
	if call > len(m.Pages) {
		if m.Err != nil {
			return nil, m.Err
		}
		return nil, fmt.Errorf("mock searcher: unexpected call %d", call)
	}
	page := m.Pages[call-1]
	return &domain.Envelope{Page: page, Raw: RawPage(page)}, nil
}

type rawActor struct {
	Login string `json:"login"`
}

type rawAssignees struct {
	Nodes []rawActor `json:"nodes"`
}

type rawNode struct {
	ID        string       `json:"id"`
	Assignees rawAssignees `json:"assignees"`
	Number    int          `json:"number"`
	Closed    bool         `json:"closed"`
}

type rawPageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type rawSearch struct {
	PageInfo rawPageInfo `json:"pageInfo"`
	Nodes    []rawNode   `json:"nodes"`
}

type rawData struct {
	Search rawSearch `json:"search"`
}

type rawBody struct {
	Data rawData `json:"data"`
}

// RawPage renders page as a search response body.
func RawPage(page *domain.Page) json.RawMessage {
	var body rawBody
	search := &body.Data.Search
	search.PageInfo.HasNextPage = page.HasNextPage
	if page.EndCursor != "" {
		cursor := page.EndCursor
		search.PageInfo.EndCursor = &cursor
	}
	search.Nodes = []rawNode{}
	for _, issue := range page.Issues {
		n := rawNode{ID: issue.ID, Number: issue.Number, Closed: issue.Closed}
		n.Assignees.Nodes = []rawActor{}
		for _, login := range issue.Assignees {
			n.Assignees.Nodes = append(n.Assignees.Nodes, rawActor{Login: login})
		}
		search.Nodes = append(search.Nodes, n)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return raw
}

// NewIssue builds an issue for tests.
func NewIssue(number int, closed bool, assignees ...string) domain.Issue {
	return domain.Issue{
		ID:        fmt.Sprintf("I_%d", number),
		Number:    number,
		Closed:    closed,
		Assignees: assignees,
	}
}

// MockEnvelopeSink is a test double for domain.EnvelopeSink.
type MockEnvelopeSink struct {
	SaveErr error
	Saved   []*domain.Envelope
	Calls   int
}

// Save records the envelopes.
func (m *MockEnvelopeSink) Save(envelopes []*domain.Envelope) error {
	m.Calls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = envelopes
	return nil
}

// MockChartRenderer is a test double for domain.ChartRenderer.
type MockChartRenderer struct {
	Err     error
	Title   string
	Ranking []domain.TallyEntry
}

// Render records its arguments and writes a marker.
func (m *MockChartRenderer) Render(w io.Writer, title string, ranking []domain.TallyEntry) error {
	if m.Err != nil {
		return m.Err
	}
	m.Title = title
	m.Ranking = ranking
	_, err := io.WriteString(w, "<chart>")
	return err
}

// MockRepoDetector is a test double for domain.RepoDetector.
type MockRepoDetector struct {
	Err  error
	Repo string
}

// DetectRepo returns the configured repository.
func (m *MockRepoDetector) DetectRepo() (string, error) {
	return m.Repo, m.Err
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
}

// NewMockConfigLoader creates a loader returning the default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	return m.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadWithOptions returns the configured config.
func (m *MockConfigLoader) LoadWithOptions(_ domain.LoadConfigOptions) (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
// Fields are ordered to minimize memory padding.
type MockConfigManager struct {
	InitErr           error
	InitConfig        *domain.Config
	GlobalConfigInfo  domain.ConfigInfo
	ProjectConfigInfo domain.ConfigInfo
	InitGlobalCalled  bool
	InitProjectCalled bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{}
}

// GetGlobalConfigInfo returns the configured info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// GetProjectConfigInfo returns the configured info.
func (m *MockConfigManager) GetProjectConfigInfo() domain.ConfigInfo {
	return m.ProjectConfigInfo
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig(cfg *domain.Config) error {
	m.InitGlobalCalled = true
	m.InitConfig = cfg
	return m.InitErr
}

// InitProjectConfig records the call.
func (m *MockConfigManager) InitProjectConfig(cfg *domain.Config) error {
	m.InitProjectCalled = true
	m.InitConfig = cfg
	return m.InitErr
}

// Contains reports whether any of msgs contains substr.
func Contains(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
