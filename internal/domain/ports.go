package domain

import (
	"context"
	"io"
)

// IssueSearcher runs search query documents against the hosting platform.
type IssueSearcher interface {
	// Search sends one query document and returns the successful response.
	// Implementations retry transient failures internally; a returned error
	// is fatal for the run.
	Search(ctx context.Context, query string) (*Envelope, error)
}

// EnvelopeSink persists the raw responses of a run.
type EnvelopeSink interface {
	// Save writes every envelope, in order, as one JSON array.
	Save(envelopes []*Envelope) error
}

// ReportWriter renders a finished report.
type ReportWriter interface {
	// Write renders report to w in the given format.
	Write(w io.Writer, report *Report, format Format) error
}

// ChartRenderer draws the ranking as a chart.
type ChartRenderer interface {
	// Render writes a self-contained chart document to w.
	Render(w io.Writer, title string, ranking []TallyEntry) error
}

// RepoDetector infers the repository of the working directory.
type RepoDetector interface {
	// DetectRepo returns the <owner>/<name> of the github.com origin remote.
	DetectRepo() (string, error)
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (defaults, global, project).
	Load() (*Config, error)

	// LoadWithOptions returns the merged configuration, skipping ignored sources.
	LoadWithOptions(opts LoadConfigOptions) (*Config, error)
}

// ConfigManager manages configuration files.
type ConfigManager interface {
	// GetGlobalConfigInfo returns information about the global config file.
	GetGlobalConfigInfo() ConfigInfo

	// GetProjectConfigInfo returns information about the project config file.
	GetProjectConfigInfo() ConfigInfo

	// InitGlobalConfig creates the global config file from a template.
	InitGlobalConfig(cfg *Config) error

	// InitProjectConfig creates the project config file from a template.
	InitProjectConfig(cfg *Config) error
}

// Logger records diagnostic messages by category.
type Logger interface {
	Debug(category, msg string)
	Info(category, msg string)
	Warn(category, msg string)
	Error(category, msg string)
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(_, _ string) {}

// Info implements Logger.
func (NopLogger) Info(_, _ string) {}

// Warn implements Logger.
func (NopLogger) Warn(_, _ string) {}

// Error implements Logger.
func (NopLogger) Error(_, _ string) {}
