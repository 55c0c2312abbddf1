// Package app provides the dependency injection container for the application.
package app

import (
	"log/slog"
	"os"

	"github.com/runoshun/issue-tally/internal/domain"
	"github.com/runoshun/issue-tally/internal/infra/chart"
	"github.com/runoshun/issue-tally/internal/infra/config"
	"github.com/runoshun/issue-tally/internal/infra/git"
	"github.com/runoshun/issue-tally/internal/infra/github"
	"github.com/runoshun/issue-tally/internal/infra/jsonstore"
	"github.com/runoshun/issue-tally/internal/infra/logging"
	"github.com/runoshun/issue-tally/internal/infra/report"
	"github.com/runoshun/issue-tally/internal/infra/retry"
	"github.com/runoshun/issue-tally/internal/usecase"
)

// Config holds the application paths.
type Config struct {
	WorkDir string // Directory holding the project config and git checkout
}

// SearcherFactory builds the issue searcher once a token is known.
type SearcherFactory func(token string, cfg *domain.Config, logger domain.Logger) domain.IssueSearcher

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager
	Repo          domain.RepoDetector
	Reports       domain.ReportWriter
	Charts        domain.ChartRenderer
	NewSearcher   SearcherFactory

	// Pointer fields
	Logger    *logging.Logger
	AppConfig *domain.Config

	// Configuration
	Config Config
}

// New creates a new Container for the given working directory.
// A broken config file is reported by the commands that need it.
func New(dir string) (*Container, error) {
	cfg := Config{WorkDir: dir}

	configLoader := config.NewLoader(dir)
	appConfig, err := configLoader.Load()
	if err != nil {
		appConfig = domain.NewDefaultConfig()
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(appConfig.Log.Level))
	if appConfig.Log.File != "" {
		if err := logger.OpenFile(appConfig.Log.File); err != nil {
			logger.Warn("app", err.Error())
		}
	}

	return &Container{
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManager(dir),
		Repo:          git.NewClient(dir),
		Reports:       report.NewWriter(),
		Charts:        chart.NewBarRenderer(),
		NewSearcher:   NewGitHubSearcher,
		Logger:        logger,
		AppConfig:     appConfig,
		Config:        cfg,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg Config, appConfig *domain.Config, searcher domain.IssueSearcher, logger *logging.Logger) *Container {
	if logger == nil {
		logger = logging.New(nil, slog.LevelInfo)
	}
	return &Container{
		ConfigLoader:  config.NewLoaderWithGlobalDir(cfg.WorkDir, ""),
		ConfigManager: config.NewManagerWithGlobalDir(cfg.WorkDir, ""),
		Repo:          git.NewClient(cfg.WorkDir),
		Reports:       report.NewWriter(),
		Charts:        chart.NewBarRenderer(),
		NewSearcher: func(string, *domain.Config, domain.Logger) domain.IssueSearcher {
			return searcher
		},
		Logger:    logger,
		AppConfig: appConfig,
		Config:    cfg,
	}
}

// NewGitHubSearcher builds the GraphQL client from the loaded configuration.
func NewGitHubSearcher(token string, cfg *domain.Config, logger domain.Logger) domain.IssueSearcher {
	return github.NewClient(github.Options{
		Logger:   logger,
		Endpoint: cfg.GitHub.Endpoint,
		Token:    token,
		Timeout:  cfg.GitHub.Timeout.Std(),
		Retry: retry.Config{
			TransientDelay: cfg.Retry.TransientDelay.Std(),
			StatusDelay:    cfg.Retry.StatusDelay.Std(),
			MaxRetries:     cfg.Retry.MaxRetries,
		},
	})
}

// Close releases the log file.
func (c *Container) Close() error {
	return c.Logger.Close()
}

// UseCase factory methods

// GenerateReportUseCase returns a new GenerateReport use case.
// rawOutput, when not empty, receives the raw responses of a complete run.
func (c *Container) GenerateReportUseCase(token, rawOutput string) *usecase.GenerateReport {
	searcher := c.NewSearcher(token, c.AppConfig, c.Logger)
	var sink domain.EnvelopeSink
	if rawOutput != "" {
		sink = jsonstore.New(rawOutput)
	}
	return usecase.NewGenerateReport(usecase.NewCollectIssues(searcher, c.Logger), sink)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}
