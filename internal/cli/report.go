package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/runoshun/issue-tally/internal/app"
	"github.com/runoshun/issue-tally/internal/domain"
	"github.com/runoshun/issue-tally/internal/infra/logging"
	"github.com/runoshun/issue-tally/internal/infra/telemetry"
	"github.com/runoshun/issue-tally/internal/usecase"
)

// getenv is the environment lookup used for token resolution, replaceable in tests.
var getenv = os.Getenv

// reportOptions holds the flags of the report (root) command.
// Fields are ordered to minimize memory padding.
type reportOptions struct {
	token       string
	tokenEnv    string
	envFile     string
	repo        string
	label       string
	since       string
	rawOutput   string
	format      string
	chart       string
	logLevel    string
	assignments bool
	trace       bool
}

func (o *reportOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.token, "token", "", "GitHub access token (overrides the environment)")
	f.StringVar(&o.tokenEnv, "token-env", "", "Environment variable holding the token (default GITHUB_TOKEN)")
	f.StringVar(&o.envFile, "env-file", "", "Load environment variables from a dotenv file first")
	f.StringVarP(&o.repo, "repo", "r", "", "Repository as <owner>/<name> (default: config, origin remote, then "+domain.DefaultRepo+")")
	f.StringVarP(&o.label, "label", "l", "", "Label to filter issues by, e.g. jazzy or ionic")
	f.StringVar(&o.since, "since", "", "Count issues created on or after this date (YYYY-MM-DD) instead of by label")
	f.BoolVar(&o.assignments, "assignments", false, "Rank assignees of open issues")
	f.StringVar(&o.rawOutput, "raw-output", "", "File to save the raw JSON responses to (any mode or filter)")
	f.StringVar(&o.format, "format", "", "Output format: text, yaml or json (default text)")
	f.StringVar(&o.chart, "chart", "", "Write an HTML bar chart of the ranking to this file")
	f.BoolVar(&o.trace, "trace", false, "Print OpenTelemetry spans and metrics to stderr")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.MarkFlagsMutuallyExclusive("label", "since")
}

func (o reportOptions) mode() domain.Mode {
	if o.assignments {
		return domain.ModeAssignment
	}
	return domain.ModeClosed
}

// runReport executes a report run with the given flags.
func runReport(cmd *cobra.Command, c *app.Container, version string, o reportOptions) error {
	if c == nil {
		return cmd.Help()
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := c.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.AppConfig = cfg

	if o.logLevel != "" {
		c.Logger.SetLevel(logging.ParseLevel(o.logLevel))
	}

	formatName := o.format
	if formatName == "" {
		formatName = cfg.Report.Format
	}
	format, err := domain.ParseFormat(formatName)
	if err != nil {
		return err
	}

	filter := domain.SearchFilter{
		Repo:  resolveRepo(c, cfg, o.repo),
		Label: o.label,
	}
	if o.since != "" {
		if filter.Since, err = domain.ParseSince(o.since); err != nil {
			return err
		}
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	tokenEnv := o.tokenEnv
	if tokenEnv == "" {
		tokenEnv = cfg.GitHub.TokenEnv
	}
	token, err := domain.ResolveToken(domain.TokenRequest{
		Flag:    o.token,
		EnvName: tokenEnv,
		Getenv:  getenv,
	})
	if err != nil {
		return err
	}
	c.Logger.Debug("app", fmt.Sprintf("token from %s, repository %s", token.Source, filter.Repo))

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Options{
		Writer:      cmd.ErrOrStderr(),
		ServiceName: "issue-tally",
		Version:     version,
		Enabled:     o.trace || telemetry.EnabledFromEnv(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(cmd.Context()); err != nil {
			c.Logger.Warn("telemetry", err.Error())
		}
	}()

	uc := c.GenerateReportUseCase(token.Value, o.rawOutput)
	out, err := uc.Execute(cmd.Context(), usecase.GenerateReportInput{
		Filter: filter,
		Mode:   o.mode(),
	})
	if err != nil {
		return err
	}

	if err := c.Reports.Write(cmd.OutOrStdout(), out.Report, format); err != nil {
		return err
	}

	if o.chart != "" {
		if err := writeChart(c, o.chart, chartTitle(filter, o.mode()), out.Report.Ranking); err != nil {
			return err
		}
	}
	return nil
}

// resolveRepo picks the repository: flag, then a configured repository,
// then the origin remote of the current checkout, then the default.
func resolveRepo(c *app.Container, cfg *domain.Config, flag string) string {
	if flag != "" {
		return flag
	}
	if cfg.Report.RepoSet && cfg.Report.Repo != "" {
		return cfg.Report.Repo
	}
	if c.Repo != nil {
		repo, err := c.Repo.DetectRepo()
		if err == nil {
			c.Logger.Debug("app", "repository from origin remote: "+repo)
			return repo
		}
		if !errors.Is(err, domain.ErrNotGitRepository) && !errors.Is(err, domain.ErrNoGitHubRemote) {
			c.Logger.Warn("app", fmt.Sprintf("detect repository: %v", err))
		}
	}
	return domain.DefaultRepo
}

func chartTitle(filter domain.SearchFilter, mode domain.Mode) string {
	scope := "label " + filter.Label
	if !filter.HasLabel() {
		scope = "created since " + filter.Since.Format(domain.DateLayout)
	}
	if mode == domain.ModeAssignment {
		return fmt.Sprintf("Open issue assignments in %s (%s)", filter.Repo, scope)
	}
	return fmt.Sprintf("Closed issues in %s (%s)", filter.Repo, scope)
}

func writeChart(c *app.Container, path, title string, ranking []domain.TallyEntry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create chart directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // Output path chosen by the user
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := c.Charts.Render(f, title, ranking); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
