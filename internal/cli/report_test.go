package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/issue-tally/internal/app"
	"github.com/runoshun/issue-tally/internal/domain"
	"github.com/runoshun/issue-tally/internal/testutil"
)

// newReportTestContainer creates a container whose searcher serves pages.
func newReportTestContainer(t *testing.T, pages ...*domain.Page) (*app.Container, *testutil.MockSearcher) {
	t.Helper()

	searcher := &testutil.MockSearcher{Pages: pages}
	c := app.NewWithDeps(app.Config{WorkDir: t.TempDir()}, domain.NewDefaultConfig(), searcher, nil)
	c.Repo = &testutil.MockRepoDetector{Err: domain.ErrNotGitRepository}
	return c, searcher
}

// withEnv replaces the token lookup for the duration of the test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	original := getenv
	getenv = func(key string) string { return env[key] }
	t.Cleanup(func() { getenv = original })
}

func execute(c *app.Container, args ...string) (string, string, error) {
	root := NewRootCommand(c, "test-version")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func jazzyPages() []*domain.Page {
	return []*domain.Page{
		{
			Issues:      []domain.Issue{testutil.NewIssue(1, true, "A"), testutil.NewIssue(2, true, "A", "B")},
			EndCursor:   "c1",
			HasNextPage: true,
		},
		{
			Issues:    []domain.Issue{testutil.NewIssue(3, false, "B")},
			EndCursor: "c2",
		},
	}
}

func TestReport_ClosedMode(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "ghp_env"})

	stdout, _, err := execute(c, "--label", "jazzy")

	require.NoError(t, err)
	assert.Equal(t, "1. A: 2\n2. B: 1\nIssues closed 2 out of 3, 66.66666666666667%\n", stdout)
	require.Len(t, searcher.Queries, 2)
	assert.Contains(t, searcher.Queries[0], "repo:"+domain.DefaultRepo)
	assert.Contains(t, searcher.Queries[0], "after: null")
	assert.Contains(t, searcher.Queries[1], `after: "c1"`)
}

func TestReport_AssignmentMode(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "ghp_env"})

	stdout, _, err := execute(c, "--label", "jazzy", "--assignments")

	require.NoError(t, err)
	assert.Equal(t, "1. B: 1\nTotal number of assigned issues 1 out of 1 open issues, 100%\n", stdout)
}

func TestReport_MissingToken(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, nil)

	_, _, err := execute(c, "--label", "jazzy")

	assert.ErrorIs(t, err, domain.ErrMissingToken)
	assert.Empty(t, searcher.Queries)
}

func TestReport_TokenEnvName(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"ROS_BOT_TOKEN": "ghp_bot"})

	_, _, err := execute(c, "--label", "jazzy", "--token-env", "ROS_BOT_TOKEN")

	require.NoError(t, err)
	assert.Len(t, searcher.Queries, 2)
}

func TestReport_TokenFlag(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, nil)

	var gotToken string
	searcher := &testutil.MockSearcher{Pages: jazzyPages()}
	c.NewSearcher = func(token string, _ *domain.Config, _ domain.Logger) domain.IssueSearcher {
		gotToken = token
		return searcher
	}

	_, _, err := execute(c, "--label", "jazzy", "--token", "ghp_flag")

	require.NoError(t, err)
	assert.Equal(t, "ghp_flag", gotToken)
}

func TestReport_EnvFile(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ISSUE_TALLY_TEST_TOKEN=ghp_dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ISSUE_TALLY_TEST_TOKEN") })

	_, _, err := execute(c, "--label", "jazzy", "--env-file", envFile, "--token-env", "ISSUE_TALLY_TEST_TOKEN")

	require.NoError(t, err)
	assert.Len(t, searcher.Queries, 2)
}

func TestReport_RepoResolution(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		c, searcher := newReportTestContainer(t, jazzyPages()...)
		withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})

		_, _, err := execute(c, "-r", "gazebosim/gazebo_test_cases", "-l", "ionic")

		require.NoError(t, err)
		assert.Contains(t, searcher.Queries[0], "repo:gazebosim/gazebo_test_cases")
	})

	t.Run("project config", func(t *testing.T) {
		c, searcher := newReportTestContainer(t, jazzyPages()...)
		withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
		require.NoError(t, os.WriteFile(domain.ProjectConfigPath(c.Config.WorkDir),
			[]byte("[report]\nrepo = \"ros2/ros2\"\n"), 0o600))
		c.Repo = &testutil.MockRepoDetector{Repo: "ros2/rclcpp"}

		_, _, err := execute(c, "-l", "jazzy")

		require.NoError(t, err)
		assert.Contains(t, searcher.Queries[0], "repo:ros2/ros2")
	})

	t.Run("configured default repo beats origin remote", func(t *testing.T) {
		c, searcher := newReportTestContainer(t, jazzyPages()...)
		withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
		require.NoError(t, os.WriteFile(domain.ProjectConfigPath(c.Config.WorkDir),
			[]byte("[report]\nrepo = \""+domain.DefaultRepo+"\"\n"), 0o600))
		c.Repo = &testutil.MockRepoDetector{Repo: "ros2/rclcpp"}

		_, _, err := execute(c, "-l", "jazzy")

		require.NoError(t, err)
		assert.Contains(t, searcher.Queries[0], "repo:"+domain.DefaultRepo)
	})

	t.Run("origin remote", func(t *testing.T) {
		c, searcher := newReportTestContainer(t, jazzyPages()...)
		withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
		c.Repo = &testutil.MockRepoDetector{Repo: "ros2/rclcpp"}

		_, _, err := execute(c, "-l", "jazzy")

		require.NoError(t, err)
		assert.Contains(t, searcher.Queries[0], "repo:ros2/rclcpp")
	})
}

func TestReport_FilterErrors(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		args    []string
	}{
		{name: "no filter", args: []string{}, wantErr: domain.ErrNoFilter},
		{name: "bad repo", args: []string{"--repo", "ros2", "--label", "jazzy"}, wantErr: domain.ErrInvalidRepo},
		{name: "bad label", args: []string{"--label", `a"b`}, wantErr: domain.ErrInvalidLabel},
		{name: "bad format", args: []string{"--label", "jazzy", "--format", "csv"}, wantErr: domain.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, searcher := newReportTestContainer(t, jazzyPages()...)
			withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})

			_, _, err := execute(c, tt.args...)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, searcher.Queries)
		})
	}
}

func TestReport_LabelAndSinceConflict(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})

	_, _, err := execute(c, "--label", "jazzy", "--since", "2024-01-01")

	require.Error(t, err)
	assert.Empty(t, searcher.Queries)
}

func TestReport_Since(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})

	stdout, _, err := execute(c, "--since", "2024-05-01")

	require.NoError(t, err)
	assert.Contains(t, searcher.Queries[0], "created:>=2024-05-01")
	assert.Contains(t, stdout, "A: 2\nB: 1\n")
	assert.NotContains(t, stdout, "1. A")
}

func TestReport_JSONFormat(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})

	stdout, _, err := execute(c, "--label", "jazzy", "--format", "json")

	require.NoError(t, err)
	var doc struct {
		Mode    string              `json:"mode"`
		Ranking []domain.TallyEntry `json:"ranking"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "closed", doc.Mode)
	assert.Equal(t, []domain.TallyEntry{{Rank: 1, Login: "A", Count: 2}, {Rank: 2, Login: "B", Count: 1}}, doc.Ranking)
}

func TestReport_OutputFiles(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
	outDir := t.TempDir()
	rawPath := filepath.Join(outDir, "raw.json")
	chartPath := filepath.Join(outDir, "charts", "ranking.html")

	_, _, err := execute(c, "--label", "jazzy", "--raw-output", rawPath, "--chart", chartPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	var bodies []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &bodies))
	assert.Len(t, bodies, 2)

	html, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Closed issues in osrf/ros2_test_cases (label jazzy)")
}

func TestReport_RawOutputInAssignmentMode(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
	rawPath := filepath.Join(t.TempDir(), "raw.json")

	_, _, err := execute(c, "--label", "jazzy", "--assignments", "--raw-output", rawPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(rawPath)
	require.NoError(t, err)
	var bodies []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &bodies))
	assert.Len(t, bodies, 2)
}

func TestReport_FailedRunWritesNoFiles(t *testing.T) {
	c, searcher := newReportTestContainer(t, jazzyPages()...)
	searcher.Err = domain.ErrMalformedResponse
	searcher.ErrAt = 2
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
	rawPath := filepath.Join(t.TempDir(), "raw.json")

	stdout, _, err := execute(c, "--label", "jazzy", "--raw-output", rawPath)

	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	assert.Empty(t, stdout)
	_, statErr := os.Stat(rawPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReport_ConfigWarnings(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})
	require.NoError(t, os.WriteFile(domain.ProjectConfigPath(c.Config.WorkDir),
		[]byte("[report]\nlabel = \"jazzy\"\n"), 0o600))

	_, stderr, err := execute(c, "--label", "jazzy")

	require.NoError(t, err)
	assert.Contains(t, stderr, "Warning: unknown key in [report]: label")
}

func TestReport_TraceFlag(t *testing.T) {
	c, _ := newReportTestContainer(t, jazzyPages()...)
	withEnv(t, map[string]string{"GITHUB_TOKEN": "x"})

	_, _, err := execute(c, "--label", "jazzy", "--trace")

	require.NoError(t, err)
}

func TestChartTitle(t *testing.T) {
	filter := domain.SearchFilter{Repo: "ros2/ros2", Label: "kilted"}
	assert.Equal(t, "Closed issues in ros2/ros2 (label kilted)", chartTitle(filter, domain.ModeClosed))
	assert.Equal(t, "Open issue assignments in ros2/ros2 (label kilted)", chartTitle(filter, domain.ModeAssignment))

	since, err := domain.ParseSince("2024-05-01")
	require.NoError(t, err)
	filter = domain.SearchFilter{Repo: "ros2/ros2", Since: since}
	assert.Equal(t, "Closed issues in ros2/ros2 (created since 2024-05-01)", chartTitle(filter, domain.ModeClosed))
}
