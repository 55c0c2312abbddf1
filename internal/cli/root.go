// Package cli provides the command-line interface for issue-tally.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/issue-tally/internal/app"
)

// NewRootCommand creates the root command for issue-tally.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	var opts reportOptions

	root := &cobra.Command{
		Use:   "issue-tally",
		Short: "Rank contributors by the GitHub issues they closed or hold",
		Long: `issue-tally searches the issues of a GitHub repository and ranks
contributors by how many of them they handled.

By default it counts, per assignee, the closed issues carrying --label and
prints the share of closed issues. With --assignments it counts the open
issues each contributor is assigned instead.

The access token is read from --token or from the GITHUB_TOKEN
environment variable (see --token-env and --env-file).`,
		Example: `  issue-tally --label jazzy
  issue-tally --repo gazebosim/gazebo_test_cases --label ionic --assignments
  issue-tally --label jazzy --raw-output responses.json --chart ranking.html`,
		Version: version,
		Args:    cobra.NoArgs,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}

			cfg, err := c.ConfigLoader.Load()
			if err != nil {
				// Reported by the commands that need the config
				return nil
			}

			for _, w := range cfg.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, c, version, opts)
		},
	}

	opts.register(root)

	root.AddCommand(newConfigCommand(c))

	return root
}
