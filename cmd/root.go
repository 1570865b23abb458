package cmd

import (
	"github.com/compozy/autotag/internal/orchestrator"
	"github.com/compozy/autotag/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var (
		dryRun   bool
		ciOutput bool
	)
	cmd := &cobra.Command{
		Use:   "autotag",
		Short: "Tag the latest commit with the next semantic version",
		Long: `autotag computes the next semantic version of the repository from the
latest version tag and the change introduced by the latest commit, then
applies it as a tag.

A bumped version is tagged on HEAD. A commit classified as a re-seat moves
the latest tag to HEAD instead. With --push the resulting tag changes are
pushed to the remote.`,
		Version:      version.Summary(),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(cmd.Flags())
			if err != nil {
				return err
			}
			defer func() { _ = c.logger.Sync() }()
			orch := orchestrator.NewAutotagOrchestrator(c.gitRepo, c.remote, c.classifier, c.journal, c.logger)
			orch.SetOutput(cmd.OutOrStdout())
			_, err = orch.Execute(cmd.Context(), orchestrator.AutotagConfig{
				Push:      c.cfg.Push,
				DryRun:    dryRun,
				CIOutput:  ciOutput,
				FetchTags: c.cfg.FetchTags,
			})
			return err
		},
	}
	cmd.PersistentFlags().String("config", "", "Path to the config file (default .autotag.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().BoolP("push", "p", false, "Push created or re-seated tags to the remote")
	cmd.Flags().Bool("fetch-tags", false, "Fetch remote tags before resolving the latest version")
	cmd.Flags().Bool("journal", false, "Record the run in the run journal")
	cmd.Flags().String("remote", "", "Remote to push to (default origin)")
	cmd.Flags().String("push-via", "", "Push backend: git or github")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report the tag plan without changing anything")
	cmd.Flags().BoolVar(&ciOutput, "ci-output", false, "Print key=value results for CI")
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// InitCommands registers the subcommands.
func InitCommands() error {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLastRunCmd())
	return nil
}
