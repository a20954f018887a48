package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	warmQuietFlag bool
	warmJSONFlag  bool
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Parse every project source and build the class index",
	Long: `Warm parses every Java source matched by project.include with
session.parse_workers workers, then rebuilds the class index and persists
the project model so the next start can fast-boot.

Examples:
  javalens warm
  javalens warm --json`,
	Args: cobra.NoArgs,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)
	warmCmd.Flags().BoolVarP(&warmQuietFlag, "quiet", "q", false, "Disable the progress bar")
	warmCmd.Flags().BoolVar(&warmJSONFlag, "json", false, "Output the result as JSON")
}

func runWarm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, cfg, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Shutdown(cfg.Session.ShutdownTimeout)

	progress := newWarmProgress(cmd.ErrOrStderr(), warmQuietFlag || warmJSONFlag)
	res, err := s.WarmUp(ctx, progress.Update)
	if err != nil {
		return err
	}

	// The start-up rebuild indexes classes and saves the model.
	if err := s.Start(ctx); err != nil {
		return err
	}
	if err := s.Quiesce(ctx); err != nil {
		return err
	}

	if warmJSONFlag {
		return printJSON(cmd.OutOrStdout(), res)
	}
	progress.Complete(res)
	return nil
}
