package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

var (
	watchCompileFlag bool
	watchQuietFlag   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the caches in sync with source changes",
	Long: `Watch starts a session that follows file changes under the source roots
and branch switches in the git checkout. Modified files are dropped from the
parse cache, created files are parsed, and the class index is rebuilt after
each successful compile and branch switch.

With --compile every changed Java file is compiled as it is saved.

Examples:
  javalens watch
  javalens watch --compile --verbose`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchCompileFlag, "compile", false, "Compile changed files on save")
	watchCmd.Flags().BoolVarP(&watchQuietFlag, "quiet", "q", false, "Suppress status messages")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s, cfg, err := openSession(ctx, func(o *session.Options) {
		o.Config.Watch.Enabled = true
		o.CompileOnChange = watchCompileFlag
	})
	if err != nil {
		return err
	}

	if err := s.Start(ctx); err != nil {
		s.Shutdown(cfg.Session.ShutdownTimeout)
		return fmt.Errorf("failed to start session: %w", err)
	}

	out := cmd.ErrOrStderr()
	if !watchQuietFlag {
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", s.Root())
	}

	<-ctx.Done()

	if !watchQuietFlag {
		fmt.Fprintln(out, "\nStopping...")
	}
	if err := s.Shutdown(cfg.Session.ShutdownTimeout); err != nil {
		log.Printf("Warning: unclean shutdown: %v", err)
		return err
	}
	return nil
}
