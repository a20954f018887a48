package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mvp-joe/javalens/internal/config"
	"github.com/mvp-joe/javalens/internal/project"
	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

// openSession loads the project configuration and creates a session for the
// project around --project. Watching is off unless configure turns it on.
func openSession(ctx context.Context, configure func(*session.Options)) (*session.Session, *config.Config, error) {
	root, _, _, err := project.FindProject(projectFlag)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	global, err := config.LoadGlobalConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load global configuration: %w", err)
	}
	cfg.Watch.Enabled = false

	opts := session.Options{Config: cfg, Global: global}
	if configure != nil {
		configure(&opts)
	}

	s, err := session.New(ctx, root, opts)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// runWithSession runs fn against a fresh session and prints its result as
// JSON.
func runWithSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, cfg, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Shutdown(cfg.Session.ShutdownTimeout)

	result, err := fn(ctx, s)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}

func parsePosition(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, arg)
	}
	return n, nil
}
