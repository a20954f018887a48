package cli

import (
	"context"

	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

type pathResult struct {
	Found bool   `json:"found"`
	Path  string `json:"path,omitempty"`
}

var switchTestCmd = &cobra.Command{
	Use:   "switch-test <file>",
	Short: "Print the test for a source file, or the source for a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			path, ok := s.SwitchTest(args[0])
			return pathResult{Found: ok, Path: path}, nil
		})
	},
}

var createJUnitCmd = &cobra.Command{
	Use:   "create-junit <file>",
	Short: "Create a JUnit test skeleton for a source file",
	Long: `Create FooTest.java for Foo.java under the module's test root, in the
same package. An existing test file is left untouched and printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			path, err := s.CreateJUnitFile(ctx, args[0])
			return pathResult{Found: path != "", Path: path}, err
		})
	},
}

func init() {
	rootCmd.AddCommand(switchTestCmd)
	rootCmd.AddCommand(createJUnitCmd)
}
