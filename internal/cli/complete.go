package cli

import (
	"context"

	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <column> [prefix]",
	Short: "List completion candidates at a position",
	Long: `List the names usable at a position that start with prefix.

A prefix containing a dot (helper.ge) lists members of the receiver's type
when that type is declared in the project.

Examples:
  javalens complete src/main/java/p/Foo.java 12 9 to
  javalens complete src/main/java/p/Foo.java 12 9 helper.`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runComplete,
}

var localsCmd = &cobra.Command{
	Use:   "locals <file> <line>",
	Short: "List variables visible at a line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := parsePosition("line", args[1])
		if err != nil {
			return err
		}
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			cs, err := s.LocalVariables(ctx, args[0], line)
			return nonNil(cs), err
		})
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(localsCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	line, err := parsePosition("line", args[1])
	if err != nil {
		return err
	}
	column, err := parsePosition("column", args[2])
	if err != nil {
		return err
	}
	prefix := ""
	if len(args) == 4 {
		prefix = args[3]
	}

	return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
		cs, err := s.CompletionAt(ctx, args[0], line, column, prefix)
		return nonNil(cs), err
	})
}

// nonNil makes empty results print as [] rather than null.
func nonNil(cs []session.Candidate) []session.Candidate {
	if cs == nil {
		return []session.Candidate{}
	}
	return cs
}
