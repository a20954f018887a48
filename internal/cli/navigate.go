package cli

import (
	"context"

	"github.com/mvp-joe/javalens/internal/navigation"
	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

type jumpResult struct {
	Found    bool                 `json:"found"`
	Location *navigation.Location `json:"location,omitempty"`
}

var jumpCmd = &cobra.Command{
	Use:   "jump <file> <line> <column> <symbol>",
	Short: "Find the declaration of a symbol",
	Long: `Find where symbol, as it occurs at line and column of file, is declared.
Local variables, parameters and members resolve within the file; types are
looked up across the project's source roots.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := parsePosition("line", args[1])
		if err != nil {
			return err
		}
		column, err := parsePosition("column", args[2])
		if err != nil {
			return err
		}
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			loc, found, err := s.JumpDeclaration(ctx, args[0], line, column, args[3])
			if err != nil || !found {
				return jumpResult{}, err
			}
			return jumpResult{Found: true, Location: &loc}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(jumpCmd)
}
