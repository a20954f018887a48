package cli

import (
	"context"

	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

var addImportCmd = &cobra.Command{
	Use:   "add-import <file> <fqcn>",
	Short: "Bind an import in the parsed file",
	Long: `Bind fqcn as a single-type import of file. Adding an import that is
already present succeeds; a simple name bound to another class is refused.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			added, err := s.AddImport(ctx, args[0], args[1])
			return map[string]bool{"added": added}, err
		})
	},
}

var optimizeImportsCmd = &cobra.Command{
	Use:   "optimize-imports <file>",
	Short: "List the imports the file actually uses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			imports, err := s.OptimizeImports(ctx, args[0])
			if imports == nil {
				imports = []string{}
			}
			return map[string][]string{"imports": imports}, err
		})
	},
}

var missingImportsCmd = &cobra.Command{
	Use:   "missing-imports <file>",
	Short: "Suggest imports for unresolved type names",
	Long: `Map every type name the file references but cannot resolve to the
classes of that name found in the project and its dependencies. A project
that was never indexed is indexed first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			return s.SearchMissingImports(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(addImportCmd)
	rootCmd.AddCommand(optimizeImportsCmd)
	rootCmd.AddCommand(missingImportsCmd)
}
