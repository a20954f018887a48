package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/javalens/internal/compiler"
	"github.com/mvp-joe/javalens/internal/session"
	"github.com/spf13/cobra"
)

// errCompileFailed makes the command exit non-zero after the diagnostics
// have been printed.
var errCompileFailed = errors.New("compilation failed")

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a file and report whether it is valid Java",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
			parsed, err := s.ParseFile(ctx, args[0])
			if err != nil {
				return map[string]any{"parsed": false, "error": err.Error()}, nil
			}
			return map[string]any{"parsed": parsed}, nil
		})
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile [file...]",
	Short: "Compile files, or the whole project",
	Long: `Compile the given files with javac into their module's output directory.
Test sources go to the test output directory with the main output on the
classpath.

Without arguments every module is compiled in dependency order, main sources
first, then tests. Tests are not compiled when main compilation fails.

Examples:
  javalens compile
  javalens compile src/main/java/p/Foo.java src/test/java/p/FooTest.java`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	var res *compiler.Result
	err := runWithSession(cmd, func(ctx context.Context, s *session.Session) (any, error) {
		var err error
		if len(args) == 0 {
			res, err = s.CompileProject(ctx)
			return res, err
		}

		res = &compiler.Result{Success: true}
		for _, path := range args {
			r, err := s.CompileFile(ctx, path)
			if err != nil {
				return nil, err
			}
			res.Success = res.Success && r.Success
			res.Diagnostics = append(res.Diagnostics, r.Diagnostics...)
			res.Sources += r.Sources
			res.Duration += r.Duration
		}
		return res, nil
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %d errors", errCompileFailed, len(res.Errors()))
	}
	return nil
}
