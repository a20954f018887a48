package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	projectFlag string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "javalens",
	Short: "javalens - Java source intelligence for editors",
	Long: `javalens answers editor questions about a Java project: completion
candidates, declarations, imports, test counterparts and compilation.

The project is found by walking upward from --project (default: the current
directory) to the nearest build.gradle, pom.xml or .javalens.toml. Results
are printed as JSON.`,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", ".", "file or directory inside the project")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log warnings and pipeline activity to stderr")
}

// initLogging keeps stdout clean for JSON; warnings only show with --verbose.
func initLogging(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetOutput(cmd.ErrOrStderr())
		log.SetFlags(log.Ltime | log.Lmicroseconds)
		return nil
	}
	log.SetOutput(io.Discard)
	return nil
}
