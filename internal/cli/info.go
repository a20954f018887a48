package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/javalens/internal/project"
	"github.com/spf13/cobra"
)

var infoJSONFlag bool

// projectInfo is what info reports.
type projectInfo struct {
	Project   *project.Model `json:"project"`
	CacheDir  string         `json:"cache_dir"`
	Classes   int            `json:"classes"` // entries in the persisted class index
	IndexedAt *time.Time     `json:"indexed_at,omitempty"`
	Jars      []string       `json:"jars"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the loaded project model and cache location",
	Long: `Display what javalens knows about the project.

Shows:
  - Project root, build system and descriptor
  - Modules in build order with their dependencies
  - Source, test and output directories
  - Resolved dependency jars
  - Cache directory, persisted class count and when it was indexed`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoJSONFlag, "json", false, "Output as JSON")
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, cfg, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Shutdown(cfg.Session.ShutdownTimeout)

	info := projectInfo{
		Project:  s.Project(),
		CacheDir: s.CacheDir(),
		Classes:  s.Index().Len(),
		Jars:     s.DependentJars(),
	}
	if builtAt, ok := s.Index().BuiltAt(); ok {
		info.IndexedAt = &builtAt
	}
	if infoJSONFlag {
		return printJSON(cmd.OutOrStdout(), info)
	}
	return formatInfo(cmd.OutOrStdout(), info)
}

func formatInfo(w io.Writer, info projectInfo) error {
	m := info.Project

	fmt.Fprintln(w, "Project:")
	fmt.Fprintf(w, "  Root:       %s\n", m.Root)
	fmt.Fprintf(w, "  Kind:       %s\n", m.Kind)
	fmt.Fprintf(w, "  Descriptor: %s\n", m.Descriptor)
	fmt.Fprintln(w)

	order, err := m.BuildOrder()
	if err != nil {
		return fmt.Errorf("invalid module graph: %w", err)
	}
	fmt.Fprintf(w, "Modules (%d):\n", len(order))
	for _, mod := range order {
		if len(mod.DependsOn) > 0 {
			fmt.Fprintf(w, "  %s -> %v\n", mod.Name, mod.DependsOn)
		} else {
			fmt.Fprintf(w, "  %s\n", mod.Name)
		}
	}
	fmt.Fprintln(w)

	printDirs(w, "Sources", m.SourceDirs)
	printDirs(w, "Tests", m.TestSourceDirs)
	fmt.Fprintf(w, "Output:      %s\n", m.OutputDir)
	fmt.Fprintf(w, "Test output: %s\n", m.TestOutputDir)
	fmt.Fprintf(w, "Jars:        %s\n", formatNumber(len(info.Jars)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Cache:")
	fmt.Fprintf(w, "  Location: %s\n", info.CacheDir)
	fmt.Fprintf(w, "  Classes:  %s\n", formatNumber(info.Classes))
	if info.IndexedAt != nil {
		fmt.Fprintf(w, "  Indexed:  %s\n", info.IndexedAt.Local().Format(time.RFC1123))
	} else {
		fmt.Fprintln(w, "  Indexed:  never")
	}
	return nil
}

func printDirs(w io.Writer, label string, dirs []string) {
	fmt.Fprintf(w, "%s:\n", label)
	if len(dirs) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, d := range dirs {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
