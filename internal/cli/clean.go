package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cleanQuietFlag bool
var cleanAllFlag bool

// cleanCmd represents the clear-cache command
var cleanCmd = &cobra.Command{
	Use:     "clear-cache",
	Aliases: []string{"clean"},
	Short:   "Drop the persisted project model",
	Long: `Clear-cache removes the persisted project model so the next start loads
the project from its build descriptor again.

Use --all to delete the whole cache directory of the project, including the
persisted class index.

The configuration file (.javalens/config.yml) is preserved.

Examples:
  javalens clear-cache
  javalens clear-cache --all --quiet
`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
	cleanCmd.Flags().BoolVarP(&cleanAllFlag, "all", "a", false, "Delete the entire cache directory")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	s, cfg, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	cachePath := s.CacheDir()

	if err := s.ClearCache(); err != nil {
		s.Shutdown(cfg.Session.ShutdownTimeout)
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	// The class index database stays open until shutdown.
	if err := s.Shutdown(cfg.Session.ShutdownTimeout); err != nil {
		return err
	}

	if !cleanAllFlag {
		if !cleanQuietFlag {
			fmt.Fprintf(out, "✓ Cleared project model for %s\n", s.Root())
		}
		return nil
	}

	totalSize, fileCount, err := getCacheStats(cachePath)
	if err != nil {
		totalSize, fileCount = 0, 0
	}
	if err := os.RemoveAll(cachePath); err != nil {
		return fmt.Errorf("failed to remove cache: %w", err)
	}

	if !cleanQuietFlag {
		if fileCount > 0 {
			fmt.Fprintf(out, "✓ Cleaned entire cache (%d files, ~%.1f MB)\n", fileCount, totalSize)
		} else {
			fmt.Fprintln(out, "✓ Cleaned entire cache")
		}
	}
	return nil
}

// getCacheStats calculates total cache size and file count
func getCacheStats(cachePath string) (totalSizeMB float64, fileCount int, err error) {
	err = filepath.WalkDir(cachePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fileCount++

		info, err := d.Info()
		if err == nil {
			totalSizeMB += float64(info.Size()) / (1024 * 1024)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return totalSizeMB, fileCount, nil
}
