package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cleanDataPath string

// cleanCmd represents the clean command.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover temporary and lock files from a data path",
	Long: `Remove files left behind by interrupted downloads: partially written
archives (*.tmp) and lock files (*.lock). Downloaded archives and
manifest.json are never touched.

Do not run clean while a download into the same data path is in progress.

Examples:
  rita clean
  rita clean --data-path ./data`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVar(&cleanDataPath, "data-path", "", "Data directory to clean (default from config)")
}

func runClean(cmd *cobra.Command, args []string) error {
	dataPath := cleanDataPath
	if dataPath == "" {
		cfg, _, err := loadSettings()
		if err != nil {
			return err
		}
		dataPath = cfg.DataPath
	}

	dir, ok := localDir(dataPath)
	if !ok {
		return usageError("clean works on local data paths only, got %s", dataPath)
	}

	Info("Cleaning temporary files in %s...", dir)

	found, err := leftoverFiles(dir)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		EmptyLine()
		Success("No temporary files found")
		return nil
	}

	removedCount := 0
	for _, file := range found {
		if err := os.Remove(file); err != nil {
			Warning("Failed to remove %s: %v", file, err)
			continue
		}
		removedCount++
		fmt.Fprintf(stdout, "  Removed: %s\n", filepath.Base(file))
	}

	EmptyLine()
	Success("Removed %d temporary file(s)", removedCount)
	return nil
}

// leftoverFiles lists *.tmp and *.lock files directly inside dir.
func leftoverFiles(dir string) ([]string, error) {
	var found []string
	for _, pattern := range []string{"*.tmp", "*.lock"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		found = append(found, matches...)
	}
	return found, nil
}
