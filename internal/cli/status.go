package cli

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/sink"
)

var (
	statusJSON     bool
	statusDataPath string
)

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the months downloaded into a data path",
	Long: `List the months recorded in a local data path's manifest.json without
making network connections.

Shows, for each downloaded month:
  - Archive file name and size
  - SHA-256 of the archive
  - When it was downloaded

Examples:
  rita status
  rita status --data-path ./data --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	statusCmd.Flags().StringVar(&statusDataPath, "data-path", "", "Data directory to inspect (default from config)")
}

// StatusOutput represents the structured output of the status command.
type StatusOutput struct {
	DataPath  string       `json:"data_path"`
	Count     int          `json:"count"`
	TotalSize int64        `json:"total_size_bytes"`
	Downloads []sink.Entry `json:"downloads"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	dataPath := statusDataPath
	if dataPath == "" {
		cfg, _, err := loadSettings()
		if err != nil {
			return err
		}
		dataPath = cfg.DataPath
	}

	dir, ok := localDir(dataPath)
	if !ok {
		return usageError("status reads local manifests only, got %s", dataPath)
	}

	status, err := gatherStatus(dir)
	if err != nil {
		return err
	}

	if statusJSON {
		return JSON(status)
	}
	printStatusHuman(status)
	return nil
}

// gatherStatus reads the manifest in dataPath. A path with no manifest has
// no downloads.
func gatherStatus(dataPath string) (StatusOutput, error) {
	status := StatusOutput{
		DataPath:  dataPath,
		Downloads: []sink.Entry{},
	}

	m, err := sink.ReadManifest(dataPath)
	if errors.Is(err, ritaerrors.ErrManifestNotFound) {
		return status, nil
	}
	if err != nil {
		return status, err
	}

	status.Downloads = m.Entries
	status.Count = len(m.Entries)
	for _, e := range m.Entries {
		status.TotalSize += e.SizeBytes
	}
	return status, nil
}

// printStatusHuman prints the status in a human-readable format.
func printStatusHuman(status StatusOutput) {
	Header("Download Status")
	Field("Data Path", status.DataPath)

	if status.Count == 0 {
		Info("")
		Info("No downloads recorded. Run 'rita download --year YYYY --month M' to fetch a month.")
		return
	}

	Field("Months", formatCount(status.Count))
	Field("Total Size", FormatBytes(status.TotalSize))
	Info("")

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.AppendHeader(table.Row{"Period", "File", "Size", "SHA256", "Downloaded"})
	for _, e := range status.Downloads {
		t.AppendRow(table.Row{
			e.Period,
			e.File,
			FormatBytes(e.SizeBytes),
			TruncateString(e.SHA256, 15),
			e.DownloadedAt.Local().Format(time.DateTime),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func formatCount(n int) string {
	if n == 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", n)
}

// localDir returns the directory dataPath names, or false when it is an
// object store URL.
func localDir(dataPath string) (string, bool) {
	u, err := url.Parse(dataPath)
	if err != nil || len(u.Scheme) <= 1 {
		return dataPath, true
	}
	if u.Scheme == "file" {
		return u.Path, true
	}
	return "", false
}
