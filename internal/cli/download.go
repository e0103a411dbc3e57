package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/princespaghetti/rita/internal/download"
	"github.com/princespaghetti/rita/internal/period"
	"github.com/princespaghetti/rita/internal/telemetry"
)

var (
	downloadYear     int
	downloadMonth    int
	downloadDataPath string
)

// downloadOptions lets tests inject a transport or clock.
var downloadOptions []download.Option

// downloadCmd represents the download command.
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download one month of On-Time Performance data",
	Long: `Download the Airline On-Time Performance archive for one month.

The year must be between 1987 and the year of the date 90 days ago; newer
months are not published yet. The archive is saved as MM-YYYY.zip under the
data path, which may be a directory or a bucket URL (s3://, gs://,
azblob://). Local downloads are recorded in manifest.json next to the
archive.

Examples:
  rita download --year 2015 --month 3
  rita download --year 2015 --month 3 --data-path ./data
  rita download --year 2015 --month 3 --data-path s3://ontime-raw/monthly?region=us-east-1`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().IntVar(&downloadYear, "year", 0, "Year to download (required)")
	downloadCmd.Flags().IntVar(&downloadMonth, "month", 0, "Month to download, 1-12 (required)")
	downloadCmd.Flags().StringVar(&downloadDataPath, "data-path", "", "Destination directory or bucket URL (default from config, else the temp directory)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("year") {
		return usageError("--year is required")
	}
	if !cmd.Flags().Changed("month") {
		return usageError("--month is required")
	}

	// Bounds are checked before any configuration or network work.
	if _, err := period.New(downloadYear, downloadMonth, time.Now()); err != nil {
		return err
	}

	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	tracing, err := telemetry.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	d, err := download.New(cfg, logger, downloadOptions...)
	if err != nil {
		return err
	}

	res, err := d.Run(ctx, downloadYear, downloadMonth, downloadDataPath)
	if err != nil {
		return err
	}

	Success("Downloaded %s in %s", res.FileName, res.Elapsed.Round(time.Millisecond))
	Field("Location", res.Location)
	Field("Size", FormatBytes(res.Size))
	Field("SHA256", res.SHA256)
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
