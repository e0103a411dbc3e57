// Package cli provides the command-line interface for rita.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/princespaghetti/rita/internal/config"
	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/telemetry"
)

// Version information (will be set by build flags in production).
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rita",
	Short: "Download BTS Airline On-Time Performance data",
	Long: `rita downloads monthly Airline On-Time Performance archives from the
Bureau of Transportation Statistics TranStats site.

Each download replays the site's form: it opens a session, submits the
field selection for one month and saves the generated zip archive as
MM-YYYY.zip in a local directory or an object store bucket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(stdout, "rita version %s\n", Version)
		fmt.Fprintf(stdout, "  commit: %s\n", GitCommit)
		fmt.Fprintf(stdout, "  built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.rita/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v", err)
	})
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		Error("%v", err)
		os.Exit(ritaerrors.ExitCode(err))
	}
}

// loadSettings reads the configuration and builds the logger for a command.
func loadSettings() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, telemetry.NewLogger(stderr, verbose), nil
}

// usageError reports a command line mistake with the configuration exit code.
func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ritaerrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
