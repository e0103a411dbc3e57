package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/princespaghetti/rita/internal/config"
)

var (
	initForce    bool
	initDataPath string
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with the built-in defaults to ~/.rita/config.yaml,
or to the path given by --config.

The file sets the TranStats host, the browser user agent sent with the form,
the per-request timeout, the default data path and an optional OTLP endpoint
for traces. Environment variables (RITA_HOST, RITA_DATA_PATH, RITA_TIMEOUT,
RITA_USER_AGENT, RITA_OTLP_ENDPOINT) override it.

Use --force to overwrite an existing file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initDataPath, "data-path", "", "Default data path to record")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return usageError("configuration already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if initDataPath != "" {
		cfg.DataPath = initDataPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(path, cfg); err != nil {
		return err
	}

	Success("Configuration written to %s", path)
	Field("Data path", cfg.DataPath)
	Field("Timeout", cfg.RequestTimeout.String())
	EmptyLine()
	Info("Next steps:")
	fmt.Fprintf(stdout, "  rita download --year 2015 --month 3\n")
	fmt.Fprintf(stdout, "  rita status\n")
	return nil
}
