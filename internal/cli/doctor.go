package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/princespaghetti/rita/internal/config"
	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/fetcher"
	"github.com/princespaghetti/rita/internal/sink"
)

var (
	doctorJSON     bool
	doctorOnline   bool
	doctorDataPath string
)

// doctorCmd represents the doctor command.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostics on the configuration and data path",
	Long: `Run diagnostics to find problems before a download does.

Checks performed:
  - Configuration file loads and validates
  - Data path is writable (local) or its bucket opens (remote)
  - Every archive in manifest.json exists and matches its SHA-256
  - TranStats issues a session (only with --online)

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.

Examples:
  rita doctor
  rita doctor --online
  rita doctor --data-path ./data --json`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorOnline, "online", false, "Also check that TranStats issues a session")
	doctorCmd.Flags().StringVar(&doctorDataPath, "data-path", "", "Data path to check (default from config)")
}

// CheckResult represents the result of a single diagnostic check.
type CheckResult struct {
	Name        string   `json:"name"`
	Status      string   `json:"status"` // "pass", "warn", "fail"
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// DoctorOutput represents the complete diagnostic output.
type DoctorOutput struct {
	Checks      []CheckResult `json:"checks"`
	Summary     Summary       `json:"summary"`
	OverallPass bool          `json:"overall_pass"`
}

// Summary contains counts of check results.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failures int `json:"failures"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmdContext(cmd), 2*time.Minute)
	defer cancel()

	cfgResult, cfg := checkConfig()
	dataPath := doctorDataPath
	if dataPath == "" {
		dataPath = cfg.DataPath
	}

	results := []CheckResult{
		cfgResult,
		checkDataPath(ctx, dataPath),
		checkManifest(dataPath),
	}
	if doctorOnline {
		results = append(results, checkTranStats(ctx, cfg))
	}

	output := summarize(results)

	if doctorJSON {
		if err := JSON(output); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
	} else {
		printDoctorOutput(output)
	}

	if !output.OverallPass {
		return fmt.Errorf("%d of %d checks failed", output.Summary.Failures, output.Summary.Total)
	}
	return nil
}

func summarize(results []CheckResult) DoctorOutput {
	summary := Summary{Total: len(results)}
	overallPass := true
	for _, result := range results {
		switch result.Status {
		case "pass":
			summary.Passed++
		case "warn":
			// Warnings don't fail the overall check
			summary.Warnings++
		case "fail":
			summary.Failures++
			overallPass = false
		}
	}

	return DoctorOutput{
		Checks:      results,
		Summary:     summary,
		OverallPass: overallPass,
	}
}

func printDoctorOutput(output DoctorOutput) {
	Header("Download Diagnostics")
	EmptyLine()

	for _, check := range output.Checks {
		fmt.Fprintf(stdout, "%s %s\n", StatusIcon(check.Status), check.Name)

		if (verbose || check.Status != "pass") && len(check.Issues) > 0 {
			for _, issue := range check.Issues {
				fmt.Fprintf(stdout, "  - %s\n", issue)
			}
		}

		if check.Status != "pass" && len(check.Suggestions) > 0 {
			for _, suggestion := range check.Suggestions {
				fmt.Fprintf(stdout, "  → %s\n", suggestion)
			}
		}

		EmptyLine()
	}

	Subheader("Summary")
	Field("Total checks", fmt.Sprintf("%d", output.Summary.Total))
	Field("Passed", fmt.Sprintf("%d", output.Summary.Passed))
	if output.Summary.Warnings > 0 {
		Field("Warnings", fmt.Sprintf("%d", output.Summary.Warnings))
	}
	if output.Summary.Failures > 0 {
		Field("Failures", fmt.Sprintf("%d", output.Summary.Failures))
	}
	EmptyLine()

	switch {
	case !output.OverallPass:
		Info("Status: FAIL")
	case output.Summary.Warnings > 0:
		Info("Status: PASS (with warnings)")
	default:
		Info("Status: PASS")
	}
}

// checkConfig loads the configuration. On failure the defaults are returned
// so the remaining checks can still run.
func checkConfig() (CheckResult, *config.Config) {
	result := CheckResult{
		Name:   "Configuration",
		Status: "pass",
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, err.Error())
		result.Suggestions = append(result.Suggestions, "Fix the config file or the RITA_* environment variables")
		return result, config.Default()
	}

	result.Issues = append(result.Issues,
		fmt.Sprintf("Host: %s", cfg.Host),
		fmt.Sprintf("Request timeout: %s", cfg.RequestTimeout),
	)
	return result, cfg
}

// checkDataPath verifies that archives can be written to dataPath.
func checkDataPath(ctx context.Context, dataPath string) CheckResult {
	result := CheckResult{
		Name:   "Data path",
		Status: "pass",
	}

	dir, ok := localDir(dataPath)
	if !ok {
		out, err := sink.Open(ctx, dataPath)
		if err != nil {
			result.Status = "fail"
			result.Issues = append(result.Issues, err.Error())
			result.Suggestions = append(result.Suggestions, "Use a directory or an s3://, gs:// or azblob:// bucket URL")
			return result
		}
		_ = out.Close()
		result.Issues = append(result.Issues, fmt.Sprintf("Bucket %s opens; write access is not probed", out.Location()))
		return result
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, fmt.Sprintf("Cannot create %s: %v", dir, err))
		result.Suggestions = append(result.Suggestions, "Choose another --data-path")
		return result
	}

	probe, err := os.CreateTemp(dir, ".rita-doctor-*")
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, fmt.Sprintf("Cannot write to %s: %v", dir, err))
		result.Suggestions = append(result.Suggestions, "Fix directory permissions: chmod u+w <dir>")
		return result
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	result.Issues = append(result.Issues, fmt.Sprintf("Writable: %s", dir))
	return result
}

// checkManifest verifies each recorded archive against its checksum.
func checkManifest(dataPath string) CheckResult {
	result := CheckResult{
		Name:   "Manifest integrity",
		Status: "pass",
	}

	dir, ok := localDir(dataPath)
	if !ok {
		result.Issues = append(result.Issues, "Remote data path has no manifest")
		return result
	}

	m, err := sink.ReadManifest(dir)
	if errors.Is(err, ritaerrors.ErrManifestNotFound) {
		result.Issues = append(result.Issues, "No downloads recorded yet")
		return result
	}
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, fmt.Sprintf("Cannot read manifest: %v", err))
		result.Suggestions = append(result.Suggestions, fmt.Sprintf("Remove %s and download the months again", filepath.Join(dir, sink.ManifestFile)))
		return result
	}

	missing, modified := 0, 0
	for _, e := range m.Entries {
		data, err := os.ReadFile(filepath.Join(dir, e.File))
		if err != nil {
			missing++
			result.Issues = append(result.Issues, fmt.Sprintf("%s: missing (%s)", e.Period, e.File))
			continue
		}
		if sink.ComputeSHA256(data) != e.SHA256 {
			modified++
			result.Issues = append(result.Issues, fmt.Sprintf("%s: checksum mismatch (%s)", e.Period, e.File))
		}
	}

	if missing > 0 || modified > 0 {
		result.Status = "warn"
		result.Suggestions = append(result.Suggestions, "Download the listed months again to restore them")
	} else {
		result.Issues = append(result.Issues, fmt.Sprintf("%d archive(s) verified", len(m.Entries)))
	}
	return result
}

// checkTranStats opens a session against the configured host.
func checkTranStats(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:   "TranStats connectivity",
		Status: "pass",
	}

	endpoint, err := cfg.Endpoint()
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, err.Error())
		return result
	}

	session, err := fetcher.NewSession(endpoint, fetcher.Options{RequestTimeout: cfg.RequestTimeout})
	if err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, err.Error())
		return result
	}

	if err := session.Warm(ctx); err != nil {
		result.Status = "fail"
		result.Issues = append(result.Issues, err.Error())
		result.Suggestions = append(result.Suggestions, "Check network access to "+endpoint.Host())
		return result
	}

	result.Issues = append(result.Issues, fmt.Sprintf("%s issued %d cookie(s)", endpoint.Host(), len(session.Cookies())))
	return result
}
