package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Color codes using ANSI escape sequences
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorsEnabled determines if color output is enabled
var colorsEnabled = true

// stdout and stderr receive all command output. Tests swap them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func init() {
	// Disable colors if NO_COLOR environment variable is set
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
	}
}

// Color wraps text with ANSI color codes if colors are enabled
func Color(text, color string) string {
	if !colorsEnabled {
		return text
	}
	return color + text + colorReset
}

// Success prints a success message with a green checkmark
func Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(stdout, "%s %s\n", Color("✓", colorGreen), msg)
}

// Error prints an error message with a red X to stderr
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(stderr, "%s Error: %s\n", Color("✗", colorRed), msg)
}

// Warning prints a warning message with a yellow warning sign
func Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(stdout, "%s Warning: %s\n", Color("⚠", colorYellow), msg)
}

// Info prints an informational message
func Info(format string, args ...interface{}) {
	fmt.Fprintln(stdout, fmt.Sprintf(format, args...))
}

// Header prints a section header with an underline
func Header(text string) {
	fmt.Fprintln(stdout, Color(text, colorBold))
	fmt.Fprintln(stdout, strings.Repeat("=", len(text)))
}

// Subheader prints a subsection header
func Subheader(text string) {
	fmt.Fprintln(stdout, Color(text, colorBold))
	fmt.Fprintln(stdout, strings.Repeat("-", len(text)))
}

// EmptyLine prints an empty line
func EmptyLine() {
	fmt.Fprintln(stdout)
}

// Field prints a labeled field (key-value pair)
func Field(label, value string) {
	labelFormatted := fmt.Sprintf("%-16s", label+":")
	fmt.Fprintf(stdout, "%s %s\n", Color(labelFormatted, colorGray), value)
}

// JSON marshals and prints data as indented JSON
func JSON(v interface{}) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatBytes formats byte sizes in human-readable format (B, KB, MB, etc.)
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// TruncateString truncates a string to maxLen with ellipsis
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// StatusIcon returns a colored status icon based on status string
func StatusIcon(status string) string {
	switch strings.ToLower(status) {
	case "pass", "ok", "success":
		return Color("✓", colorGreen)
	case "warn", "warning":
		return Color("⚠", colorYellow)
	case "fail", "error":
		return Color("✗", colorRed)
	default:
		return "•"
	}
}

// EnableColors enables color output
func EnableColors() {
	colorsEnabled = true
}

// DisableColors disables color output
func DisableColors() {
	colorsEnabled = false
}
