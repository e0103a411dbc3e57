// Package telemetry builds the logger and tracer handed to a download.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lmittmann/tint"
)

// NewLogger returns a tint-formatted logger writing to w. Debug output is
// enabled by verbose; colour is disabled when NO_COLOR is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// restyLogger adapts slog to resty's Logger interface.
type restyLogger struct {
	logger *slog.Logger
}

// RestyLogger routes resty's internal warnings through logger.
func RestyLogger(logger *slog.Logger) resty.Logger {
	return restyLogger{logger: logger.With("component", "resty")}
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
