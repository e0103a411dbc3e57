// Package download runs one monthly On-Time Performance download from
// validation through to the stored artifact.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/princespaghetti/rita/internal/config"
	"github.com/princespaghetti/rita/internal/fetcher"
	"github.com/princespaghetti/rita/internal/form"
	"github.com/princespaghetti/rita/internal/period"
	"github.com/princespaghetti/rita/internal/sink"
	"github.com/princespaghetti/rita/internal/telemetry"
)

var tracer = otel.Tracer("rita/download")

// Result describes a completed download.
type Result struct {
	Period    period.Period
	FileName  string
	Location  string // where the sink stored the artifact
	SourceURL string
	SHA256    string
	Size      int64
	Elapsed   time.Duration
	Data      []byte
}

// Downloader runs downloads against one configured endpoint. Each Run uses
// its own session.
type Downloader struct {
	cfg       *config.Config
	endpoint  form.Endpoint
	logger    *slog.Logger
	transport http.RoundTripper
	now       func() time.Time
}

// Option customises a Downloader.
type Option func(*Downloader)

// WithTransport sends every request through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Downloader) {
		d.transport = rt
	}
}

// WithClock replaces time.Now for year validation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) {
		d.now = now
	}
}

// New creates a Downloader. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Downloader, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = telemetry.Discard()
	}

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, fmt.Errorf("configure endpoint: %w", err)
	}

	d := &Downloader{
		cfg:      cfg,
		endpoint: endpoint,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run downloads the given month and stores it under dest, or the configured
// data path when dest is empty. Invalid periods and destinations that cannot
// be opened fail before any network activity.
func (d *Downloader) Run(ctx context.Context, year, month int, dest string) (*Result, error) {
	start := d.now()

	p, err := period.New(year, month, start)
	if err != nil {
		return nil, err
	}

	if dest == "" {
		dest = d.cfg.DataPath
	}

	ctx, span := tracer.Start(ctx, "download:Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("period", p.String()),
		attribute.String("destination", dest),
	)

	out, err := sink.Open(ctx, dest)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer func() {
		if err := out.Close(); err != nil {
			d.logger.Warn("close sink", "dest", dest, "error", err)
		}
	}()

	payload := form.Build(p)
	headers := form.Headers(d.endpoint, d.cfg.UserAgent)

	session, err := fetcher.NewSession(d.endpoint, fetcher.Options{
		RequestTimeout: d.cfg.RequestTimeout,
		Transport:      d.transport,
		Logger:         d.logger,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	d.logger.Info("requesting", "period", p.String(), "month", p.MonthName(), "year", p.Year)

	data, err := session.Fetch(ctx, payload, headers)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &Result{
		Period:    p,
		FileName:  p.FileName(),
		SourceURL: session.Source(),
		SHA256:    sink.ComputeSHA256(data),
		Size:      int64(len(data)),
		Data:      data,
	}

	if err := d.store(ctx, out, res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.Elapsed = d.now().Sub(start)
	span.SetAttributes(attribute.Int64("artifact.bytes", res.Size))

	d.logger.Info("downloaded",
		"file", res.Location,
		"bytes", res.Size,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

func (d *Downloader) store(ctx context.Context, out sink.Sink, res *Result) error {
	location, err := out.Write(ctx, res.FileName, res.Data)
	if err != nil {
		return err
	}
	res.Location = location

	recorder, ok := out.(sink.Recorder)
	if !ok {
		return nil
	}

	entry := sink.Entry{
		Period:       res.Period.String(),
		File:         res.FileName,
		SHA256:       res.SHA256,
		SizeBytes:    res.Size,
		SourceURL:    res.SourceURL,
		DownloadedAt: d.now().UTC(),
	}
	return recorder.Record(ctx, entry)
}
