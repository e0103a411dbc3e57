// Package fetcher drives the TranStats download protocol over one
// cookie-carrying HTTP session: warm up, submit the form without following
// the redirect, then fetch the generated artifact.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/form"
	"github.com/princespaghetti/rita/internal/telemetry"
)

var tracer = otel.Tracer("rita/fetcher")

// DefaultRequestTimeout bounds each individual request of a session.
const DefaultRequestTimeout = 2 * time.Minute

// Options configures a Session.
type Options struct {
	// RequestTimeout bounds each request. Zero selects DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Transport replaces the HTTP transport. Nil keeps resty's default.
	Transport http.RoundTripper

	// Logger receives per-step debug records. Nil discards them.
	Logger *slog.Logger
}

// Location is the artifact URL captured from the submission's redirect.
type Location struct {
	// Raw is the Location header value as sent by the server.
	Raw string
	URL *url.URL
}

func (l *Location) String() string {
	return l.URL.String()
}

// Session is one download operation's HTTP state: a cookie jar, header
// overrides and the protocol position. A Session must not be shared between
// operations or goroutines.
type Session struct {
	endpoint form.Endpoint
	http     *resty.Client
	timeout  time.Duration
	logger   *slog.Logger
	state    State
	source   *Location
}

// NewSession creates a session with an empty cookie jar for endpoint.
func NewSession(endpoint form.Endpoint, opts Options) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetRedirectPolicy(redirectPolicy())
	client.SetLogger(telemetry.RestyLogger(logger))
	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	telemetry.InstrumentResty(client, "rita/http")

	return &Session{
		endpoint: endpoint,
		http:     client,
		timeout:  timeout,
		logger:   logger,
		state:    Initial,
	}, nil
}

// State returns the session's current protocol state.
func (s *Session) State() State {
	return s.state
}

// Source returns the artifact URL captured by Submit, or "" before that.
func (s *Session) Source() string {
	if s.source == nil {
		return ""
	}
	return s.source.String()
}

// Cookies returns the cookies the session would send to the endpoint.
func (s *Session) Cookies() []*http.Cookie {
	u, err := url.Parse(s.endpoint.DownloadURL())
	if err != nil {
		return nil
	}
	return s.http.GetClient().Jar.Cookies(u)
}

// Fetch runs the whole protocol and returns the artifact bytes.
func (s *Session) Fetch(ctx context.Context, payload *form.Payload, headers http.Header) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "session:Fetch")
	defer span.End()

	if err := s.Warm(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	loc, err := s.Submit(ctx, payload, headers)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	data, err := s.Materialize(ctx, loc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return data, nil
}

// Warm loads the form page so the server issues its session cookies.
func (s *Session) Warm(ctx context.Context) error {
	if err := s.expect(Initial); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "session:Warm")
	defer span.End()

	target := s.endpoint.DownloadURL()
	res, err := s.get(ctx, ritaerrors.StageWarmUp, target)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.fail(err)
	}

	if !isSuccess(res.StatusCode()) {
		err := &ritaerrors.UnexpectedStatusError{
			Stage:      ritaerrors.StageWarmUp,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
		}
		span.SetStatus(codes.Error, err.Error())
		return s.fail(err)
	}

	cookies := len(s.Cookies())
	span.SetAttributes(attribute.Int("session.cookies", cookies))
	s.logger.Debug("session warmed", "url", target, "status", res.StatusCode(), "cookies", cookies)

	s.state = SessionWarmed
	return nil
}

// Submit posts payload with headers and returns the redirect target without
// following it. Any response other than 302 Found is an UnexpectedStatusError;
// a 302 without a usable Location header is a ProtocolViolationError.
//
// headers become session-wide overrides, so the artifact request carries
// them too. Content-Type only applies to the submission.
func (s *Session) Submit(ctx context.Context, payload *form.Payload, headers http.Header) (*Location, error) {
	if err := s.expect(SessionWarmed); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "session:Submit")
	defer span.End()

	contentType := form.ContentType
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		if http.CanonicalHeaderKey(name) == "Content-Type" {
			contentType = values[0]
			continue
		}
		s.http.SetHeader(name, values[0])
	}

	target := s.endpoint.DownloadURL()
	body := payload.Encode()

	reqCtx, cancel := context.WithTimeout(withRedirectCapture(ctx), s.timeout)
	defer cancel()

	s.logger.Debug("submitting form", "url", target, "fields", payload.Len(), "bytes", len(body))

	res, err := s.http.R().
		SetContext(reqCtx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		Post(target)
	if err != nil {
		err = classify(ritaerrors.StageSubmit, target, s.timeout, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}
	s.state = FormSubmitted

	if res.StatusCode() != http.StatusFound {
		err := &ritaerrors.UnexpectedStatusError{
			Stage:      ritaerrors.StageSubmit,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
			Detail:     pageTitle(res),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}

	loc, err := s.location(target, res.Header().Get("Location"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}

	span.SetAttributes(attribute.String("artifact.url", loc.String()))
	s.logger.Debug("redirect captured", "location", loc.String())

	s.source = loc
	s.state = RedirectCaptured
	return loc, nil
}

// Materialize downloads the artifact at loc with the session's cookies.
func (s *Session) Materialize(ctx context.Context, loc *Location) ([]byte, error) {
	if err := s.expect(RedirectCaptured); err != nil {
		return nil, err
	}
	if loc == nil || loc.URL == nil {
		return nil, s.fail(fmt.Errorf("%w: nil location", ritaerrors.ErrSessionState))
	}

	ctx, span := tracer.Start(ctx, "session:Materialize")
	defer span.End()

	target := loc.String()
	res, err := s.get(ctx, ritaerrors.StageMaterialize, target)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}

	if !isSuccess(res.StatusCode()) {
		err := &ritaerrors.UnexpectedStatusError{
			Stage:      ritaerrors.StageMaterialize,
			StatusCode: res.StatusCode(),
			Status:     res.Status(),
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}

	data := res.Body()
	if len(data) == 0 {
		err := &ritaerrors.ProtocolViolationError{Stage: ritaerrors.StageMaterialize, Err: ritaerrors.ErrEmptyArtifact}
		span.SetStatus(codes.Error, err.Error())
		return nil, s.fail(err)
	}

	span.SetAttributes(attribute.Int("artifact.bytes", len(data)))
	s.logger.Debug("artifact fetched", "url", target, "bytes", len(data))

	s.state = ArtifactFetched
	return data, nil
}

func (s *Session) get(ctx context.Context, stage ritaerrors.Stage, target string) (*resty.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.http.R().
		SetContext(reqCtx).
		Get(target)
	if err != nil {
		return nil, classify(stage, target, s.timeout, err)
	}
	return res, nil
}

// location resolves the Location header against the submission URL.
func (s *Session) location(base, raw string) (*Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ritaerrors.ProtocolViolationError{Stage: ritaerrors.StageSubmit, Err: ritaerrors.ErrMissingLocation}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse submission url: %w", err)
	}

	target, err := baseURL.Parse(raw)
	if err != nil {
		return nil, &ritaerrors.ProtocolViolationError{
			Stage: ritaerrors.StageSubmit,
			Err:   fmt.Errorf("invalid Location %q: %w", raw, err),
		}
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, &ritaerrors.ProtocolViolationError{
			Stage: ritaerrors.StageSubmit,
			Err:   fmt.Errorf("invalid Location %q: unsupported scheme", raw),
		}
	}

	return &Location{Raw: raw, URL: target}, nil
}

func (s *Session) expect(want State) error {
	if s.state == Failed {
		return ritaerrors.ErrSessionFailed
	}
	if s.state != want {
		return fmt.Errorf("%w: expected %s, session is %s", ritaerrors.ErrSessionState, want, s.state)
	}
	return nil
}

func (s *Session) fail(err error) error {
	s.state = Failed
	return err
}

// classify turns a transport error into a TimeoutError or ConnectivityError.
func classify(stage ritaerrors.Stage, target string, timeout time.Duration, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ritaerrors.TimeoutError{Stage: stage, URL: target, Timeout: timeout, Err: err}
	}
	return &ritaerrors.ConnectivityError{Stage: stage, URL: target, Err: err}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// pageTitle returns the <title> of an HTML response, which is where the
// service puts its error message when it re-renders the form.
func pageTitle(res *resty.Response) string {
	if !strings.Contains(res.Header().Get("Content-Type"), "html") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
