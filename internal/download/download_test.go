package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princespaghetti/rita/internal/config"
	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/sink"
)

var (
	zipBody  = []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00on-time-archive")
	fixedNow = time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)
)

// countingTransport counts every request that reaches the network.
type countingTransport struct {
	calls atomic.Int32
	base  http.RoundTripper
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.base.RoundTrip(req)
}

// transtats serves the three step download protocol.
type transtats struct {
	server *httptest.Server

	submitHits   atomic.Int32
	artifactHits atomic.Int32
	postCookie   atomic.Bool
	getCookie    atomic.Bool

	submit func(w http.ResponseWriter, r *http.Request)
}

func newTranstats(t *testing.T) *transtats {
	t.Helper()

	f := &transtats{}
	mux := http.NewServeMux()
	mux.HandleFunc("/DownLoad_Table.asp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "ASPSESSIONIDQ", Value: "warm", Path: "/"})
			_, _ = io.WriteString(w, "<html><title>Download</title></html>")
			return
		}
		f.submitHits.Add(1)
		if _, err := r.Cookie("ASPSESSIONIDQ"); err == nil {
			f.postCookie.Store(true)
		}
		if f.submit != nil {
			f.submit(w, r)
			return
		}
		w.Header().Set("Location", "/files/generated123.zip")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/files/generated123.zip", func(w http.ResponseWriter, r *http.Request) {
		f.artifactHits.Add(1)
		if _, err := r.Cookie("ASPSESSIONIDQ"); err == nil {
			f.getCookie.Store(true)
		}
		_, _ = w.Write(zipBody)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newDownloader(t *testing.T, host, dataPath string, opts ...Option) (*Downloader, *countingTransport) {
	t.Helper()

	cfg := config.Default()
	cfg.Host = host
	cfg.DataPath = dataPath
	cfg.RequestTimeout = 5 * time.Second

	rt := &countingTransport{base: http.DefaultTransport}
	opts = append([]Option{WithTransport(rt), WithClock(func() time.Time { return fixedNow })}, opts...)

	d, err := New(cfg, nil, opts...)
	require.NoError(t, err)
	return d, rt
}

func TestRun_Success(t *testing.T) {
	fake := newTranstats(t)
	dir := t.TempDir()
	d, _ := newDownloader(t, fake.server.URL, dir)

	res, err := d.Run(context.Background(), 2015, 3, "")
	require.NoError(t, err)

	assert.Equal(t, "03-2015.zip", res.FileName)
	assert.Equal(t, filepath.Join(dir, "03-2015.zip"), res.Location)
	assert.Equal(t, fake.server.URL+"/files/generated123.zip", res.SourceURL)
	assert.Equal(t, zipBody, res.Data)
	assert.Equal(t, int64(len(zipBody)), res.Size)
	assert.Equal(t, sink.ComputeSHA256(zipBody), res.SHA256)

	written, err := os.ReadFile(res.Location)
	require.NoError(t, err)
	assert.Equal(t, zipBody, written)

	assert.True(t, fake.postCookie.Load(), "session cookie should be sent on the submission")
	assert.True(t, fake.getCookie.Load(), "session cookie should be sent on the artifact request")

	m, err := sink.ReadManifest(dir)
	require.NoError(t, err)
	entry, ok := m.Find("2015-03")
	require.True(t, ok)
	assert.Equal(t, "03-2015.zip", entry.File)
	assert.Equal(t, res.SHA256, entry.SHA256)
	assert.Equal(t, res.SourceURL, entry.SourceURL)
	assert.True(t, fixedNow.Equal(entry.DownloadedAt))
}

func TestRun_ExplicitDestination(t *testing.T) {
	fake := newTranstats(t)
	configured := t.TempDir()
	override := filepath.Join(t.TempDir(), "override")
	d, _ := newDownloader(t, fake.server.URL, configured)

	res, err := d.Run(context.Background(), 2020, 12, override)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(override, "12-2020.zip"), res.Location)
	_, err = os.Stat(filepath.Join(configured, "12-2020.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Idempotent(t *testing.T) {
	fake := newTranstats(t)
	dir := t.TempDir()
	d, _ := newDownloader(t, fake.server.URL, dir)

	first, err := d.Run(context.Background(), 2015, 3, "")
	require.NoError(t, err)
	second, err := d.Run(context.Background(), 2015, 3, "")
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.FileName, second.FileName)
	assert.Equal(t, first.Location, second.Location)

	m, err := sink.ReadManifest(dir)
	require.NoError(t, err)
	assert.Len(t, m.Entries, 1)
}

func TestRun_MemoryBucket(t *testing.T) {
	fake := newTranstats(t)
	d, _ := newDownloader(t, fake.server.URL, "mem://bucket/ontime")

	res, err := d.Run(context.Background(), 1987, 10, "")
	require.NoError(t, err)
	assert.Equal(t, "mem://bucket/ontime/10-1987.zip", res.Location)
}

func TestRun_ValidationMakesNoRequests(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		field string
	}{
		{"year before records", 1986, 6, "year"},
		{"year inside lag window", 2027, 1, "year"},
		{"month zero", 2015, 0, "month"},
		{"month thirteen", 2015, 13, "month"},
		{"both invalid reports year", 1900, 99, "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newTranstats(t)
			dir := t.TempDir()
			d, rt := newDownloader(t, fake.server.URL, dir)

			_, err := d.Run(context.Background(), tt.year, tt.month, "")
			require.Error(t, err)

			var validationErr *ritaerrors.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %T: %v", err, err)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, ritaerrors.ExitConfigError, ritaerrors.ExitCode(err))

			assert.Zero(t, rt.calls.Load(), "no request may be made for an invalid period")
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_SubmitReturnsForm(t *testing.T) {
	fake := newTranstats(t)
	fake.submit = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><title>Download Raw Data</title></html>")
	}
	dir := t.TempDir()
	d, _ := newDownloader(t, fake.server.URL, dir)

	_, err := d.Run(context.Background(), 2015, 3, "")
	require.Error(t, err)

	var statusErr *ritaerrors.UnexpectedStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusOK, statusErr.StatusCode)
	assert.Equal(t, ritaerrors.StageSubmit, statusErr.Stage)
	assert.Zero(t, fake.artifactHits.Load())

	_, err = os.Stat(filepath.Join(dir, "03-2015.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RedirectWithoutLocation(t *testing.T) {
	fake := newTranstats(t)
	fake.submit = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}
	d, _ := newDownloader(t, fake.server.URL, t.TempDir())

	_, err := d.Run(context.Background(), 2015, 3, "")
	require.Error(t, err)

	var protocolErr *ritaerrors.ProtocolViolationError
	require.True(t, errors.As(err, &protocolErr))
	assert.ErrorIs(t, err, ritaerrors.ErrMissingLocation)
	assert.Zero(t, fake.artifactHits.Load())
	assert.Equal(t, ritaerrors.ExitProtocolError, ritaerrors.ExitCode(err))
}

func TestRun_UnwritableDestination(t *testing.T) {
	fake := newTranstats(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	d, _ := newDownloader(t, fake.server.URL, blocker)

	_, err := d.Run(context.Background(), 2015, 3, "")
	require.Error(t, err)

	var sinkErr *ritaerrors.SinkWriteError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, ritaerrors.ExitSinkError, ritaerrors.ExitCode(err))
}

func TestRun_UnopenableDestination(t *testing.T) {
	t.Setenv("AZURE_STORAGE_ACCOUNT", "")

	tests := []struct {
		name string
		dest string
	}{
		{"bucket without credentials", "azblob://container/prefix"},
		{"unsupported scheme", "ftp://example.com/ontime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newTranstats(t)
			d, rt := newDownloader(t, fake.server.URL, t.TempDir())

			_, err := d.Run(context.Background(), 2015, 3, tt.dest)
			require.Error(t, err)

			var sinkErr *ritaerrors.SinkWriteError
			require.True(t, errors.As(err, &sinkErr))
			assert.Equal(t, tt.dest, sinkErr.Dest)
			assert.Equal(t, ritaerrors.ExitSinkError, ritaerrors.ExitCode(err))
			assert.Zero(t, rt.calls.Load(), "destination is checked before any request")
		})
	}
}

func TestRun_ManifestNotWritable(t *testing.T) {
	fake := newTranstats(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, sink.ManifestFile), 0755))
	d, _ := newDownloader(t, fake.server.URL, dir)

	_, err := d.Run(context.Background(), 2015, 3, "")
	require.Error(t, err)

	var sinkErr *ritaerrors.SinkWriteError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, filepath.Join(dir, sink.ManifestFile), sinkErr.Dest)
	assert.Equal(t, ritaerrors.ExitSinkError, ritaerrors.ExitCode(err))
}

func TestRun_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	d, _ := newDownloader(t, host, t.TempDir())

	_, err := d.Run(context.Background(), 2015, 3, "")
	require.Error(t, err)

	var connErr *ritaerrors.ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, ritaerrors.StageWarmUp, connErr.Stage)
}

func TestRun_LogsDownload(t *testing.T) {
	fake := newTranstats(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := config.Default()
	cfg.Host = fake.server.URL
	cfg.DataPath = t.TempDir()

	d, err := New(cfg, logger, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), 2015, 3, "")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=downloaded")
	assert.Contains(t, out, "03-2015.zip")
	assert.Contains(t, out, "bytes=")
	assert.Contains(t, out, "elapsed=")
}

func TestNew_InvalidHost(t *testing.T) {
	cfg := config.Default()
	cfg.Host = "ftp://transtats.bts.gov"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}
