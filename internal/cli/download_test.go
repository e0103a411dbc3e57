package cli

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
)

var archive = []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00cli-archive")

// newTranStats serves the download form and counts every request.
func newTranStats(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/DownLoad_Table.asp", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "ASPSESSIONID", Value: "cli", Path: "/"})
			_, _ = io.WriteString(w, "<html></html>")
			return
		}
		w.Header().Set("Location", "/files/generated123.zip")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/files/generated123.zip", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &hits
}

func TestDownloadCmd_Flags(t *testing.T) {
	for _, name := range []string{"year", "month", "data-path"} {
		if downloadCmd.Flags().Lookup(name) == nil {
			t.Errorf("--%s flag not found", name)
		}
	}
}

func TestDownloadCmd_Success(t *testing.T) {
	server, _ := newTranStats(t)
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, server.URL, t.TempDir())

	out, _, err := runCLI(t, "download", "--config", cfgPath, "--year", "2015", "--month", "3", "--data-path", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Downloaded 03-2015.zip")
	assert.Contains(t, out, filepath.Join(dir, "03-2015.zip"))

	data, err := os.ReadFile(filepath.Join(dir, "03-2015.zip"))
	require.NoError(t, err)
	assert.Equal(t, archive, data)
}

func TestDownloadCmd_UsesConfiguredDataPath(t *testing.T) {
	server, _ := newTranStats(t)
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, server.URL, dir)

	_, _, err := runCLI(t, "download", "--config", cfgPath, "--year", "1999", "--month", "12")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "12-1999.zip"))
	assert.NoError(t, err)
}

func TestDownloadCmd_InvalidPeriod(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"month too large", []string{"--year", "2015", "--month", "13"}, "month"},
		{"month zero", []string{"--year", "2015", "--month", "0"}, "month"},
		{"year too early", []string{"--year", "1986", "--month", "1"}, "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := newTranStats(t)
			cfgPath := writeTestConfig(t, server.URL, t.TempDir())

			args := append([]string{"download", "--config", cfgPath}, tt.args...)
			_, _, err := runCLI(t, args...)
			require.Error(t, err)

			var validationErr *ritaerrors.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, ritaerrors.ExitConfigError, ritaerrors.ExitCode(err))
			assert.Zero(t, hits.Load())
		})
	}
}

func TestDownloadCmd_MissingFlags(t *testing.T) {
	_, _, err := runCLI(t, "download", "--month", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--year is required")
	assert.Equal(t, ritaerrors.ExitConfigError, ritaerrors.ExitCode(err))

	_, _, err = runCLI(t, "download", "--year", "2015")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--month is required")
}

func TestDownloadCmd_BadFlagValue(t *testing.T) {
	_, _, err := runCLI(t, "download", "--year", "twenty", "--month", "3")
	require.Error(t, err)
	assert.Equal(t, ritaerrors.ExitConfigError, ritaerrors.ExitCode(err))
}

func TestDownloadCmd_ServerRejectsSubmission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><title>Download Raw Data</title></html>")
	}))
	t.Cleanup(server.Close)
	cfgPath := writeTestConfig(t, server.URL, t.TempDir())

	_, _, err := runCLI(t, "download", "--config", cfgPath, "--year", "2015", "--month", "3")
	require.Error(t, err)
	assert.Equal(t, ritaerrors.ExitProtocolError, ritaerrors.ExitCode(err))
}
