package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/form"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RITA_HOST", "RITA_DATA_PATH", "RITA_TIMEOUT", "RITA_USER_AGENT", "RITA_OTLP_ENDPOINT"} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, form.DefaultHost, cfg.Host)
	assert.Equal(t, form.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, os.TempDir(), cfg.DataPath)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
host: http://127.0.0.1:8080
request_timeout: 30s
data_path: /srv/ontime
otlp_endpoint: http://localhost:4318
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Host)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/srv/ontime", cfg.DataPath)
	assert.Equal(t, "http://localhost:4318", cfg.OTLPEndpoint)
	assert.Equal(t, form.DefaultUserAgent, cfg.UserAgent, "unset keys keep their defaults")
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)

	endpoint, err := cfg.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/DownLoad_Table.asp?Table_ID=236&Has_Group=3&Is_Zipped=0", endpoint.DownloadURL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "data_path: /from/file\nrequest_timeout: 30s\n")

	t.Setenv("RITA_DATA_PATH", "s3://bucket/ontime")
	t.Setenv("RITA_TIMEOUT", "5s")
	t.Setenv("RITA_USER_AGENT", "rita-test")
	t.Setenv("RITA_HOST", "transtats.example.com")
	t.Setenv("RITA_OTLP_ENDPOINT", "http://collector:4318")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/ontime", cfg.DataPath)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "rita-test", cfg.UserAgent)
	assert.Equal(t, "transtats.example.com", cfg.Host)
	assert.Equal(t, "http://collector:4318", cfg.OTLPEndpoint)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "malformed yaml", content: "host: [unterminated"},
		{name: "bad duration", content: "request_timeout: soon"},
		{name: "negative timeout", content: "request_timeout: -1s"},
		{name: "empty data path", content: "data_path: \"\""},
		{name: "bad host scheme", content: "host: ftp://transtats.bts.gov"},
		{name: "bad env timeout", content: "", env: map[string]string{"RITA_TIMEOUT": "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ritaerrors.ErrInvalidConfig), "got %v", err)
			assert.Equal(t, ritaerrors.ExitConfigError, ritaerrors.ExitCode(err))
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".rita", "config.yaml")

	cfg := Default()
	cfg.DataPath = "gs://ontime/raw"
	cfg.RequestTimeout = 45 * time.Second
	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "data_path: gs://ontime/raw")
	assert.Contains(t, string(raw), "request_timeout: 45s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
