package form

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultHost is the TranStats host serving the download form.
	DefaultHost = "www.transtats.bts.gov"

	// OnTimeTableID identifies the Airline On-Time Performance table.
	OnTimeTableID = 236

	// DefaultUserAgent is sent on the form submission. The service rejects
	// submissions that do not look like they came from a browser.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Ubuntu Chromium/55.0.2883.87 Chrome/55.0.2883.87 Safari/537.36"

	// ContentType is the encoding of the form submission body.
	ContentType = "application/x-www-form-urlencoded"
)

// Endpoint locates the download form of one TranStats table.
type Endpoint struct {
	base    *url.URL
	TableID int
}

// DefaultEndpoint returns the production endpoint for the On-Time Performance table.
func DefaultEndpoint() Endpoint {
	return Endpoint{
		base:    &url.URL{Scheme: "https", Host: DefaultHost},
		TableID: OnTimeTableID,
	}
}

// NewEndpoint parses host, which may be a bare host name ("www.transtats.bts.gov")
// or a base URL ("http://127.0.0.1:8080").
func NewEndpoint(host string, tableID int) (Endpoint, error) {
	if host == "" {
		return Endpoint{}, fmt.Errorf("empty host")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse host %q: %w", host, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("host %q has no host name", host)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("host %q: unsupported scheme %q", host, u.Scheme)
	}

	return Endpoint{
		base:    &url.URL{Scheme: u.Scheme, Host: u.Host},
		TableID: tableID,
	}, nil
}

// DownloadURL is the form endpoint that is both warmed up (GET) and submitted to (POST).
func (e Endpoint) DownloadURL() string {
	return fmt.Sprintf("%s/DownLoad_Table.asp?Table_ID=%d&Has_Group=3&Is_Zipped=0", e.Origin(), e.TableID)
}

// RefererURL is the field selection page a browser would submit from.
func (e Endpoint) RefererURL() string {
	return fmt.Sprintf("%s/DL_SelectFields.asp?Table_ID=%d", e.Origin(), e.TableID)
}

// Origin returns scheme://host.
func (e Endpoint) Origin() string {
	if e.base == nil {
		return ""
	}
	return e.base.Scheme + "://" + e.base.Host
}

// Host returns the host (and port, if any) of the endpoint.
func (e Endpoint) Host() string {
	if e.base == nil {
		return ""
	}
	return e.base.Host
}

// Headers returns the header overrides a browser sends with the form submission.
// An empty userAgent selects DefaultUserAgent.
func Headers(e Endpoint, userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	h.Set("Referer", e.RefererURL())
	h.Set("Origin", e.Origin())
	h.Set("Content-Type", ContentType)
	return h
}
