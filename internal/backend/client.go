// Package backend is a client for the access-control API that owns
// token validity, face matching and the persistent audit log.
package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to the access-control backend.
type Client struct {
	URL         string
	parsedURL   *url.URL
	httpClient  *http.Client
	accessToken string
	captureDir  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAccessToken sets the JWT sent to admin-only endpoints.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithCaptureDir enables response capturing (see SetCaptureDir).
func WithCaptureDir(dir string) Option {
	return func(c *Client) {
		c.captureDir = dir
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL scheme %q", parsed.Scheme)
	}

	c := &Client{URL: parsed.String(), parsedURL: parsed, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	if c.captureDir != "" {
		if err := c.SetCaptureDir(c.captureDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// resolveURL builds a full URL from the base URL and the given path segments.
// If the last segment contains a query string (e.g. "logs/?page=2"), it is
// split so JoinPath only receives the path portion and the query is appended.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	last := pathSegments[len(pathSegments)-1]
	if pathPart, query, ok := strings.Cut(last, "?"); ok {
		pathSegments[len(pathSegments)-1] = pathPart
		result := c.parsedURL.JoinPath(pathSegments...)
		if strings.HasSuffix(pathPart, "/") && !strings.HasSuffix(result.Path, "/") {
			result.Path += "/"
		}
		result.RawQuery = query
		return result.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	return strings.TrimSpace(string(body))
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "-").Replace(endpoint)
	filename = strings.Trim(filename, "_")
	timestamp := time.Now().Format("20060102_150405.000")
	filename = fmt.Sprintf("%s_%s.json", filename, timestamp)

	path := filepath.Join(c.captureDir, filename)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	// WriteFile error is non-critical for capturing - report and continue
	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}
