package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/titanous/json5"
)

// FileName is the name of the client configuration file.
const FileName = "config.json"

// DefaultUserAgent is the user agent written to a fresh configuration.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) " +
	"Gecko/20100101 Firefox/89.0"

// futureSkew is how far ahead of the local clock a stored last_request may
// be before it is considered tampered with.
const futureSkew = time.Minute

// Errors for raw configuration payloads.
var (
	ErrMissingKey     = errors.New("missing key")
	ErrMalformedValue = errors.New("malformed value")
)

// DefaultHeaders returns the request headers written to a fresh
// configuration.
func DefaultHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Referer":                   "https://www.duckduckgo.com/",
	}
}

// ClientConfig holds the HTTP client settings persisted between runs. The
// file on disk is authoritative: Read replaces every in-memory field with
// the file's content. A ClientConfig is not safe for concurrent use.
type ClientConfig struct {
	path string

	UserAgent   string
	Headers     map[string]string
	LastRequest time.Time
}

// fileFormat is the on-disk layout of config.json.
type fileFormat struct {
	UserAgent   string            `json:"user_agent"`
	Headers     map[string]string `json:"headers"`
	LastRequest float64           `json:"last_request"`
}

// DefaultDir returns ~/.recipys.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".recipys"), nil
}

// NewClientConfig creates a configuration backed by path, holding default
// values until Read is called.
func NewClientConfig(path string) *ClientConfig {
	return &ClientConfig{
		path:        path,
		UserAgent:   DefaultUserAgent,
		Headers:     DefaultHeaders(DefaultUserAgent),
		LastRequest: time.Now(),
	}
}

// Path returns the file backing the configuration.
func (c *ClientConfig) Path() string {
	return c.path
}

// Read loads the configuration file. A missing file is created from the
// in-memory values. Malformed or missing fields in an existing file are
// reset to defaults and the healed file is written back.
func (c *ClientConfig) Read() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return c.Save()
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var payload map[string]any
	if err := json5.Unmarshal(data, &payload); err != nil {
		slog.Warn("config: unreadable config file, resetting", "path", c.path, "error", err)
		payload = map[string]any{}
	}

	if healed := c.load(payload, time.Now()); healed {
		slog.Info("config: repaired config file", "path", c.path)
		return c.Save()
	}

	return nil
}

// load copies payload into c, substituting defaults for invalid fields. It
// reports whether any field had to be substituted.
func (c *ClientConfig) load(payload map[string]any, now time.Time) bool {
	healed := false

	if userAgent, ok := payload["user_agent"].(string); ok && userAgent != "" {
		c.UserAgent = userAgent
	} else {
		c.UserAgent = DefaultUserAgent
		healed = true
	}

	headers, complete := headersFromPayload(payload)
	switch {
	case headers == nil:
		c.Headers = DefaultHeaders(c.UserAgent)
		healed = true
	case !complete:
		headers["User-Agent"] = c.UserAgent
		c.Headers = headers
		healed = true
	default:
		c.Headers = headers
	}

	lastRequest, err := lastRequestFromPayload(payload)
	if err != nil || !plausibleLastRequest(lastRequest, now) {
		c.LastRequest = now
		healed = true
	} else {
		c.LastRequest = lastRequest
	}

	return healed
}

// headersFromPayload returns the string-valued headers of payload, or nil if
// payload has no headers object. complete is false when a header had to be
// dropped or User-Agent is missing.
func headersFromPayload(payload map[string]any) (headers map[string]string, complete bool) {
	raw, ok := payload["headers"].(map[string]any)
	if !ok {
		return nil, false
	}

	complete = true
	headers = make(map[string]string, len(raw))
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			complete = false
			continue
		}
		headers[key] = s
	}

	if headers["User-Agent"] == "" {
		complete = false
	}

	return headers, complete
}

// lastRequestFromPayload extracts last_request from a raw payload.
func lastRequestFromPayload(payload map[string]any) (time.Time, error) {
	raw, ok := payload["last_request"]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: last_request", ErrMissingKey)
	}

	seconds, ok := raw.(float64)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: last_request is %T", ErrMalformedValue, raw)
	}

	return fromUnixSeconds(seconds), nil
}

func plausibleLastRequest(t, now time.Time) bool {
	return t.Unix() > 0 && !t.After(now.Add(futureSkew))
}

// Save writes the configuration to its file, creating the directory if
// needed.
func (c *ClientConfig) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(fileFormat{
		UserAgent:   c.UserAgent,
		Headers:     c.Headers,
		LastRequest: toUnixSeconds(c.LastRequest),
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// RequestHeaders returns a copy of the configured request headers.
func (c *ClientConfig) RequestHeaders() map[string]string {
	return maps.Clone(c.Headers)
}

// DeltaLastRequest re-reads the file and returns the time elapsed since the
// last recorded request.
func (c *ClientConfig) DeltaLastRequest() (time.Duration, error) {
	if err := c.Read(); err != nil {
		return 0, err
	}
	return time.Since(c.LastRequest), nil
}

// UpdateTimeLastRequest records now as the last request and persists it.
func (c *ClientConfig) UpdateTimeLastRequest() error {
	c.LastRequest = time.Now()
	return c.Save()
}

func fromUnixSeconds(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second)))
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
