package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a single fetch unless overridden with WithTimeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent when no headers are configured.
const DefaultUserAgent = "recipys/1.0 (+https://github.com/pevans/recipys)"

// Scraper fetches one page and extracts the fields described by its search
// terms. A Scraper keeps no per-request state, so one instance may serve
// concurrent Get calls.
type Scraper struct {
	url     string
	terms   []SearchTerms
	headers map[string]string
	timeout time.Duration
	client  *resty.Client
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHeaders sets the request headers. Accept-Encoding is left to the
// transport so the body always arrives decompressed.
func WithHeaders(headers map[string]string) Option {
	return func(s *Scraper) {
		s.headers = make(map[string]string, len(headers))
		for key, value := range headers {
			if http.CanonicalHeaderKey(key) == "Accept-Encoding" {
				continue
			}
			s.headers[key] = value
		}
	}
}

// WithTimeout bounds each fetch. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scraper) {
		s.timeout = timeout
	}
}

// WithClient replaces the HTTP client.
func WithClient(client *resty.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// New creates a scraper for pageURL. The terms are copied, so later changes
// to the caller's slice do not affect the scraper.
func New(pageURL string, terms []SearchTerms, opts ...Option) *Scraper {
	s := &Scraper{
		url:     pageURL,
		terms:   append([]SearchTerms(nil), terms...),
		headers: map[string]string{"User-Agent": DefaultUserAgent},
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = resty.New()
	}

	return s
}

// URL returns the page the scraper fetches.
func (s *Scraper) URL() string {
	return s.url
}

// Get fetches the page and extracts every search term. Any failure to obtain
// the page, including 4xx and 5xx responses, is returned as a *FetchError.
func (s *Scraper) Get(ctx context.Context) (*Fields, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		slog.Warn("scraper: fetch failed", "url", s.url, "error", err)
		return nil, err
	}

	fields, err := Extract(body, s.terms)
	if err != nil {
		return nil, newParseError(s.url, err)
	}

	slog.Debug("scraper: page extracted", "url", s.url, "fields", fields.Len())
	return fields, nil
}

// fetch performs a single GET and returns the body decoded to UTF-8.
func (s *Scraper) fetch(ctx context.Context) (string, error) {
	parsed, err := url.Parse(s.url)
	if err != nil {
		return "", newRequestError(s.url, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", newRequestError(s.url, fmt.Errorf("unsupported scheme %q", parsed.Scheme))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeaders(s.headers).
		Get(s.url)
	if err != nil {
		return "", newTransportError(s.url, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return "", newStatusError(s.url, resp.StatusCode())
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body()), resp.Header().Get("Content-Type"))
	if err != nil {
		return "", newParseError(s.url, fmt.Errorf("failed to decode body: %w", err))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", newParseError(s.url, fmt.Errorf("failed to read body: %w", err))
	}

	return string(body), nil
}
