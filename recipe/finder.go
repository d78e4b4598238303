// Package recipe finds a recipe for a query: it discovers candidate pages in
// each source's feed, picks one, and scrapes it.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pevans/recipys/argparser"
	"github.com/pevans/recipys/config"
	"github.com/pevans/recipys/discovery"
	"github.com/pevans/recipys/history"
	"github.com/pevans/recipys/scraper"
	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum gap between two outbound requests.
const DefaultMinInterval = time.Second

// Errors returned by Find.
var (
	ErrNoSources    = errors.New("no recipe source serves this meal")
	ErrNoCandidates = errors.New("no recipe matches the query")
)

// Recipe is a scraped recipe page.
type Recipe struct {
	Source       string   `json:"source"`
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	Image        string   `json:"image,omitempty"`
	Description  string   `json:"description,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// Recorder receives the outcome of every recipe page fetch.
type Recorder interface {
	Record(entry history.Entry) (*history.Entry, error)
}

// DiscoverFunc returns the candidate pages announced by a feed.
type DiscoverFunc func(ctx context.Context, feedURL, userAgent string) ([]discovery.Candidate, error)

// Finder finds recipes. Outbound requests are spaced at least minInterval
// apart, both across processes (via the persisted last request time) and
// across goroutines sharing the Finder.
type Finder struct {
	sources     []config.Source
	minInterval time.Duration
	recorder    Recorder
	client      *resty.Client
	discover    DiscoverFunc
	pick        func(n int) int
	timeout     time.Duration

	mu      sync.Mutex // guards cfg and serializes the throttle
	cfg     *config.ClientConfig
	limiter *rate.Limiter
}

// Option configures a Finder.
type Option func(*Finder)

// WithMinInterval sets the minimum gap between outbound requests. Zero
// disables throttling.
func WithMinInterval(interval time.Duration) Option {
	return func(f *Finder) {
		f.minInterval = interval
	}
}

// WithRecorder records every page fetch.
func WithRecorder(recorder Recorder) Option {
	return func(f *Finder) {
		f.recorder = recorder
	}
}

// WithClient sets the HTTP client used for recipe pages.
func WithClient(client *resty.Client) Option {
	return func(f *Finder) {
		f.client = client
	}
}

// WithDiscoverer replaces feed discovery.
func WithDiscoverer(discover DiscoverFunc) Option {
	return func(f *Finder) {
		f.discover = discover
	}
}

// WithPicker replaces the random choice among n candidates. pick must
// return a value in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(f *Finder) {
		f.pick = pick
	}
}

// WithTimeout bounds each recipe page fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Finder) {
		f.timeout = timeout
	}
}

// NewFinder creates a finder over sources. cfg supplies request headers and
// the persisted last request time.
func NewFinder(sources []config.Source, cfg *config.ClientConfig, opts ...Option) *Finder {
	f := &Finder{
		sources:     append([]config.Source(nil), sources...),
		cfg:         cfg,
		minInterval: DefaultMinInterval,
		discover:    discovery.FetchCandidates,
		pick:        rand.IntN,
		timeout:     scraper.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = resty.New()
	}

	limit := rate.Inf
	if f.minInterval > 0 {
		limit = rate.Every(f.minInterval)
	}
	f.limiter = rate.NewLimiter(limit, 1)

	return f
}

// Find returns a recipe matching query. Sources are tried in random order
// until one announces a matching page; that page is then scraped. Fetch
// failures of the page are returned as *scraper.FetchError.
func (f *Finder) Find(ctx context.Context, query argparser.Query) (*Recipe, error) {
	sources := f.sourcesFor(query.Meal)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	var discoverErrs []error
	for _, source := range sources {
		candidates, err := f.candidates(ctx, source, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("recipe: discovery failed", "source", source.Name, "error", err)
			discoverErrs = append(discoverErrs, fmt.Errorf("%s: %w", source.Name, err))
			continue
		}
		if len(candidates) == 0 {
			slog.Debug("recipe: no matching candidates", "source", source.Name)
			continue
		}

		candidate := candidates[f.pick(len(candidates))]
		return f.scrape(ctx, source, candidate)
	}

	if len(discoverErrs) > 0 {
		return nil, fmt.Errorf("failed to discover recipes: %w", errors.Join(discoverErrs...))
	}
	return nil, ErrNoCandidates
}

// sourcesFor returns the sources serving meal in random order.
func (f *Finder) sourcesFor(meal argparser.Meal) []config.Source {
	var sources []config.Source
	for _, source := range f.sources {
		if source.ServesMeal(string(meal)) {
			sources = append(sources, source)
		}
	}

	for i := len(sources) - 1; i > 0; i-- {
		j := f.pick(i + 1)
		sources[i], sources[j] = sources[j], sources[i]
	}

	return sources
}

func (f *Finder) candidates(ctx context.Context, source config.Source, query argparser.Query) ([]discovery.Candidate, error) {
	headers, err := f.throttle(ctx)
	if err != nil {
		return nil, err
	}

	all, err := f.discover(ctx, source.FeedURL, headers["User-Agent"])
	if err != nil {
		return nil, err
	}

	return discovery.Filter(all, query), nil
}

func (f *Finder) scrape(ctx context.Context, source config.Source, candidate discovery.Candidate) (*Recipe, error) {
	headers, err := f.throttle(ctx)
	if err != nil {
		return nil, err
	}

	s := scraper.New(candidate.URL, source.Targets,
		scraper.WithHeaders(headers),
		scraper.WithClient(f.client),
		scraper.WithTimeout(f.timeout),
	)

	fields, err := s.Get(ctx)
	if err != nil {
		f.record(history.Entry{
			Source: source.Name,
			URL:    candidate.URL,
			Title:  candidate.Title,
			Status: history.StatusError,
			Error:  err.Error(),
		})
		return nil, err
	}

	recipe := FromFields(source.Name, candidate.URL, fields)
	if recipe.Title == noTitle && candidate.Title != "" {
		recipe.Title = candidate.Title
	}

	f.record(history.Entry{
		Source: source.Name,
		URL:    candidate.URL,
		Title:  recipe.Title,
		Status: history.StatusOK,
	})

	slog.Info("recipe: found", "source", source.Name, "url", candidate.URL, "title", recipe.Title)
	return recipe, nil
}

// throttle waits until an outbound request is allowed, marks it as made, and
// returns the headers to send with it.
func (f *Finder) throttle(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request slot: %w", err)
	}

	delta, err := f.cfg.DeltaLastRequest()
	if err != nil {
		return nil, fmt.Errorf("failed to read last request time: %w", err)
	}

	if wait := f.minInterval - delta; wait > 0 {
		slog.Debug("recipe: throttling", "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err := f.cfg.UpdateTimeLastRequest(); err != nil {
		return nil, fmt.Errorf("failed to update last request time: %w", err)
	}

	return f.cfg.RequestHeaders(), nil
}

func (f *Finder) record(entry history.Entry) {
	if f.recorder == nil {
		return
	}
	if _, err := f.recorder.Record(entry); err != nil {
		slog.Warn("recipe: failed to record history", "url", entry.URL, "error", err)
	}
}

const noTitle = "(No title)"

// FromFields builds a recipe from scraped fields named after the config
// Field constants. Whitespace in every value is collapsed and empty
// ingredient or instruction lines are dropped.
func FromFields(source, pageURL string, fields *scraper.Fields) *Recipe {
	title := normalize(fields.First(config.FieldTitle))
	if title == "" {
		title = noTitle
	}

	return &Recipe{
		Source:       source,
		URL:          pageURL,
		Title:        title,
		Image:        strings.TrimSpace(fields.First(config.FieldImage)),
		Description:  normalize(fields.First(config.FieldDescription)),
		Ingredients:  lines(fields, config.FieldIngredients),
		Instructions: lines(fields, config.FieldInstructions),
	}
}

func lines(fields *scraper.Fields, name string) []string {
	values, _ := fields.Get(name)
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = normalize(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
