// Package discovery finds candidate recipe pages in a source's RSS or Atom
// feed and narrows them down to those matching a query.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/recipys/argparser"
)

// DefaultTimeout bounds a feed fetch.
const DefaultTimeout = 10 * time.Second

// Candidate is a recipe page announced by a feed.
type Candidate struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Categories  []string  `json:"categories"`
	PublishedAt time.Time `json:"published_at"`
}

// FetchCandidates fetches and parses the RSS or Atom feed at feedURL. Items
// without a usable http(s) link are dropped.
func FetchCandidates(ctx context.Context, feedURL, userAgent string) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	if userAgent != "" {
		fp.UserAgent = userAgent
	}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := FeedToCandidates(feed)
	slog.Debug("discovery: feed parsed", "feed", feedURL, "items", len(feed.Items), "candidates", len(candidates))
	return candidates, nil
}

// FeedToCandidates converts every item of feed with a valid link.
func FeedToCandidates(feed *gofeed.Feed) []Candidate {
	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !validLink(item.Link) {
			continue
		}
		candidates = append(candidates, FeedItemToCandidate(item))
	}
	return candidates
}

// FeedItemToCandidate converts a single RSS or Atom item. gofeed normalizes
// both formats, so <description> and Atom <summary> both land in
// item.Description.
func FeedItemToCandidate(item *gofeed.Item) Candidate {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "(No title)"
	}

	var publishedAt time.Time
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		publishedAt = *item.UpdatedParsed
	}

	categories := make([]string, 0, len(item.Categories))
	for _, category := range item.Categories {
		if category = strings.TrimSpace(category); category != "" {
			categories = append(categories, category)
		}
	}

	return Candidate{
		Title:       title,
		Description: plainText(item.Description),
		URL:         item.Link,
		Categories:  categories,
		PublishedAt: publishedAt,
	}
}

// Filter returns the candidates whose title, description, or categories
// mention every ingredient of query. When query names a meal, candidates
// mentioning it are preferred; if none do, the ingredient matches are
// returned unchanged.
func Filter(candidates []Candidate, query argparser.Query) []Candidate {
	matched := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.mentionsAll(query.Ingredients) {
			matched = append(matched, c)
		}
	}

	if query.Meal == "" {
		return matched
	}

	preferred := make([]Candidate, 0, len(matched))
	for _, c := range matched {
		if c.mentions(string(query.Meal)) {
			preferred = append(preferred, c)
		}
	}
	if len(preferred) == 0 {
		return matched
	}
	return preferred
}

func (c Candidate) mentionsAll(words []string) bool {
	for _, word := range words {
		if !c.mentions(word) {
			return false
		}
	}
	return true
}

func (c Candidate) mentions(word string) bool {
	word = strings.ToLower(word)
	if strings.Contains(strings.ToLower(c.Title), word) ||
		strings.Contains(strings.ToLower(c.Description), word) {
		return true
	}
	for _, category := range c.Categories {
		if strings.Contains(strings.ToLower(category), word) {
			return true
		}
	}
	return false
}

// plainText strips markup from feed descriptions, which are frequently
// HTML fragments.
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func validLink(link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
