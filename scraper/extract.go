package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Extract parses rawHTML and collects the values described by terms. Terms
// are applied independently and in order; when two terms share a name the
// first one wins and the later one is dropped.
func Extract(rawHTML string, terms []SearchTerms) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return ExtractDocument(doc, terms), nil
}

// ExtractDocument collects the values described by terms from an already
// parsed document.
func ExtractDocument(doc *goquery.Document, terms []SearchTerms) *Fields {
	fields := NewFields()

	for _, term := range terms {
		name := term.Target.Name
		if _, exists := fields.Get(name); exists {
			slog.Debug("scraper: duplicate target name ignored", "name", name)
			continue
		}

		fields.add(name, collect(doc, term))
	}

	return fields
}

// collect walks candidate elements in document order and stops once the
// term's limit of matching elements has been inspected.
func collect(doc *goquery.Document, term SearchTerms) []string {
	target := term.Target
	limit := term.limit()
	results := []string{}

	candidates, ok := locate(doc, target)
	if !ok {
		return results
	}

	inspected := 0
	candidates.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if target.Selector == "" && !hasAttributeValue(s.Get(0), target.Attribute, target.Value) {
			return true
		}

		inspected++
		if value, ok := extractValue(s, target.TargetAttribute); ok {
			results = append(results, value)
		}

		return inspected < limit
	})

	return results
}

// locate returns the elements to consider for target. Attribute targets
// consider every element; selector targets only the selector's matches.
func locate(doc *goquery.Document, target HtmlSearchTarget) (*goquery.Selection, bool) {
	if target.Selector == "" {
		return doc.Find("*"), true
	}

	matcher, err := cascadia.Compile(target.Selector)
	if err != nil {
		slog.Warn("scraper: invalid selector", "name", target.Name, "selector", target.Selector, "error", err)
		return nil, false
	}

	return doc.FindMatcher(matcher), true
}

// hasAttributeValue reports whether n carries attribute name with a value
// equal to value or containing it as a whitespace-separated token, the way
// class lists are matched.
func hasAttributeValue(n *html.Node, name, value string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}

	name = strings.ToLower(name)
	for _, attr := range n.Attr {
		if attr.Key != name {
			continue
		}
		if attr.Val == value {
			return true
		}
		for _, token := range strings.Fields(attr.Val) {
			if token == value {
				return true
			}
		}
	}

	return false
}

// extractValue returns the value of attribute, or the text content when
// attribute is empty. Missing or empty attribute values are reported as
// absent; text content is always present, even when empty.
func extractValue(s *goquery.Selection, attribute string) (string, bool) {
	if attribute == "" {
		return s.Text(), true
	}

	value, ok := s.Attr(strings.ToLower(attribute))
	if !ok || value == "" {
		return "", false
	}

	return value, true
}
