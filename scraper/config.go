package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// MaxMultipleResults caps how many matching elements a term with
// ReturnMultiple set inspects. Single-result terms inspect one.
const MaxMultipleResults = 20

// Errors returned by HtmlSearchTarget.Validate.
var (
	ErrEmptyName    = errors.New("target name is required")
	ErrEmptyLocator = errors.New("target needs an attribute and value or a selector")
)

// HtmlSearchTarget names one field to extract from a page and how to locate
// it. Elements are located either by an attribute name/value pair or, when
// Selector is set, by a CSS selector.
type HtmlSearchTarget struct {
	Name      string `json:"name" yaml:"name"`
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`

	// TargetAttribute is the attribute whose value is returned. When empty
	// the element's text content is returned instead.
	TargetAttribute string `json:"target_attribute,omitempty" yaml:"target_attribute,omitempty"`

	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
}

// NewHtmlSearchTarget creates a target located by attribute name and value.
func NewHtmlSearchTarget(name, attribute, value, targetAttribute string) HtmlSearchTarget {
	return HtmlSearchTarget{
		Name:            name,
		Attribute:       attribute,
		Value:           value,
		TargetAttribute: targetAttribute,
	}
}

// Validate reports whether the target can locate anything.
func (t HtmlSearchTarget) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}

	if t.Selector != "" {
		if _, err := cascadia.Compile(t.Selector); err != nil {
			return fmt.Errorf("target %q: invalid selector: %w", t.Name, err)
		}
		return nil
	}

	if t.Attribute == "" || t.Value == "" {
		return fmt.Errorf("target %q: %w", t.Name, ErrEmptyLocator)
	}

	return nil
}

// SearchTerms wraps a target with its multiplicity.
type SearchTerms struct {
	Target HtmlSearchTarget `json:"target" yaml:"target"`

	// ReturnMultiple collects up to MaxMultipleResults matches. When false
	// only the first match is used.
	ReturnMultiple bool `json:"return_multiple" yaml:"return_multiple"`
}

// NewSearchTerms creates search terms for a single target.
func NewSearchTerms(target HtmlSearchTarget, returnMultiple bool) SearchTerms {
	return SearchTerms{
		Target:         target,
		ReturnMultiple: returnMultiple,
	}
}

// limit returns the number of matching elements to inspect.
func (s SearchTerms) limit() int {
	if s.ReturnMultiple {
		return MaxMultipleResults
	}
	return 1
}
