package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pevans/recipys/scraper"
	"gopkg.in/yaml.v3"
)

// SourcesFileName is the name of the recipe sources file.
const SourcesFileName = "sources.yaml"

// Field names a source's targets are expected to use.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldImage        = "image"
	FieldIngredients  = "ingredients"
	FieldInstructions = "instructions"
)

// ErrNoSources is returned when a sources file defines no sources.
var ErrNoSources = errors.New("no recipe sources defined")

// Source is a recipe website: where to discover recipe pages and how to
// extract a recipe from one.
type Source struct {
	Name    string                `yaml:"name" json:"name"`
	FeedURL string                `yaml:"feed_url" json:"feed_url"`
	Meals   []string              `yaml:"meals,omitempty" json:"meals,omitempty"` // empty: every meal
	Targets []scraper.SearchTerms `yaml:"targets" json:"targets"`
}

// ServesMeal reports whether the source should be used for meal. An empty
// meal is served by every source.
func (s Source) ServesMeal(meal string) bool {
	if meal == "" || len(s.Meals) == 0 {
		return true
	}
	for _, m := range s.Meals {
		if strings.EqualFold(m, meal) {
			return true
		}
	}
	return false
}

// Validate checks that the source can be discovered and scraped.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("source name is required")
	}
	if s.FeedURL == "" {
		return fmt.Errorf("source %q: feed_url is required", s.Name)
	}
	if len(s.Targets) == 0 {
		return fmt.Errorf("source %q: at least one target is required", s.Name)
	}
	for _, term := range s.Targets {
		if err := term.Target.Validate(); err != nil {
			return fmt.Errorf("source %q: %w", s.Name, err)
		}
	}
	return nil
}

// SourcesFile represents the structure of ~/.recipys/sources.yaml.
type SourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// DefaultSources returns the sources used when no sources file exists.
func DefaultSources() []Source {
	return []Source{
		{
			Name:    "RecipeTin Eats",
			FeedURL: "https://www.recipetineats.com/feed/",
			Targets: []scraper.SearchTerms{
				scraper.NewSearchTerms(scraper.NewHtmlSearchTarget(FieldTitle, "property", "og:title", "content"), false),
				scraper.NewSearchTerms(scraper.NewHtmlSearchTarget(FieldDescription, "name", "description", "content"), false),
				scraper.NewSearchTerms(scraper.NewHtmlSearchTarget(FieldImage, "property", "og:image", "content"), false),
				scraper.NewSearchTerms(scraper.NewHtmlSearchTarget(FieldIngredients, "class", "wprm-recipe-ingredient", ""), true),
				scraper.NewSearchTerms(scraper.NewHtmlSearchTarget(FieldInstructions, "class", "wprm-recipe-instruction-text", ""), true),
			},
		},
	}
}

// LoadSources loads recipe sources from path. Returns DefaultSources if the
// file doesn't exist (not an error). Returns error if the file exists but
// cannot be parsed or a source is invalid.
func LoadSources(path string) ([]Source, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, ErrNoSources
	}

	for _, source := range file.Sources {
		if err := source.Validate(); err != nil {
			return nil, fmt.Errorf("invalid sources file: %w", err)
		}
	}

	return file.Sources, nil
}
