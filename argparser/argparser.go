// Package argparser turns the recipys command-line grammar into a Query:
//
//	recipys [breakfast|lunch|dinner|dessert] [with <ingredient>...]
package argparser

import (
	"errors"
	"fmt"
	"strings"
)

// Meal is a normalized meal keyword. The zero value means no meal was given.
type Meal string

const (
	Breakfast Meal = "breakfast"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
	Dessert   Meal = "dessert"
)

// AcceptedMeals lists every meal keyword the grammar recognizes.
var AcceptedMeals = []Meal{Breakfast, Lunch, Dinner, Dessert}

// withKeyword introduces the ingredient list.
const withKeyword = "with"

// ErrUnrecognizedToken is returned when a token is neither a meal keyword in
// first position nor the ingredient keyword.
var ErrUnrecognizedToken = errors.New("unrecognized argument")

// Query is a parsed command line. Ingredients is nil when none were given or
// none survived sanitizing.
type Query struct {
	Meal        Meal     `json:"meal,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// IsEmpty reports whether the query names neither a meal nor ingredients.
func (q Query) IsEmpty() bool {
	return q.Meal == "" && len(q.Ingredients) == 0
}

// ParseMeal returns the meal for token, ignoring case.
func ParseMeal(token string) (Meal, bool) {
	candidate := Meal(strings.ToLower(token))
	for _, meal := range AcceptedMeals {
		if candidate == meal {
			return meal, true
		}
	}
	return "", false
}

// Parse parses args, which must not include the program name. An
// unrecognized leading token invalidates the whole command line, in which
// case the zero Query is returned together with ErrUnrecognizedToken.
func Parse(args []string) (Query, error) {
	var query Query

	rest := args
	if len(rest) > 0 {
		if meal, ok := ParseMeal(rest[0]); ok {
			query.Meal = meal
			rest = rest[1:]
		}
	}

	if len(rest) == 0 {
		return query, nil
	}

	if !strings.EqualFold(rest[0], withKeyword) {
		return Query{}, fmt.Errorf("%w: %q", ErrUnrecognizedToken, rest[0])
	}

	for _, token := range rest[1:] {
		if ingredient := SanitizeIngredient(token); ingredient != "" {
			query.Ingredients = append(query.Ingredients, ingredient)
		}
	}

	return query, nil
}

// SanitizeIngredient strips every character that is not an ASCII letter and
// lower-cases the rest.
func SanitizeIngredient(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}
