package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/pevans/recipys/argparser"
	"github.com/pevans/recipys/recipe"
	"github.com/pevans/recipys/scraper"
	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "recipys [breakfast|lunch|dinner|dessert] [with <ingredient>...]",
	Short: "recipys finds a random recipe for a meal and ingredients.",
	Long: `recipys finds a random recipe for a meal and ingredients.

Environment Variables:
  RECIPYS_CONFIG        Path to the client config file (default: ~/.recipys/config.json)
  RECIPYS_SOURCES       Path to the recipe sources file (default: ~/.recipys/sources.yaml)
  RECIPYS_HISTORY_DSN   Path to the history database (default: ~/.recipys/history.db, "off" disables)
  RECIPYS_MIN_INTERVAL  Minimum gap between requests (default: 1s)`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFind,
}

func init() {
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the recipe as JSON")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFind(cmd *cobra.Command, args []string) error {
	query, err := argparser.Parse(args)
	if err != nil {
		return fmt.Errorf("%w\n\nUsage:\n  %s", err, cmd.UseLine())
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	found, err := env.Finder().Find(cmd.Context(), query)
	if err != nil {
		var fetchErr *scraper.FetchError
		switch {
		case errors.As(err, &fetchErr):
			return errors.New(fetchErr.UserMessage())
		case errors.Is(err, recipe.ErrNoSources), errors.Is(err, recipe.ErrNoCandidates):
			return err
		default:
			return fmt.Errorf("failed to find recipe: %w", err)
		}
	}

	if jsonOutput {
		return printRecipeJSON(found)
	}
	printRecipe(found)
	return nil
}
