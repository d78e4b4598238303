package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pevans/recipys/history"
	"github.com/pevans/recipys/recipe"
)

// printRecipe prints a recipe in human-readable format
func printRecipe(r *recipe.Recipe) {
	fmt.Println(r.Title)
	fmt.Println(strings.Repeat("=", text.RuneWidthWithoutEscSequences(r.Title)))
	fmt.Printf("%s | %s\n", r.Source, r.URL)
	if r.Description != "" {
		fmt.Println()
		fmt.Println(r.Description)
	}

	fmt.Println()
	fmt.Println("Ingredients:")
	if len(r.Ingredients) == 0 {
		fmt.Println("  (none found)")
	}
	for _, ingredient := range r.Ingredients {
		fmt.Printf("  - %s\n", ingredient)
	}

	fmt.Println()
	fmt.Println("Instructions:")
	if len(r.Instructions) == 0 {
		fmt.Println("  (none found)")
	}
	for i, step := range r.Instructions {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
}

// printRecipeJSON prints a recipe in JSON format
func printRecipeJSON(r *recipe.Recipe) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// newTable creates a table writer mirrored to stdout
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// printHistoryTable prints history entries as a table
func printHistoryTable(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Println("No history to display.")
		return
	}

	t := newTable()
	t.AppendHeader(table.Row{"Fetched", "Status", "Source", "Title", "URL"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 40},
		{Name: "URL", WidthMax: 60},
	})

	for _, entry := range entries {
		title := entry.Title
		if entry.Status == history.StatusError {
			title = entry.Error
		}
		t.AppendRow(table.Row{
			entry.FetchedAt.Local().Format("2006-01-02 15:04"),
			entry.Status,
			entry.Source,
			title,
			entry.URL,
		})
	}

	t.Render()
}
