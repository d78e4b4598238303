// Package api exposes recipe search and fetch history over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pevans/recipys/argparser"
	"github.com/pevans/recipys/history"
	"github.com/pevans/recipys/recipe"
	"github.com/pevans/recipys/scraper"
)

// DefaultHistoryLimit is used when GET /api/v1/history has no limit.
const DefaultHistoryLimit = 20

// RecipeFinder finds a recipe for a parsed query.
type RecipeFinder interface {
	Find(ctx context.Context, query argparser.Query) (*recipe.Recipe, error)
}

// HistoryLister lists recorded fetches, newest first.
type HistoryLister interface {
	List(limit int) ([]history.Entry, error)
}

// Server represents the HTTP API server.
type Server struct {
	finder  RecipeFinder
	history HistoryLister
}

// NewServer creates a new API server. history may be nil, in which case the
// history endpoint reports that history is disabled.
func NewServer(finder RecipeFinder, history HistoryLister) *Server {
	return &Server{
		finder:  finder,
		history: history,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.HandleHealth)

	api := router.Group("/api/v1")
	{
		api.GET("/recipe", s.HandleGetRecipe)
		api.GET("/history", s.HandleListHistory)
	}

	return router
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleHealth handles GET /health.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleGetRecipe handles GET /api/v1/recipe?meal=<meal>&with=<a,b>. The
// parameters are rebuilt into a command line and parsed with the same
// grammar as the CLI.
func (s *Server) HandleGetRecipe(c *gin.Context) {
	query, err := argparser.Parse(queryArgs(c.Query("meal"), c.Query("with")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	found, err := s.finder.Find(c.Request.Context(), query)
	if err != nil {
		var fetchErr *scraper.FetchError
		switch {
		case errors.Is(err, recipe.ErrNoSources), errors.Is(err, recipe.ErrNoCandidates):
			c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
		case errors.As(err, &fetchErr):
			c.JSON(http.StatusBadGateway, errorResponse("fetch_error", fetchErr.UserMessage()))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to find recipe"))
		}
		return
	}

	c.JSON(http.StatusOK, found)
}

// ListHistoryResponse represents the response for GET /api/v1/history.
type ListHistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Total   int             `json:"total"`
}

// HandleListHistory handles GET /api/v1/history?limit=<n>.
func (s *Server) HandleListHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("unavailable", "History is disabled"))
		return
	}

	limit := DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("validation_error", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := s.history.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to list history"))
		return
	}

	c.JSON(http.StatusOK, ListHistoryResponse{
		Entries: entries,
		Total:   len(entries),
	})
}

// queryArgs turns query parameters into the CLI argument form.
func queryArgs(meal, with string) []string {
	var args []string
	if meal = strings.TrimSpace(meal); meal != "" {
		args = append(args, meal)
	}
	if with == "" {
		return args
	}

	args = append(args, "with")
	for _, ingredient := range strings.Split(with, ",") {
		if ingredient = strings.TrimSpace(ingredient); ingredient != "" {
			args = append(args, ingredient)
		}
	}
	return args
}
