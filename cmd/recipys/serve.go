package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pevans/recipys/api"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr host:port]",
	Short: "Serves recipe search and history over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		// A nil *history.Store must not become a non-nil HistoryLister
		var server *api.Server
		if env.history != nil {
			server = api.NewServer(env.Finder(), env.history)
		} else {
			server = api.NewServer(env.Finder(), nil)
		}

		httpServer := &http.Server{
			Addr:    serveAddr,
			Handler: server.SetupRouter(),
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("starting recipys API server", "addr", serveAddr)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		slog.Info("shutting down recipys API server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}
