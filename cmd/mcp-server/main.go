// Command mcp-server exposes the configured chat backend as MCP tools
// ("chat" and "list_models") over streamable HTTP on /mcp.
//
// Configuration is loaded from frage.yaml (or -config) with FRAGE_*
// environment overrides; the listen port comes from MCP_PORT (default: 8080).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frage-dev/frage/pkg/chat"
	"github.com/frage-dev/frage/pkg/config"
	"github.com/frage-dev/frage/pkg/debug"
	"github.com/frage-dev/frage/pkg/mcptool"
	"github.com/frage-dev/frage/pkg/observability"
)

const version = "v0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("mcp-server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	port := os.Getenv("MCP_PORT")
	if port == "" {
		port = "8080"
	}

	client := chat.New(cfg.Backend.URL, cfg.Credentials(),
		chat.WithTimeout(cfg.Backend.Timeout),
		chat.WithDefaults(cfg.ClientDefaults()),
		chat.WithObserver(observability.NewObserver(nil)),
	)
	defer client.Close()

	server, err := mcptool.NewServer(mcptool.Config{
		Client:  client,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mcp server starting", "port", port, "backend", cfg.Backend.URL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
