// File path: cmd/loanjson/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/api"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/insight"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/normalize"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/speech"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/sqlite"
)

func main() {
	logger := common.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Warn("loanjson: .env file not loaded", "error", err)
	} else {
		logger.Info("loanjson: environment loaded from .env")
	}

	configPath := flag.String("config", envOr("LOANJSON_CONFIG", "loanjson.yaml"), "path to the YAML configuration file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loanjson: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*addr); trimmed != "" {
		cfg.Server.Addr = trimmed
	}
	common.SetLevel(cfg.Logging.Level)
	logger.Info("loanjson: startup initiated", "addr", cfg.Server.Addr, "store", cfg.Store.Path, "provider", cfg.Completion.Provider)

	if cfg.Completion.Autostart {
		modelServer, err := startModelServer(ctx, cfg.Completion, logger)
		if err != nil {
			logger.Error("loanjson: failed to launch model server", "error", err)
			fmt.Println("model server error:", err)
			os.Exit(1)
		}
		defer stopModelServer(modelServer, logger)
	}

	provider, err := llm.NewProvider(ctx, cfg.Completion)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("loanjson: completion disabled; JSON uploads still pass through", "error", err)
		provider = nil
	case err != nil:
		logger.Error("loanjson: completion provider init failed", "error", err)
		fmt.Println("provider error:", err)
		os.Exit(1)
	default:
		logger.Info("loanjson: llm provider ready", "provider", provider.Name())
	}

	var synth speech.Synthesizer
	eleven, err := speech.NewElevenLabs(cfg.Speech)
	switch {
	case errors.Is(err, speech.ErrNotConfigured):
		logger.Warn("loanjson: speech disabled", "error", err)
	case err != nil:
		logger.Error("loanjson: speech init failed", "error", err)
		fmt.Println("speech error:", err)
		os.Exit(1)
	default:
		synth = eleven
	}

	store, err := sqlite.Open(cfg.Store)
	if err != nil {
		logger.Error("loanjson: catalog open failed", "path", cfg.Store.Path, "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	defer store.Close()

	server, err := api.NewServer(api.Deps{
		Normalizer: normalize.New(provider, cfg.Normalize),
		Insights:   insight.NewOrchestrator(provider),
		Speech:     synth,
		Catalog:    store,
		Server:     cfg.Server,
	})
	if err != nil {
		logger.Error("loanjson: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	reachable := cfg.Server.Addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("loanjson: server listening", "addr", cfg.Server.Addr, "health", "/healthz")
	logger.Info("loanjson: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("loanjson: server stopped", "error", err)
			fmt.Println("server stopped:", err)
		}
	case <-ctx.Done():
		logger.Info("loanjson: shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("loanjson: graceful shutdown failed", "error", err)
		}
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
