// File path: cmd/loanjson/services.go
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common/process"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
)

// startModelServer launches `ollama serve` and waits until it lists models.
func startModelServer(ctx context.Context, cfg config.CompletionConfig, logger *slog.Logger) (*process.Supervised, error) {
	binary, err := process.BinaryPath(cfg.ServerCommand)
	if err != nil {
		return nil, err
	}
	serverURL := cfg.LocalServerURL()
	var env []string
	if host := hostFromURL(serverURL); host != "" {
		env = append(env, "OLLAMA_HOST="+host)
	}
	logger.Info("loanjson: launching local model server", "binary", binary, "url", serverURL)
	return process.Start(ctx, process.Options{
		Name:         filepath.Base(binary),
		Command:      binary,
		Args:         []string{"serve"},
		Env:          env,
		ReadyURL:     serverURL + "/api/tags",
		ReadyTimeout: cfg.ReadyTimeout,
		StopTimeout:  5 * time.Second,
	})
}

func stopModelServer(svc *process.Supervised, logger *slog.Logger) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		logger.Warn("loanjson: model server stop failed", "error", err)
	}
}

// hostFromURL returns the listen address for OLLAMA_HOST unless the caller
// already exported one.
func hostFromURL(raw string) string {
	if strings.TrimSpace(os.Getenv("OLLAMA_HOST")) != "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Host
}
