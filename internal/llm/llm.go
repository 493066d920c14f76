// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/tmc/langchaingo/llms/ollama"
	"google.golang.org/genai"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common/telemetry"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/llm/providers"
)

type Provider = providers.Provider

type Request = providers.Request

type Format = providers.Format

const (
	FormatText = providers.FormatText
	FormatJSON = providers.FormatJSON
)

// ErrNotConfigured is returned when the completion capability has no
// credentials. Callers check it before any network attempt.
var ErrNotConfigured = errors.New("completion capability not configured")

// NewProvider builds the completion provider selected by cfg. A provider that
// needs a credential and has none yields ErrNotConfigured. Providers never
// retry; a failed call is terminal for the caller.
func NewProvider(ctx context.Context, cfg config.CompletionConfig) (Provider, error) {
	logger := common.Logger()
	if !cfg.Configured() {
		logger.Warn("llm: completion credentials missing", "provider", cfg.Provider, "api_key_env", cfg.APIKeyEnv)
		return nil, fmt.Errorf("%w: set %s", ErrNotConfigured, cfg.APIKeyEnv)
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		}
		if endpoint := strings.TrimSpace(cfg.BaseURL); endpoint != "" {
			logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
			opts = append(opts, option.WithBaseURL(endpoint))
		}
		logger.Info("llm: OpenAI provider selected", "timeout", cfg.HTTPTimeout)
		return Instrument(providers.NewOpenAIProvider(openai.NewClient(opts...), cfg.Model)), nil
	case config.ProviderGemini:
		clientCfg := &genai.ClientConfig{
			APIKey:     cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: httpClient,
		}
		if endpoint := strings.TrimSpace(cfg.BaseURL); endpoint != "" {
			clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			return nil, fmt.Errorf("init genai client: %w", err)
		}
		logger.Info("llm: Gemini provider selected", "timeout", cfg.HTTPTimeout)
		return Instrument(providers.NewGeminiProvider(client, cfg.Model)), nil
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model), ollama.WithHTTPClient(httpClient)}
		if endpoint := strings.TrimSpace(cfg.BaseURL); endpoint != "" {
			opts = append(opts, ollama.WithServerURL(endpoint))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("init ollama client: %w", err)
		}
		logger.Info("llm: Ollama provider selected", "model", cfg.Model, "endpoint", cfg.BaseURL)
		return Instrument(providers.NewLocalProvider(model, config.ProviderOllama)), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
}

// Instrument wraps p so every call is timed, counted and logged.
func Instrument(p Provider) Provider {
	if p == nil {
		return nil
	}
	if _, ok := p.(*instrumented); ok {
		return p
	}
	return &instrumented{next: p}
}

type instrumented struct {
	next Provider
}

func (i *instrumented) Complete(ctx context.Context, req Request) (string, error) {
	ctx, end := telemetry.StartSpan(ctx, "llm.complete")
	start := time.Now()
	text, err := i.next.Complete(ctx, req)
	duration := time.Since(start)
	telemetry.RecordCompletion(i.next.Name(), duration, err)
	end("provider", i.next.Name(), "format", req.Format.String(), "error", err != nil)
	if err != nil {
		return "", err
	}
	common.Logger().Info("llm: completion finished", "provider", i.next.Name(), "dur", duration, "response_length", len(text))
	return text, nil
}

func (i *instrumented) Name() string {
	return i.next.Name()
}
