// File path: internal/llm/providers/local.go
package providers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
)

// LocalProvider drives any langchaingo model, typically a self-hosted Ollama
// instance, so the service can run without a hosted API key.
type LocalProvider struct {
	model llms.Model
	name  string
}

func NewLocalProvider(model llms.Model, name string) *LocalProvider {
	if name == "" {
		name = "local"
	}
	return &LocalProvider{model: model, name: name}
}

func (l *LocalProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := checkRequest(req); err != nil {
		return "", err
	}
	if l.model == nil {
		return "", fmt.Errorf("nil langchaingo model")
	}
	logger := common.Logger()
	var opts []llms.CallOption
	if req.Format == FormatJSON {
		opts = append(opts, llms.WithJSONMode())
	}
	logger.Debug("llm: sending local completion", "provider", l.name, "format", req.Format.String())
	text, err := llms.GenerateFromSinglePrompt(ctx, l.model, req.Prompt, opts...)
	if err != nil {
		logger.Error("llm: local completion failed", "provider", l.name, "error", err)
		return "", fmt.Errorf("%s completion: %w", l.name, err)
	}
	return text, nil
}

func (l *LocalProvider) Name() string {
	return l.name
}
