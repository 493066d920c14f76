// File path: internal/llm/providers/gemini.go
package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	common.Logger().Info("llm: Gemini provider configured", "model", model)
	return &GeminiProvider{client: client, model: model}
}

func (g *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := checkRequest(req); err != nil {
		return "", err
	}
	if g.client == nil {
		return "", fmt.Errorf("nil genai client")
	}
	logger := common.Logger()
	logger.Debug("llm: sending gemini request", "model", g.model, "format", req.Format.String(), "prompt_length", len(req.Prompt))
	var genCfg *genai.GenerateContentConfig
	if req.Format == FormatJSON {
		genCfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		logger.Error("llm: gemini request failed", "error", err)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	// An empty answer is returned as-is; callers judge whether it is usable.
	text := resp.Text()
	logger.Debug("llm: gemini request succeeded", "response_length", len(text))
	return text, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}
