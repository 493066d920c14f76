// File path: internal/llm/providers/provider.go
package providers

import (
	"context"
	"errors"
	"strings"
)

// Format selects the shape of the completion a caller expects back.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// Request is a single prompt-completion exchange.
type Request struct {
	Prompt string
	Format Format
}

// Provider is a text completion capability.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

var (
	errEmptyPrompt = errors.New("empty prompt")
	errNoContent   = errors.New("completion returned no content")
)

func checkRequest(req Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return errEmptyPrompt
	}
	return nil
}
