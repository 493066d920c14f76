// File path: internal/speech/elevenlabs.go
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/common/telemetry"
	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/config"
)

var (
	// ErrNotConfigured is returned when no speech credential is available.
	ErrNotConfigured = errors.New("speech capability not configured")
	ErrEmptyText     = errors.New("text is required")
	ErrAudioTooLarge = errors.New("audio response exceeded limit")
)

const maxErrorBody = 4 * 1024

// Synthesizer renders plain text to an MPEG audio stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ElevenLabs calls the ElevenLabs streaming text-to-speech endpoint.
type ElevenLabs struct {
	cfg    config.SpeechConfig
	client *http.Client
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewElevenLabs returns ErrNotConfigured when cfg carries no API key, so the
// caller can disable speech without attempting a request.
func NewElevenLabs(cfg config.SpeechConfig) (*ElevenLabs, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: set %s", ErrNotConfigured, cfg.APIKeyEnv)
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	logger := common.Logger().With("component", "speech")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	audio, err := e.synthesize(ctx, text)
	telemetry.RecordSpeech(int64(len(audio)), err)
	if err != nil {
		logger.Error("speech: synthesis failed", "voice", e.cfg.VoiceID, "error", err)
		return nil, err
	}
	logger.Info("speech: synthesis finished", "voice", e.cfg.VoiceID, "text_length", len(text), "bytes", len(audio))
	return audio, nil
}

func (e *ElevenLabs) synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: e.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal elevenlabs request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream",
		strings.TrimRight(e.cfg.BaseURL, "/"), url.PathEscape(e.cfg.VoiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create elevenlabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call elevenlabs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("elevenlabs error status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	limit := e.cfg.MaxAudioBytes
	audio, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read elevenlabs audio: %w", err)
	}
	if int64(len(audio)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrAudioTooLarge, limit)
	}
	return audio, nil
}
