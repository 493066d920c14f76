// File path: internal/api/tts_handler.go
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eslamabdelmogood/v0-loan-json-ai-dashboard/internal/speech"
)

const (
	msgSpeechNotConfigured = "Speech API key not configured."
	msgSpeechFailed        = "Failed to generate audio."
)

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		writeFailure(w, r, http.StatusInternalServerError, speech.ErrNotConfigured, map[string]string{"error": msgSpeechNotConfigured})
		return
	}
	var req ttsRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, decodeStatus(err), err)
		return
	}
	if err := s.validateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	audio, err := s.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, speech.ErrEmptyText) {
			status = http.StatusBadRequest
		}
		writeFailure(w, r, status, err, map[string]string{"error": msgSpeechFailed})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
