// File path: internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the fully defaulted configuration. Missing credentials are
// not an error here: the affected operation reports "not configured" when it
// is called.
func (c Config) Validate() error {
	var errs []error
	switch c.Completion.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("completion.provider %q is not supported", c.Completion.Provider))
	}
	if c.Completion.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("completion.http_timeout must be positive"))
	}
	if err := validateURL("completion.base_url", c.Completion.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Completion.Autostart && c.Completion.Provider != ProviderOllama {
		errs = append(errs, fmt.Errorf("completion.autostart requires the %s provider", ProviderOllama))
	}
	if c.Speech.Provider != SpeechElevenLabs {
		errs = append(errs, fmt.Errorf("speech.provider %q is not supported", c.Speech.Provider))
	}
	if err := validateURL("speech.base_url", c.Speech.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Speech.Stability < 0 || c.Speech.Stability > 1 {
		errs = append(errs, fmt.Errorf("speech.stability must be within [0,1], got %v", c.Speech.Stability))
	}
	if c.Speech.SimilarityBoost < 0 || c.Speech.SimilarityBoost > 1 {
		errs = append(errs, fmt.Errorf("speech.similarity_boost must be within [0,1], got %v", c.Speech.SimilarityBoost))
	}
	if c.Speech.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("speech.http_timeout must be positive"))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path required"))
	}
	if c.Store.MaxIdleConns > c.Store.MaxOpenConns {
		errs = append(errs, fmt.Errorf("store.max_idle_conns (%d) exceeds store.max_open_conns (%d)", c.Store.MaxIdleConns, c.Store.MaxOpenConns))
	}
	return errors.Join(errs...)
}

func validateURL(field, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, value)
	}
	return nil
}
