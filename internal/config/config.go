// File path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	SpeechElevenLabs = "elevenlabs"

	defaultOllamaURL = "http://127.0.0.1:11434"
)

// Config is the process-wide configuration. It is loaded once at startup and
// handed to each component by value.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Speech     SpeechConfig     `yaml:"speech"`
	Store      StoreConfig      `yaml:"store"`
	Normalize  NormalizeConfig  `yaml:"normalize"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
}

// CompletionConfig selects the document structuring / analyst text provider.
type CompletionConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Autostart launches ServerCommand ("ollama serve") before the first call
	// when the ollama provider is selected.
	Autostart     bool          `yaml:"autostart"`
	ServerCommand string        `yaml:"server_command"`
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`

	// APIKey is resolved from APIKeyEnv and never read from the file.
	APIKey string `yaml:"-"`
}

// Configured reports whether the provider has what it needs to make a call.
// The local ollama provider needs no credential.
func (c CompletionConfig) Configured() bool {
	if strings.EqualFold(c.Provider, ProviderOllama) {
		return true
	}
	return strings.TrimSpace(c.APIKey) != ""
}

// LocalServerURL is the endpoint of a self-hosted model server.
func (c CompletionConfig) LocalServerURL() string {
	if endpoint := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/"); endpoint != "" {
		return endpoint
	}
	return defaultOllamaURL
}

type SpeechConfig struct {
	Provider        string        `yaml:"provider"`
	BaseURL         string        `yaml:"base_url"`
	APIKeyEnv       string        `yaml:"api_key_env"`
	VoiceID         string        `yaml:"voice_id"`
	ModelID         string        `yaml:"model_id"`
	Stability       float64       `yaml:"stability"`
	SimilarityBoost float64       `yaml:"similarity_boost"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	MaxAudioBytes   int64         `yaml:"max_audio_bytes"`

	APIKey string `yaml:"-"`
}

func (c SpeechConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type StoreConfig struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	BusyTimeout     time.Duration `yaml:"busy_timeout"`
}

type NormalizeConfig struct {
	// StrictAIOutput re-applies the minimal LoanJSON gate to provider output
	// and rejects records that fail it.
	StrictAIOutput bool `yaml:"strict_ai_output"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return applyDefaults(baseConfig())
}

// baseConfig holds the provider independent defaults. Model and credential
// variable are derived from the selected provider in applyDefaults.
func baseConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			MaxBodyBytes:      16 << 20,
		},
		Completion: CompletionConfig{
			Provider:      ProviderGemini,
			HTTPTimeout:   2 * time.Minute,
			ServerCommand: "ollama",
			ReadyTimeout:  time.Minute,
		},
		Speech: SpeechConfig{
			Provider:        SpeechElevenLabs,
			BaseURL:         "https://api.elevenlabs.io/v1",
			APIKeyEnv:       "ELEVENLABS_API_KEY",
			VoiceID:         "21m00Tcm4TlvDq8ikWAM",
			ModelID:         "eleven_monolingual_v1",
			Stability:       0.75,
			SimilarityBoost: 0.75,
			HTTPTimeout:     time.Minute,
			MaxAudioBytes:   20 << 20,
		},
		Store: StoreConfig{
			Path:            filepath.Join("data", "loans.db"),
			MaxOpenConns:    8,
			MaxIdleConns:    8,
			ConnMaxLifetime: 15 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, applies LOANJSON_* environment
// overrides and resolves provider credentials. A missing file is not an
// error; defaults are used instead.
func Load(path string) (Config, error) {
	cfg := baseConfig()
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		data, err := os.ReadFile(filepath.Clean(trimmed))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", trimmed, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", trimmed, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg = applyDefaults(cfg)
	cfg.resolveCredentials()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if value := env("LOANJSON_ADDR"); value != "" {
		cfg.Server.Addr = value
	}
	if value := env("LOANJSON_COMPLETION_PROVIDER"); value != "" {
		provider := strings.ToLower(value)
		if provider != strings.ToLower(strings.TrimSpace(cfg.Completion.Provider)) {
			cfg.Completion.Model = ""
			cfg.Completion.APIKeyEnv = ""
			cfg.Completion.BaseURL = ""
		}
		cfg.Completion.Provider = provider
	}
	if value := env("LOANJSON_COMPLETION_MODEL"); value != "" {
		cfg.Completion.Model = value
	}
	if value := env("LOANJSON_COMPLETION_BASE_URL"); value != "" {
		cfg.Completion.BaseURL = value
	}
	if value := env("LOANJSON_COMPLETION_API_KEY_ENV"); value != "" {
		cfg.Completion.APIKeyEnv = value
	}
	if value := env("LOANJSON_COMPLETION_TIMEOUT"); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse LOANJSON_COMPLETION_TIMEOUT: %w", err)
		}
		cfg.Completion.HTTPTimeout = dur
	}
	if value := env("LOANJSON_COMPLETION_AUTOSTART"); value != "" {
		autostart, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse LOANJSON_COMPLETION_AUTOSTART: %w", err)
		}
		cfg.Completion.Autostart = autostart
	}
	if value := env("LOANJSON_SPEECH_VOICE_ID"); value != "" {
		cfg.Speech.VoiceID = value
	}
	if value := env("LOANJSON_SPEECH_TIMEOUT"); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse LOANJSON_SPEECH_TIMEOUT: %w", err)
		}
		cfg.Speech.HTTPTimeout = dur
	}
	if value := env("LOANJSON_STORE_PATH"); value != "" {
		cfg.Store.Path = value
	}
	if value := env("LOANJSON_STRICT_AI_OUTPUT"); value != "" {
		strict, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse LOANJSON_STRICT_AI_OUTPUT: %w", err)
		}
		cfg.Normalize.StrictAIOutput = strict
	}
	if value := env("LOG_LEVEL"); value != "" {
		cfg.Logging.Level = value
	}
	return nil
}

func applyDefaults(cfg Config) Config {
	defaults := baseConfig()
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.ReadHeaderTimeout <= 0 {
		cfg.Server.ReadHeaderTimeout = defaults.Server.ReadHeaderTimeout
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	cfg.Completion.Provider = strings.ToLower(strings.TrimSpace(cfg.Completion.Provider))
	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = defaults.Completion.Provider
	}
	if strings.TrimSpace(cfg.Completion.Model) == "" {
		cfg.Completion.Model = defaultModel(cfg.Completion.Provider)
	}
	if strings.TrimSpace(cfg.Completion.APIKeyEnv) == "" {
		cfg.Completion.APIKeyEnv = defaultKeyEnv(cfg.Completion.Provider)
	}
	if cfg.Completion.HTTPTimeout <= 0 {
		cfg.Completion.HTTPTimeout = defaults.Completion.HTTPTimeout
	}
	if strings.TrimSpace(cfg.Completion.ServerCommand) == "" {
		cfg.Completion.ServerCommand = defaults.Completion.ServerCommand
	}
	if cfg.Completion.ReadyTimeout <= 0 {
		cfg.Completion.ReadyTimeout = defaults.Completion.ReadyTimeout
	}
	cfg.Speech.Provider = strings.ToLower(strings.TrimSpace(cfg.Speech.Provider))
	if cfg.Speech.Provider == "" {
		cfg.Speech.Provider = defaults.Speech.Provider
	}
	if strings.TrimSpace(cfg.Speech.BaseURL) == "" {
		cfg.Speech.BaseURL = defaults.Speech.BaseURL
	}
	if strings.TrimSpace(cfg.Speech.APIKeyEnv) == "" {
		cfg.Speech.APIKeyEnv = defaults.Speech.APIKeyEnv
	}
	if strings.TrimSpace(cfg.Speech.VoiceID) == "" {
		cfg.Speech.VoiceID = defaults.Speech.VoiceID
	}
	if strings.TrimSpace(cfg.Speech.ModelID) == "" {
		cfg.Speech.ModelID = defaults.Speech.ModelID
	}
	if cfg.Speech.HTTPTimeout <= 0 {
		cfg.Speech.HTTPTimeout = defaults.Speech.HTTPTimeout
	}
	if cfg.Speech.MaxAudioBytes <= 0 {
		cfg.Speech.MaxAudioBytes = defaults.Speech.MaxAudioBytes
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = defaults.Store.Path
	}
	if cfg.Store.MaxOpenConns <= 0 {
		cfg.Store.MaxOpenConns = defaults.Store.MaxOpenConns
	}
	if cfg.Store.MaxIdleConns <= 0 {
		cfg.Store.MaxIdleConns = cfg.Store.MaxOpenConns
	}
	if cfg.Store.ConnMaxLifetime <= 0 {
		cfg.Store.ConnMaxLifetime = defaults.Store.ConnMaxLifetime
	}
	if cfg.Store.ConnMaxIdleTime <= 0 {
		cfg.Store.ConnMaxIdleTime = defaults.Store.ConnMaxIdleTime
	}
	if cfg.Store.BusyTimeout <= 0 {
		cfg.Store.BusyTimeout = defaults.Store.BusyTimeout
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	return cfg
}

func (c *Config) resolveCredentials() {
	if name := strings.TrimSpace(c.Completion.APIKeyEnv); name != "" {
		c.Completion.APIKey = strings.TrimSpace(os.Getenv(name))
	}
	if name := strings.TrimSpace(c.Speech.APIKeyEnv); name != "" {
		c.Speech.APIKey = strings.TrimSpace(os.Getenv(name))
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gemini-1.5-flash"
	}
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOllama:
		return ""
	default:
		return "GEMINI_API_KEY"
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
