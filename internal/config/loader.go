package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidSpeechProviders lists the TTS backends the speech queue can build.
var ValidSpeechProviders = []string{"edge", "elevenlabs"}

// ValidLLMProviders lists the generation backends the coach can build.
var ValidLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with working defaults. A completely
// empty file yields a runnable local configuration with the coach enabled,
// LLM generation off, and the free Edge voices.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8099"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = "https://127.0.0.1:2999/liveclientdata"
	}
	if cfg.Client.PollInterval <= 0 {
		cfg.Client.PollInterval = Duration(time.Second)
	}
	if cfg.Client.RequestTimeout <= 0 {
		cfg.Client.RequestTimeout = Duration(2 * time.Second)
	}
	if cfg.Coach.Language == "" {
		cfg.Coach.Language = "zh"
	}
	if cfg.Coach.TeammateSampleRate == 0 {
		cfg.Coach.TeammateSampleRate = 0.3
	}
	if cfg.Coach.CreepPaceFloor == 0 {
		cfg.Coach.CreepPaceFloor = 4.0
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = Duration(30 * time.Second)
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.Speech.Provider == "" {
		cfg.Speech.Provider = "edge"
	}
	if cfg.Speech.CacheDir == "" {
		cfg.Speech.CacheDir = "cache_tts"
	}
	if cfg.Speech.ElevenLabs.ModelID == "" {
		cfg.Speech.ElevenLabs.ModelID = "eleven_multilingual_v2"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Coach.Language != "zh" && cfg.Coach.Language != "en" {
		errs = append(errs, fmt.Errorf("coach.language %q is invalid; valid values: zh, en", cfg.Coach.Language))
	}
	if cfg.Coach.TeammateSampleRate < 0 || cfg.Coach.TeammateSampleRate > 1 {
		errs = append(errs, fmt.Errorf("coach.teammate_sample_rate %.2f is out of range [0, 1]", cfg.Coach.TeammateSampleRate))
	}

	if !slices.Contains(ValidSpeechProviders, cfg.Speech.Provider) {
		errs = append(errs, fmt.Errorf("speech.provider %q is invalid; valid values: %v", cfg.Speech.Provider, ValidSpeechProviders))
	}
	if cfg.Speech.Provider == "elevenlabs" {
		if cfg.Speech.ElevenLabs.APIKey == "" {
			errs = append(errs, errors.New("speech.elevenlabs.api_key is required when speech.provider is elevenlabs"))
		}
		if cfg.Speech.ElevenLabs.VoiceID == "" {
			errs = append(errs, errors.New("speech.elevenlabs.voice_id is required when speech.provider is elevenlabs"))
		}
	}

	if cfg.LLM.Enabled {
		if !slices.Contains(ValidLLMProviders, cfg.LLM.Provider) {
			errs = append(errs, fmt.Errorf("llm.provider %q is invalid; valid values: %v", cfg.LLM.Provider, ValidLLMProviders))
		}
		if cfg.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required when llm.enabled is true"))
		}
		// A missing key is not an error: the generator treats it as disabled
		// and falls back to the static pools. Local backends need no key.
		if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "ollama" && cfg.LLM.Provider != "llamacpp" {
			slog.Warn("llm.enabled is true but llm.api_key is empty; commentary will use the static line pools")
		}
	}

	return errors.Join(errs...)
}
