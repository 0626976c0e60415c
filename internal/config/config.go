// Package config provides the configuration schema, loader, and hot-reload
// watcher for the riftcoach commentary pipeline.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration with YAML support for strings like "1s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for riftcoach.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Coach   CoachConfig   `yaml:"coach"`
	LLM     LLMConfig     `yaml:"llm"`
	Speech  SpeechConfig  `yaml:"speech"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds network and logging settings for the local HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the proxy/relay server listens on
	// (e.g., ":8099"). Bind to "0.0.0.0:8099" for LAN access.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ClientConfig describes how to reach the game's Live Client Data API.
type ClientConfig struct {
	// BaseURL is the Live Client Data API root. The game client serves it on
	// localhost with a self-signed certificate, which the poller tolerates.
	BaseURL string `yaml:"base_url"`

	// PollInterval is the snapshot polling cadence while a game is running.
	PollInterval Duration `yaml:"poll_interval"`

	// RequestTimeout bounds a single poll request.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// CoachConfig tunes the event dispatch policy.
type CoachConfig struct {
	// Enabled toggles the whole commentary pipeline.
	Enabled bool `yaml:"enabled"`

	// Language is the spoken language for commentary lines: "zh" or "en".
	Language string `yaml:"language"`

	// TeammateSampleRate is the probability in [0,1] that a teammate death
	// produces commentary. Bounds chatter volume.
	TeammateSampleRate float64 `yaml:"teammate_sample_rate"`

	// CreepCheckInterval is the game-time interval between creep-pace checks.
	// Zero disables the check.
	CreepCheckInterval Duration `yaml:"creep_check_interval"`

	// CreepPaceFloor is the creep-score-per-minute threshold under which a
	// pace check produces commentary.
	CreepPaceFloor float64 `yaml:"creep_pace_floor"`
}

// LLMConfig configures the remote commentary text generator.
type LLMConfig struct {
	// Enabled toggles LLM generation. When off (or APIKey is empty for a
	// provider that needs one) the static line pools are used instead.
	Enabled bool `yaml:"enabled"`

	// Provider selects the backend: "openai" targets any OpenAI-compatible
	// endpoint directly; "anthropic", "gemini", "ollama", "deepseek",
	// "mistral", "groq" and "llamacpp" go through the any-llm bridge.
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Timeout bounds one generation call. Defaults to 30 s.
	Timeout Duration `yaml:"timeout"`
}

// SpeechConfig configures synthesis, caching, and playback.
type SpeechConfig struct {
	// Provider selects the TTS backend: "edge" or "elevenlabs".
	Provider string `yaml:"provider"`

	// CacheDir is the directory holding content-addressed audio files.
	CacheDir string `yaml:"cache_dir"`

	// Preload synthesizes the static line pools at startup so live events
	// never pay generation latency. Skipped for metered providers.
	Preload bool `yaml:"preload"`

	// PlayerCommand is the external playback command (file path appended).
	// Empty auto-detects a player on PATH.
	PlayerCommand []string `yaml:"player_command"`

	// Edge configures the free Microsoft Edge voices.
	Edge EdgeConfig `yaml:"edge"`

	// ElevenLabs configures the ElevenLabs backend.
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

// EdgeConfig holds voice selection for the Edge backend.
type EdgeConfig struct {
	// Voice overrides the per-language default voice
	// (zh → "zh-CN-YunxiNeural", en → "en-US-ChristopherNeural").
	Voice string `yaml:"voice"`
}

// ElevenLabsConfig holds ElevenLabs credentials and voice selection.
type ElevenLabsConfig struct {
	// APIKey is the xi-api-key credential.
	APIKey string `yaml:"api_key"`

	// VoiceID is the ElevenLabs voice identifier.
	VoiceID string `yaml:"voice_id"`

	// ModelID selects the synthesis model (default "eleven_multilingual_v2").
	ModelID string `yaml:"model_id"`
}

// HistoryConfig configures persistent commentary history.
type HistoryConfig struct {
	// SQLitePath is the history database file. Empty disables persistence;
	// the in-memory recent list keeps working either way.
	SQLitePath string `yaml:"sqlite_path"`
}

// edgeDefaultVoices maps coach language to the default Edge voice.
var edgeDefaultVoices = map[string]string{
	"zh": "zh-CN-YunxiNeural",
	"en": "en-US-ChristopherNeural",
}

// EdgeVoice resolves the effective Edge voice for the configured language.
func (c *Config) EdgeVoice() string {
	if c.Speech.Edge.Voice != "" {
		return c.Speech.Edge.Voice
	}
	if v, ok := edgeDefaultVoices[c.Coach.Language]; ok {
		return v
	}
	return edgeDefaultVoices["en"]
}

// SpeechLanguage returns the BCP-47 tag for the configured coach language.
func (c *Config) SpeechLanguage() string {
	switch c.Coach.Language {
	case "zh":
		return "zh-CN"
	default:
		return "en-US"
	}
}
