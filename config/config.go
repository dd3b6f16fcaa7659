// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/live"
	"go.aimuz.me/nexus/llm"
)

const (
	appName        = "nexus"
	configFileName = "config.json"
)

// Live transports.
const (
	TransportSDK       = "sdk"
	TransportWebsocket = "websocket"
)

// Config represents the application configuration.
type Config struct {
	// APIKey is the Gemini API key shared by all features.
	APIKey   string      `json:"api_key,omitempty"`
	LogLevel string      `json:"log_level,omitempty"`
	Live     LiveConfig  `json:"live"`
	Chat     ChatConfig  `json:"chat"`
	Image    ImageConfig `json:"image"`

	path string
}

// LiveConfig configures voice sessions.
type LiveConfig struct {
	Model              string `json:"model"`
	Voice              string `json:"voice"`
	Language           string `json:"language,omitempty"` // BCP 47
	SystemInstruction  string `json:"system_instruction,omitempty"`
	Transport          string `json:"transport"` // "sdk" or "websocket"
	FrameSamples       int    `json:"frame_samples"`
	TranscriptCapacity int    `json:"transcript_capacity"`
	SendQueue          int    `json:"send_queue"`
	Hotkey             string `json:"hotkey,omitempty"` // e.g. "ctrl+shift+l"
	Muted              bool   `json:"muted,omitempty"`  // discard model audio
}

// ChatConfig configures the chat assistant.
type ChatConfig struct {
	Provider        string  `json:"provider"` // "gemini", "openai", "openai-compatible"
	Model           string  `json:"model"`
	BaseURL         string  `json:"base_url,omitempty"`
	APIKey          string  `json:"api_key,omitempty"` // overrides the shared key
	SystemPrompt    string  `json:"system_prompt,omitempty"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	Grounding       bool    `json:"grounding"`
	DisableThinking bool    `json:"disable_thinking,omitempty"`
}

// ImageConfig configures image generation.
type ImageConfig struct {
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lc := live.DefaultConfig()
	return &Config{
		LogLevel: "warn",
		Live: LiveConfig{
			Model:              lc.Model,
			Voice:              lc.Voice,
			Transport:          TransportSDK,
			FrameSamples:       lc.FrameSamples,
			TranscriptCapacity: lc.TranscriptCapacity,
			SendQueue:          lc.SendQueue,
		},
		Chat: ChatConfig{
			Provider:    llm.ProviderGemini,
			Model:       llm.DefaultChatModel,
			MaxTokens:   types.DefaultMaxTokens,
			Temperature: types.DefaultTemperature,
			Grounding:   true,
		},
		Image: ImageConfig{
			Model:       llm.DefaultImageModel,
			AspectRatio: "1:1",
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Load loads configuration from the default location and applies
// environment overrides. Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults. Fields missing from the file keep
// their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save persists the configuration to the file it was loaded from. Keys taken
// from the environment are written as well, so callers that want a clean
// file should save a config loaded with LoadFile.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := Path()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}
	return c.SaveFile(path)
}

// SaveFile writes the configuration to path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	c.path = path
	return nil
}

// FilePath returns the file the config was loaded from or saved to.
func (c *Config) FilePath() string {
	return c.path
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("load env file", "path", p, "error", err)
		}
	}
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"} {
		if v := getenv(k); v != "" {
			c.APIKey = v
			break
		}
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.LogLevel, "NEXUS_LOG_LEVEL")
	set(&c.Live.Model, "NEXUS_LIVE_MODEL")
	set(&c.Live.Voice, "NEXUS_LIVE_VOICE")
	set(&c.Live.Language, "NEXUS_LIVE_LANGUAGE")
	set(&c.Live.Transport, "NEXUS_LIVE_TRANSPORT")
	set(&c.Chat.Provider, "NEXUS_CHAT_PROVIDER")
	set(&c.Chat.Model, "NEXUS_CHAT_MODEL")
	set(&c.Chat.BaseURL, "NEXUS_CHAT_BASE_URL")
	set(&c.Image.Model, "NEXUS_IMAGE_MODEL")
	if c.Chat.Provider == llm.ProviderOpenAI || c.Chat.Provider == llm.ProviderOpenAICompatible {
		set(&c.Chat.APIKey, "OPENAI_API_KEY")
	}
}

// Validate checks settings and canonicalizes the live language tag.
func (c *Config) Validate() error {
	if c.Live.Language != "" {
		tag, err := language.Parse(c.Live.Language)
		if err != nil {
			return fmt.Errorf("live language %q: %w", c.Live.Language, err)
		}
		c.Live.Language = tag.String()
	}
	switch c.Live.Transport {
	case TransportSDK, TransportWebsocket:
	default:
		return fmt.Errorf("live transport %q: want %q or %q", c.Live.Transport, TransportSDK, TransportWebsocket)
	}
	if c.Live.FrameSamples <= 0 {
		return fmt.Errorf("live frame_samples must be positive")
	}
	if c.Live.TranscriptCapacity <= 0 {
		return fmt.Errorf("live transcript_capacity must be positive")
	}
	switch c.Chat.Provider {
	case llm.ProviderGemini, llm.ProviderOpenAI, llm.ProviderOpenAICompatible:
	default:
		return fmt.Errorf("chat provider %q not supported", c.Chat.Provider)
	}
	if c.Chat.Provider == llm.ProviderOpenAICompatible && c.Chat.BaseURL == "" {
		return fmt.Errorf("chat base_url required for openai-compatible provider")
	}
	if !llm.ValidAspectRatio(c.Image.AspectRatio) {
		return fmt.Errorf("image aspect_ratio %q: want one of %s", c.Image.AspectRatio, strings.Join(llm.AspectRatios, ", "))
	}
	return nil
}

// ChatAPIKey returns the key for the chat provider.
func (c *Config) ChatAPIKey() string {
	if c.Chat.APIKey != "" {
		return c.Chat.APIKey
	}
	if c.Chat.Provider == llm.ProviderGemini {
		return c.APIKey
	}
	return ""
}

// LiveSession builds the live session config.
func (c *Config) LiveSession() live.Config {
	lc := live.DefaultConfig()
	lc.Model = c.Live.Model
	lc.Voice = c.Live.Voice
	lc.LanguageCode = c.Live.Language
	lc.SystemInstruction = c.Live.SystemInstruction
	lc.FrameSamples = c.Live.FrameSamples
	lc.TranscriptCapacity = c.Live.TranscriptCapacity
	lc.SendQueue = c.Live.SendQueue
	return lc
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
