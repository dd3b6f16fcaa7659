package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Live.Voice != "Zephyr" || cfg.Chat.Model != "gemini-3-pro-preview" || !cfg.Chat.Grounding {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"live": {"voice": "Puck", "language": "en-us"}, "chat": {"grounding": false}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Live.Voice != "Puck" {
		t.Errorf("voice = %q, want Puck", cfg.Live.Voice)
	}
	if cfg.Live.Model != "gemini-2.5-flash-native-audio-preview-12-2025" {
		t.Errorf("model default lost: %q", cfg.Live.Model)
	}
	if cfg.Chat.Grounding {
		t.Error("grounding = true, want false from file")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Live.Language != "en-US" {
		t.Errorf("language = %q, want canonical en-US", cfg.Live.Language)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Image.AspectRatio = "16:9"
	if err := cfg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Image.AspectRatio != "16:9" {
		t.Errorf("aspect ratio = %q after round trip", got.Image.AspectRatio)
	}
	if got.FilePath() != path {
		t.Errorf("FilePath() = %q", got.FilePath())
	}
	got.LogLevel = "debug"
	if err := got.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(*Config) bool
		explain string
	}{
		{
			name:    "gemini key wins",
			env:     map[string]string{"GEMINI_API_KEY": "g", "GOOGLE_API_KEY": "o", "API_KEY": "a"},
			check:   func(c *Config) bool { return c.APIKey == "g" },
			explain: "APIKey should be g",
		},
		{
			name:    "generic key fallback",
			env:     map[string]string{"API_KEY": "a"},
			check:   func(c *Config) bool { return c.APIKey == "a" },
			explain: "APIKey should be a",
		},
		{
			name:    "live overrides",
			env:     map[string]string{"NEXUS_LIVE_VOICE": "Kore", "NEXUS_LIVE_TRANSPORT": "websocket"},
			check:   func(c *Config) bool { return c.Live.Voice == "Kore" && c.Live.Transport == TransportWebsocket },
			explain: "live voice and transport should be overridden",
		},
		{
			name:    "openai key only for openai provider",
			env:     map[string]string{"OPENAI_API_KEY": "sk"},
			check:   func(c *Config) bool { return c.Chat.APIKey == "" },
			explain: "gemini provider must ignore OPENAI_API_KEY",
		},
		{
			name:    "openai provider",
			env:     map[string]string{"NEXUS_CHAT_PROVIDER": "openai", "OPENAI_API_KEY": "sk"},
			check:   func(c *Config) bool { return c.ChatAPIKey() == "sk" },
			explain: "openai provider should use OPENAI_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyEnv(func(k string) string { return tt.env[k] })
			if !tt.check(cfg) {
				t.Error(tt.explain)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad language", func(c *Config) { c.Live.Language = "not a tag!" }, true},
		{"bad transport", func(c *Config) { c.Live.Transport = "grpc" }, true},
		{"zero frame", func(c *Config) { c.Live.FrameSamples = 0 }, true},
		{"zero transcript", func(c *Config) { c.Live.TranscriptCapacity = 0 }, true},
		{"bad provider", func(c *Config) { c.Chat.Provider = "claude" }, true},
		{"compatible without url", func(c *Config) { c.Chat.Provider = "openai-compatible" }, true},
		{"bad aspect", func(c *Config) { c.Image.AspectRatio = "2:1" }, true},
		{"websocket transport", func(c *Config) { c.Live.Transport = TransportWebsocket }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLiveSession(t *testing.T) {
	cfg := Default()
	cfg.Live.Language = "de-DE"
	cfg.Live.TranscriptCapacity = 5

	lc := cfg.LiveSession()
	if lc.LanguageCode != "de-DE" || lc.TranscriptCapacity != 5 || lc.Voice != "Zephyr" {
		t.Errorf("LiveSession() = %+v", lc)
	}
	if lc.InputFormat.SampleRate != 16000 || lc.OutputFormat.SampleRate != 24000 {
		t.Errorf("formats = %v / %v", lc.InputFormat, lc.OutputFormat)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("NEXUS_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("NEXUS_DOTENV_TEST") })

	LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	if got := os.Getenv("NEXUS_DOTENV_TEST"); got != "from-file" {
		t.Errorf("NEXUS_DOTENV_TEST = %q, want from-file", got)
	}
}
