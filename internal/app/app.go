// Package app provides the core application service behind the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/nexus/config"
	"go.aimuz.me/nexus/internal/metrics"
	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/live"
	"go.aimuz.me/nexus/live/gemini"
	"go.aimuz.me/nexus/live/realtime"
	"go.aimuz.me/nexus/llm"
)

// ErrAPIKeyMissing is returned when a feature needs a Gemini API key and none
// is configured.
var ErrAPIKeyMissing = errors.New("API key not configured: set GEMINI_API_KEY or run 'nexus config init'")

// Service wires configuration to the chat, image and live features.
// This struct focuses on orchestration; business logic lives in sub-components.
type Service struct {
	cfg     *config.Config
	metrics *metrics.Live
	emitFn  Emitter
	version string

	live *LiveAdapter

	mu     sync.Mutex
	chat   *Chatter
	imager *Imager
}

// New creates a Service. m may be nil.
func New(cfg *config.Config, m *metrics.Live, version string) *Service {
	s := &Service{cfg: cfg, metrics: m, version: version}
	output := live.DeviceOutput
	if cfg.Live.Muted {
		output = live.MutedOutput
	}
	s.live = NewLiveAdapter(cfg.LiveSession(), s.newConnector, live.Options{
		NewOutput: output,
		Metrics:   m,
	})
	return s
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Config returns the loaded configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// SetEmitter registers the event sink.
func (s *Service) SetEmitter(emit Emitter) {
	s.mu.Lock()
	s.emitFn = emit
	s.mu.Unlock()
}

// emit is a safe wrapper around the registered Emitter.
func (s *Service) emit(name string, data any) {
	s.mu.Lock()
	fn := s.emitFn
	s.mu.Unlock()
	if fn != nil {
		fn(name, data)
	}
}

// Shutdown stops every live session.
func (s *Service) Shutdown() {
	s.live.StopAll()
}

// ─────────────────────────────────────────────────────────────────────────────
// Live
// ─────────────────────────────────────────────────────────────────────────────

// ToggleLive starts a live session, or stops the running one. It reports
// whether a session was started. Events of a started session are forwarded
// to the Emitter until it ends.
func (s *Service) ToggleLive(ctx context.Context) (bool, error) {
	sess, err := s.live.Toggle(ctx)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	go s.live.ForwardEvents(sess, s.emit)
	return true, nil
}

// StopLive stops the running live session.
func (s *Service) StopLive() error {
	return s.live.Stop()
}

// GetLiveStatus returns the current live session status.
func (s *Service) GetLiveStatus() types.LiveStatus {
	return s.live.Status()
}

func (s *Service) newConnector(ctx context.Context) (live.Connector, error) {
	if s.cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	switch s.cfg.Live.Transport {
	case config.TransportWebsocket:
		c, err := realtime.NewConnector(realtime.ConnectorConfig{APIKey: s.cfg.APIKey})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := gemini.New(ctx, s.cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Chat & Image
// ─────────────────────────────────────────────────────────────────────────────

// Ask sends one independent prompt to the chat model.
func (s *Service) Ask(ctx context.Context, prompt string) (types.ChatResult, error) {
	chat, err := s.chatter(ctx)
	if err != nil {
		return types.ChatResult{}, err
	}
	return chat.Ask(ctx, types.ChatRequest{Prompt: prompt, SystemPrompt: s.cfg.Chat.SystemPrompt})
}

func (s *Service) chatter(ctx context.Context) (*Chatter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat != nil {
		return s.chat, nil
	}

	cc := s.cfg.Chat
	key := s.cfg.ChatAPIKey()
	if key == "" {
		return nil, ErrAPIKeyMissing
	}
	completer, err := llm.NewCompleter(ctx, cc.Provider, key, cc.BaseURL, cc.Model, llm.Options{
		MaxTokens:       cc.MaxTokens,
		Temperature:     cc.Temperature,
		DisableThinking: cc.DisableThinking,
		Grounding:       cc.Grounding,
	})
	if err != nil {
		return nil, fmt.Errorf("create completer: %w", err)
	}
	slog.Debug("chat completer ready", "provider", cc.Provider, "model", cc.Model)
	s.chat = NewChatter(completer)
	return s.chat, nil
}

// GenerateImage produces one image. An empty aspect ratio uses the
// configured default.
func (s *Service) GenerateImage(ctx context.Context, req types.ImageRequest) (types.ImageResult, error) {
	imager, err := s.imageGenerator(ctx)
	if err != nil {
		return types.ImageResult{}, err
	}
	return imager.Generate(ctx, req)
}

func (s *Service) imageGenerator(ctx context.Context) (*Imager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imager != nil {
		return s.imager, nil
	}
	if s.cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	gen, err := llm.NewImageGenerator(ctx, s.cfg.APIKey, s.cfg.Image.Model)
	if err != nil {
		return nil, fmt.Errorf("create image generator: %w", err)
	}
	s.imager = NewImager(gen, s.cfg.Image.AspectRatio)
	return s.imager, nil
}
