// Package llm provides chat and image generation clients.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"

	"go.aimuz.me/nexus/internal/types"
)

// Providers accepted by NewCompleter.
const (
	ProviderGemini           = "gemini"
	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai-compatible"
)

// Default models.
const (
	DefaultChatModel  = "gemini-3-pro-preview"
	DefaultImageModel = "gemini-2.5-flash-image"
)

var (
	// ErrAPIKeyRequired is returned when no credential is configured.
	ErrAPIKeyRequired = errors.New("llm: API key required")
	// ErrEmptyResponse is returned when the model produced no candidates.
	ErrEmptyResponse = errors.New("llm: empty response")
	// ErrNoImage is returned when an image request yields no image part.
	ErrNoImage = errors.New("llm: no image in response")
)

// AspectRatios lists the aspect ratios accepted for image generation.
var AspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// ValidAspectRatio reports whether r is supported.
func ValidAspectRatio(r string) bool {
	return slices.Contains(AspectRatios, r)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Options configures completion behavior.
type Options struct {
	MaxTokens       int
	Temperature     float64
	DisableThinking bool // Gemini: thinking budget 0
	Grounding       bool // Gemini: attach the Google Search tool
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (types.ChatResult, error)
}

// ImageGenerator produces images from prompts.
type ImageGenerator interface {
	Generate(ctx context.Context, req types.ImageRequest) (types.ImageResult, error)
}

// NewCompleter creates a Completer for the given provider.
func NewCompleter(ctx context.Context, provider, apiKey, baseURL, model string, opts Options) (Completer, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	switch provider {
	case ProviderGemini, "":
		if model == "" {
			model = DefaultChatModel
		}
		return newGeminiCompleter(ctx, apiKey, model, opts)
	case ProviderOpenAI, ProviderOpenAICompatible:
		return newOpenAICompleter(apiKey, baseURL, model, opts), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}

// DataURL renders an image as a data URL, e.g. "data:image/png;base64,...".
func DataURL(img types.ImageResult) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
