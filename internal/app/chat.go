package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/llm"
)

// ChatErrorMessage is shown to the user when a chat request fails.
const ChatErrorMessage = "Error connecting to Nexus AI. Please check your network."

// ErrEmptyPrompt is returned for blank prompts.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Chatter sends independent prompts to a completer.
type Chatter struct {
	completer llm.Completer
}

// NewChatter creates a Chatter.
func NewChatter(c llm.Completer) *Chatter {
	return &Chatter{completer: c}
}

// Ask answers one prompt. No history is kept between calls.
func (c *Chatter) Ask(ctx context.Context, req types.ChatRequest) (types.ChatResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return types.ChatResult{}, ErrEmptyPrompt
	}
	res, err := c.completer.Complete(ctx, buildChatMessages(req))
	if err != nil {
		return types.ChatResult{}, fmt.Errorf("chat: %w", err)
	}
	return res, nil
}

func buildChatMessages(req types.ChatRequest) []llm.Message {
	var msgs []llm.Message
	if req.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: req.SystemPrompt})
	}
	return append(msgs, llm.Message{Role: "user", Content: strings.TrimSpace(req.Prompt)})
}

// Imager generates images with a default aspect ratio.
type Imager struct {
	gen           llm.ImageGenerator
	defaultAspect string
}

// NewImager creates an Imager.
func NewImager(gen llm.ImageGenerator, defaultAspect string) *Imager {
	if defaultAspect == "" {
		defaultAspect = "1:1"
	}
	return &Imager{gen: gen, defaultAspect: defaultAspect}
}

// Generate validates req and produces one image.
func (im *Imager) Generate(ctx context.Context, req types.ImageRequest) (types.ImageResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return types.ImageResult{}, ErrEmptyPrompt
	}
	if req.AspectRatio == "" {
		req.AspectRatio = im.defaultAspect
	}
	if !llm.ValidAspectRatio(req.AspectRatio) {
		return types.ImageResult{}, fmt.Errorf("aspect ratio %q: want one of %s", req.AspectRatio, strings.Join(llm.AspectRatios, ", "))
	}
	res, err := im.gen.Generate(ctx, req)
	if err != nil {
		return types.ImageResult{}, fmt.Errorf("generate image: %w", err)
	}
	return res, nil
}
