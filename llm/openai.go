package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"go.aimuz.me/nexus/internal/types"
)

// openaiCompleter implements Completer for OpenAI and compatible APIs. It
// returns no grounding sources.
type openaiCompleter struct {
	client openai.Client
	model  string
	opts   Options
}

func newOpenAICompleter(apiKey, baseURL, model string, opts Options) *openaiCompleter {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openaiCompleter{
		client: openai.NewClient(reqOpts...),
		model:  model,
		opts:   opts,
	}
}

func (c *openaiCompleter) Complete(ctx context.Context, messages []Message) (types.ChatResult, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return types.ChatResult{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return types.ChatResult{}, ErrEmptyResponse
	}
	return types.ChatResult{
		Text: resp.Choices[0].Message.Content,
		Usage: types.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *openaiCompleter) params(messages []Message) openai.ChatCompletionNewParams {
	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: buildOpenAIMessages(messages),
	}
	if c.opts.MaxTokens > 0 {
		p.MaxTokens = openai.Int(int64(c.opts.MaxTokens))
	}
	if c.opts.Temperature > 0 {
		p.Temperature = openai.Float(c.opts.Temperature)
	}
	return p
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
