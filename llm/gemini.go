package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"go.aimuz.me/nexus/internal/types"
)

func newGenaiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// geminiCompleter implements Completer with the genai SDK.
type geminiCompleter struct {
	models *genai.Models
	model  string
	opts   Options
}

func newGeminiCompleter(ctx context.Context, apiKey, model string, opts Options) (*geminiCompleter, error) {
	client, err := newGenaiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &geminiCompleter{models: client.Models, model: model, opts: opts}, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, messages []Message) (types.ChatResult, error) {
	contents, system := buildGeminiContents(messages)
	resp, err := c.models.GenerateContent(ctx, c.model, contents, c.config(system))
	if err != nil {
		return types.ChatResult{}, fmt.Errorf("gemini generate: %w", err)
	}
	return chatResult(resp)
}

func (c *geminiCompleter) config(system *genai.Content) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if c.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(c.opts.MaxTokens)
	}
	if c.opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(c.opts.Temperature))
	}
	if c.opts.DisableThinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)}
	}
	if c.opts.Grounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// buildGeminiContents splits system messages into a system instruction and
// maps the rest onto user/model turns.
func buildGeminiContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   []string
	)
	for _, m := range messages {
		switch m.Role {
		case "system":
			if m.Content != "" {
				system = append(system, m.Content)
			}
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}

func chatResult(resp *genai.GenerateContentResponse) (types.ChatResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return types.ChatResult{}, ErrEmptyResponse
	}
	res := types.ChatResult{
		Text:    resp.Text(),
		Sources: groundingSources(resp.Candidates[0]),
	}
	if u := resp.UsageMetadata; u != nil {
		res.Usage = types.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return res, nil
}

// groundingSources lists the web pages a grounded answer cites, in order,
// without duplicates.
func groundingSources(c *genai.Candidate) []types.Source {
	if c == nil || c.GroundingMetadata == nil {
		return nil
	}
	var (
		out  []types.Source
		seen = make(map[string]bool)
	)
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		out = append(out, types.Source{Title: title, URI: chunk.Web.URI})
	}
	return out
}

// GeminiImageGenerator implements ImageGenerator with the genai SDK.
type GeminiImageGenerator struct {
	models *genai.Models
	model  string
}

// NewImageGenerator creates an image generator for model.
func NewImageGenerator(ctx context.Context, apiKey, model string) (*GeminiImageGenerator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if model == "" {
		model = DefaultImageModel
	}
	client, err := newGenaiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &GeminiImageGenerator{models: client.Models, model: model}, nil
}

// Generate returns the first image the model produces.
func (g *GeminiImageGenerator) Generate(ctx context.Context, req types.ImageRequest) (types.ImageResult, error) {
	ratio := req.AspectRatio
	if ratio == "" {
		ratio = "1:1"
	}
	if !ValidAspectRatio(ratio) {
		return types.ImageResult{}, fmt.Errorf("llm: unsupported aspect ratio %q", ratio)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: ratio},
	})
	if err != nil {
		return types.ImageResult{}, fmt.Errorf("gemini image: %w", err)
	}
	return imageResult(resp)
}

func imageResult(resp *genai.GenerateContentResponse) (types.ImageResult, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return types.ImageResult{}, ErrEmptyResponse
	}
	var (
		res   types.ImageResult
		texts []string
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && res.Data == nil {
			res.MIMEType = part.InlineData.MIMEType
			res.Data = part.InlineData.Data
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	if res.Data == nil {
		return types.ImageResult{}, ErrNoImage
	}
	res.Text = strings.Join(texts, "")
	return res, nil
}
