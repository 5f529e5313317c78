package model

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/JaimeStill/envoy/internal/config"
)

type openaiClient struct {
	client *openai.Client
	cfg    config.ModelConfig
	logger *slog.Logger
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*openai.ClientConfig)

// WithHTTPClient routes requests through c.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(cc *openai.ClientConfig) { cc.HTTPClient = c }
}

// NewOpenAI creates a Client for cfg, which should already be resolved.
func NewOpenAI(cfg config.ModelConfig, logger *slog.Logger, opts ...OpenAIOption) Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		cc.BaseURL = cfg.APIBase
	}
	for _, o := range opts {
		o(&cc)
	}

	return &openaiClient{
		client: openai.NewClientWithConfig(cc),
		cfg:    cfg,
		logger: logger.With("system", "model", "model", cfg.Model),
	}
}

func (c *openaiClient) Name() string {
	return c.cfg.Model
}

func (c *openaiClient) Complete(ctx context.Context, req Request) (Response, error) {
	if len(req.Images) > 0 && !c.cfg.IsVision() {
		c.logger.WarnContext(ctx, "images supplied to a non-vision model, sending anyway",
			"type", c.cfg.Type,
			"images", len(req.Images),
		)
	}

	c.logger.DebugContext(ctx, "calling model",
		"system_len", len(req.System),
		"user_len", len(req.User),
		"images", len(req.Images),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages(req),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, ErrEmptyResponse
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	c.logger.DebugContext(ctx, "token usage",
		"prompt", usage.PromptTokens,
		"completion", usage.CompletionTokens,
		"total", usage.TotalTokens,
	)

	return Response{Content: resp.Choices[0].Message.Content, Usage: usage}, nil
}

// messages builds the system and user turns. With images the user turn
// becomes a text part followed by one image part per image, in order.
func messages(req Request) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	if len(req.Images) == 0 {
		return append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.User,
		})
	}

	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: req.User,
	})
	for _, url := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    url,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	return append(out, openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
}
