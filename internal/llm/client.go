/**
 * LLM chat-completion client for the Annotation Worker
 *
 * Thin wrapper over langchaingo's OpenAI-compatible provider. Messages carry
 * plain text and optionally an image reference for vision-capable models.
 */

package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. ImageURL, when set, is attached as an image part
// alongside the text.
type Message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// Completion is the model's reply with its token usage
type Completion struct {
	Role    string
	Content string
	Usage   Usage
}

// Client wraps a chat model endpoint
type Client struct {
	model  llms.Model
	logger *logging.Logger
}

// ClientConfig holds LLM client configuration
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a chat completion client
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &Client{
		model:  model,
		logger: logging.NewLogger("llm"),
	}, nil
}

// Complete sends the messages to the named model and returns the reply with
// token usage
func (c *Client) Complete(ctx context.Context, modelName string, messages []Message) (*Completion, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		parts := []llms.ContentPart{llms.TextPart(m.Content)}
		if m.ImageURL != "" {
			parts = append(parts, llms.ImageURLPart(m.ImageURL))
		}
		content = append(content, llms.MessageContent{
			Role:  chatRole(m.Role),
			Parts: parts,
		})
	}

	resp, err := c.model.GenerateContent(ctx, content, llms.WithModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	usage := usageFromGenerationInfo(choice.GenerationInfo)
	c.logger.Debug("Completion received",
		"model", modelName,
		"promptTokens", usage.PromptTokens,
		"completionTokens", usage.CompletionTokens)

	return &Completion{
		Role:    RoleAssistant,
		Content: choice.Content,
		Usage:   usage,
	}, nil
}

func chatRole(role string) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

func usageFromGenerationInfo(info map[string]any) Usage {
	usage := Usage{}
	if info == nil {
		return usage
	}
	if v, ok := info["PromptTokens"].(int); ok {
		usage.PromptTokens = v
	}
	if v, ok := info["CompletionTokens"].(int); ok {
		usage.CompletionTokens = v
	}
	return usage
}
