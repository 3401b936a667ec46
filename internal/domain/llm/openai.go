package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"avatar-server-go/internal/platform/config"
	platformerrors "avatar-server-go/internal/platform/errors"
)

// Backend is the chat completion boundary the generation service talks to.
type Backend interface {
	Chat(ctx context.Context, systemPrompt, conversation string) (string, error)
}

type groqBackend struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewGroqBackend builds a chat backend against any OpenAI-compatible
// endpoint, Groq included.
func NewGroqBackend(cfg config.LLMConfig) Backend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &groqBackend{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.ModelName,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}
}

func (g *groqBackend) Chat(ctx context.Context, systemPrompt, conversation string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: conversation},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindUpstream, "llm.chat", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", platformerrors.New(platformerrors.KindUpstream, "llm.chat", "no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Ping sends a minimal completion to verify the upstream model is reachable,
// mirroring what the health endpoint reports.
func Ping(ctx context.Context, backend Backend) error {
	_, err := backend.Chat(ctx, "You are a test assistant.", "Reply 'OK'")
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindUpstream, "llm.ping", "connection test failed", err)
	}
	return nil
}
