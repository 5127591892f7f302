package llm

import (
	"context"

	"hydrotrack/internal/config"
	"hydrotrack/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// ChatSession is a multi-turn conversation that keeps its own history.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (ContentResponse, error)
}

// ChatModel starts conversations primed with a system instruction.
type ChatModel interface {
	StartChat(systemInstruction string) ChatSession
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// ChatClient is a ChatModel holding resources that must be released.
type ChatClient interface {
	ChatModel
	Closer
}

// NewChatClient builds the client for the configured provider.
func NewChatClient(ctx context.Context, cfg *config.Config) (ChatClient, error) {
	if err := cfg.RequireAssistant(); err != nil {
		return nil, err
	}
	if cfg.LLMProvider == config.ProviderGroq {
		return NewGroqClient(cfg), nil
	}
	return NewGeminiClient(ctx, cfg)
}
