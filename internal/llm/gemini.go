package llm

import (
	"context"
	"fmt"
	"strings"

	"hydrotrack/internal/config"
	"hydrotrack/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiClient is a client for the Google Gemini API.
type geminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (ChatClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiClient{client: client, modelName: cfg.GeminiModel}, nil
}

// StartChat opens a Gemini chat session with the given system instruction.
func (c *geminiClient) StartChat(systemInstruction string) ChatSession {
	model := c.client.GenerativeModel(c.modelName)
	if systemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	}
	return &geminiSession{cs: model.StartChat(), modelName: c.modelName}
}

// Close closes the underlying Gemini client.
func (c *geminiClient) Close() error {
	return c.client.Close()
}

type geminiSession struct {
	cs        *genai.ChatSession
	modelName string
}

func (s *geminiSession) SendMessage(ctx context.Context, text string) (ContentResponse, error) {
	resp, err := s.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send message: %w", err)
	}

	out := ContentResponse{Usage: shared.TokenUsage{Model: s.modelName}}
	if resp.UsageMetadata != nil {
		out.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	out.Content = sb.String()
	return out, nil
}
