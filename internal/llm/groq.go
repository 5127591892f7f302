package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"hydrotrack/internal/config"
	"hydrotrack/internal/shared"
)

const groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqClient is a client for the Groq API.
type groqClient struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) ChatClient {
	return &groqClient{
		apiKey: cfg.GroqAPIKey,
		model:  cfg.GroqModel,
		url:    groqAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StartChat opens a conversation. Groq is stateless, so the session resends
// the whole history on every turn.
func (c *groqClient) StartChat(systemInstruction string) ChatSession {
	s := &groqSession{client: c}
	if systemInstruction != "" {
		s.history = append(s.history, groqMessage{Role: "system", Content: systemInstruction})
	}
	return s
}

func (c *groqClient) Close() error { return nil }

type groqSession struct {
	client  *groqClient
	history []groqMessage
}

// SendMessage appends the user turn and, on success, the model's reply.
func (s *groqSession) SendMessage(ctx context.Context, text string) (ContentResponse, error) {
	messages := append(s.history[:len(s.history):len(s.history)], groqMessage{Role: "user", Content: text})
	resp, err := s.client.complete(ctx, messages)
	if err != nil {
		return ContentResponse{}, err
	}
	s.history = append(messages, groqMessage{Role: "assistant", Content: resp.Content})
	return resp, nil
}

func (c *groqClient) complete(ctx context.Context, messages []groqMessage) (ContentResponse, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.7,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var groqResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	out := ContentResponse{Usage: shared.TokenUsage{
		PromptTokens:     groqResp.Usage.PromptTokens,
		CompletionTokens: groqResp.Usage.CompletionTokens,
		TotalTokens:      groqResp.Usage.TotalTokens,
		Model:            c.model,
	}}
	if groqResp.Model != "" {
		out.Usage.Model = groqResp.Model
	}
	if len(groqResp.Choices) > 0 {
		out.Content = groqResp.Choices[0].Message.Content
	}
	return out, nil
}
