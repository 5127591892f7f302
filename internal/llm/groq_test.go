package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"hydrotrack/internal/config"
)

func TestGroqSession(t *testing.T) {
	var (
		mu       sync.Mutex
		requests [][]groqMessage
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		var body struct {
			Messages []groqMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		requests = append(requests, body.Messages)
		mu.Unlock()
		if body.Messages[len(body.Messages)-1].Content == "fail" {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama-test","choices":[{"message":{"content":"Drink up"}}],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer server.Close()

	client := NewGroqClient(&config.Config{GroqAPIKey: "test-key", GroqModel: "llama"}).(*groqClient)
	client.url = server.URL

	session := client.StartChat("You are a hydration assistant.")
	resp, err := session.SendMessage(context.Background(), "How much water?")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Content != "Drink up" {
		t.Errorf("Expected 'Drink up', got %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 || resp.Usage.Model != "llama-test" {
		t.Errorf("Unexpected usage %+v", resp.Usage)
	}

	if _, err := session.SendMessage(context.Background(), "fail"); err == nil {
		t.Fatal("Expected an error from a non-200 response, got nil")
	}

	if _, err := session.SendMessage(context.Background(), "And tea?"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	mu.Lock()
	last := requests[len(requests)-1]
	mu.Unlock()
	// system, user, assistant, user; the failed turn is not kept.
	if len(last) != 4 {
		t.Fatalf("Expected 4 messages in history, got %d: %+v", len(last), last)
	}
	if last[0].Role != "system" || last[2].Role != "assistant" || last[3].Content != "And tea?" {
		t.Errorf("Unexpected history %+v", last)
	}
}
