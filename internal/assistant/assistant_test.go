package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hydrotrack/internal/llm"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/shared"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockSession struct {
	reply   string
	err     error
	release chan struct{}
	got     []string
}

func (m *mockSession) SendMessage(ctx context.Context, text string) (llm.ContentResponse, error) {
	m.got = append(m.got, text)
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.reply, Usage: shared.TokenUsage{PromptTokens: 8, CompletionTokens: 4, Model: "mock"}}, nil
}

type mockModel struct {
	sessions     []*mockSession
	next         func() *mockSession
	instructions []string
}

func (m *mockModel) StartChat(systemInstruction string) llm.ChatSession {
	m.instructions = append(m.instructions, systemInstruction)
	s := m.next()
	m.sessions = append(m.sessions, s)
	return s
}

type mockRecorder struct {
	mu    sync.Mutex
	metas []shared.AgentMeta
}

func (r *mockRecorder) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metas = append(r.metas, meta)
	return nil
}

func TestConversation(t *testing.T) {
	ctx := context.Background()
	clock := shared.NewFixedClock(time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC))

	t.Run("WelcomeAndReply", func(t *testing.T) {
		model := &mockModel{next: func() *mockSession { return &mockSession{reply: "About 2.5L a day."} }}
		rec := &mockRecorder{}
		col := metrics.NewCollectors()
		c := New(model, rec, col, clock)

		msgs := c.Messages()
		if len(msgs) != 1 || msgs[0].Text != WelcomeMessage || msgs[0].Role != RoleModel {
			t.Fatalf("Expected the welcome message, got %+v", msgs)
		}
		if model.instructions[0] != SystemInstruction {
			t.Errorf("Expected the system instruction to prime the session")
		}

		reply, err := c.Send(ctx, "  How much should I drink?  ")
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if reply.Text != "About 2.5L a day." {
			t.Errorf("Unexpected reply %q", reply.Text)
		}
		if got := model.sessions[0].got[0]; got != "How much should I drink?" {
			t.Errorf("Expected trimmed input, got %q", got)
		}
		if n := len(c.Messages()); n != 3 {
			t.Errorf("Expected 3 messages, got %d", n)
		}
		if len(rec.metas) != 1 || rec.metas[0].Usage.PromptTokens != 8 {
			t.Errorf("Expected usage to be recorded, got %+v", rec.metas)
		}
		if got := testutil.ToFloat64(col.AssistantRequests.WithLabelValues(metrics.OutcomeOK)); got != 1 {
			t.Errorf("Expected 1 ok request, got %v", got)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		model := &mockModel{next: func() *mockSession { return &mockSession{reply: "x"} }}
		c := New(model, nil, nil, clock)
		if _, err := c.Send(ctx, "   "); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Expected ErrEmptyMessage, got %v", err)
		}
		if len(model.sessions[0].got) != 0 {
			t.Error("Expected no request for empty input")
		}
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		model := &mockModel{next: func() *mockSession { return &mockSession{err: errors.New("quota")} }}
		rec := &mockRecorder{}
		c := New(model, rec, nil, clock)
		reply, err := c.Send(ctx, "hello")
		if err != nil {
			t.Fatalf("Expected failures to be absorbed, got %v", err)
		}
		if reply.Text != FallbackMessage {
			t.Errorf("Expected fallback message, got %q", reply.Text)
		}
		if len(rec.metas) != 1 || !rec.metas[0].Failed {
			t.Errorf("Expected a failed execution to be recorded, got %+v", rec.metas)
		}
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		model := &mockModel{next: func() *mockSession { return &mockSession{reply: ""} }}
		c := New(model, nil, nil, clock)
		reply, _ := c.Send(ctx, "hello")
		if reply.Text != EmptyResponseMessage {
			t.Errorf("Expected empty-response message, got %q", reply.Text)
		}
	})

	t.Run("RejectsConcurrentSend", func(t *testing.T) {
		release := make(chan struct{})
		model := &mockModel{next: func() *mockSession { return &mockSession{reply: "ok", release: release} }}
		c := New(model, nil, nil, clock)

		done := make(chan struct{})
		go func() {
			c.Send(ctx, "first")
			close(done)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for !c.Busy() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if _, err := c.Send(ctx, "second"); !errors.Is(err, ErrBusy) {
			t.Errorf("Expected ErrBusy, got %v", err)
		}
		close(release)
		<-done
		if c.Busy() {
			t.Error("Expected the conversation to be idle again")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		model := &mockModel{next: func() *mockSession { return &mockSession{reply: "ok"} }}
		c := New(model, nil, nil, clock)
		c.Send(ctx, "hello")

		msg := c.Reset()
		if msg.Text != ResetMessage {
			t.Errorf("Expected reset message, got %q", msg.Text)
		}
		msgs := c.Messages()
		if len(msgs) != 1 || msgs[0].Text != ResetMessage {
			t.Errorf("Expected only the reset message, got %+v", msgs)
		}
		if len(model.sessions) != 2 {
			t.Errorf("Expected a new session after reset, got %d sessions", len(model.sessions))
		}
	})
}
