// Package assistant holds the hydration chat conversation on top of an LLM
// chat session.
package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"hydrotrack/internal/llm"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/shared"

	"github.com/google/uuid"
)

const agentName = "assistant"

// SystemInstruction primes every chat session.
const SystemInstruction = "You are a helpful, encouraging assistant for a water tracking app called HydroTrack. " +
	"Your goal is to help users stay hydrated, answer questions about water intake, health benefits of water, " +
	"and provide general wellness tips related to hydration. Keep answers concise and friendly."

const (
	WelcomeMessage       = "Hi! I'm your HydroTrack assistant. Ask me anything about hydration, water benefits, or tracking tips!"
	ResetMessage         = "Chat cleared. How can I help you with your hydration today?"
	FallbackMessage      = "Sorry, I encountered an error connecting to the AI. Please try again later."
	EmptyResponseMessage = "I'm sorry, I couldn't generate a response."
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being answered")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one line of the conversation log.
type Message struct {
	ID   string    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// UsageRecorder persists per-call usage. *metrics.Store satisfies it.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Conversation is a single chat thread. At most one message is in flight.
type Conversation struct {
	model      llm.ChatModel
	recorder   UsageRecorder
	collectors *metrics.Collectors
	clock      shared.Clock

	mu       sync.Mutex
	session  llm.ChatSession
	messages []Message
	busy     bool
}

// New starts a conversation showing the welcome message. recorder and
// collectors may be nil.
func New(model llm.ChatModel, recorder UsageRecorder, collectors *metrics.Collectors, clock shared.Clock) *Conversation {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	c := &Conversation{
		model:      model,
		recorder:   recorder,
		collectors: collectors,
		clock:      clock,
	}
	c.session = model.StartChat(SystemInstruction)
	c.messages = []Message{c.newMessage(RoleModel, WelcomeMessage)}
	return c
}

// Send submits text and returns the reply that was appended to the log.
// Provider failures are not returned as errors: the reply is then the
// fallback message.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.busy = true
	session := c.session
	c.messages = append(c.messages, c.newMessage(RoleUser, text))
	c.mu.Unlock()

	start := time.Now()
	resp, err := session.SendMessage(ctx, text)
	latency := time.Since(start)

	var reply Message
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		log.Printf("[%s] chat request failed: %v", agentName, err)
		reply = c.newMessage(RoleModel, FallbackMessage)
		outcome = metrics.OutcomeError
	case strings.TrimSpace(resp.Content) == "":
		reply = c.newMessage(RoleModel, EmptyResponseMessage)
		outcome = metrics.OutcomeEmpty
	default:
		reply = c.newMessage(RoleModel, resp.Content)
	}
	c.observe(ctx, resp.Usage, latency, outcome, err != nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	// A reset while waiting started a new thread; the stale reply is dropped.
	if c.session == session {
		c.messages = append(c.messages, reply)
	}
	return reply, nil
}

// Reset discards the history and starts a fresh session.
func (c *Conversation) Reset() Message {
	msg := c.newMessage(RoleModel, ResetMessage)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = c.model.StartChat(SystemInstruction)
	c.messages = []Message{msg}
	return msg
}

// Messages returns a copy of the log, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Busy reports whether a message is awaiting its reply.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Conversation) newMessage(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, At: c.clock.Now()}
}

func (c *Conversation) observe(ctx context.Context, usage shared.TokenUsage, latency time.Duration, outcome string, failed bool) {
	if c.collectors != nil {
		c.collectors.AssistantRequests.WithLabelValues(outcome).Inc()
		c.collectors.AssistantLatency.Observe(latency.Seconds())
	}
	if c.recorder == nil {
		return
	}
	meta := shared.AgentMeta{AgentName: agentName, Usage: usage, Latency: latency, Failed: failed}
	if err := c.recorder.RecordMeta(ctx, meta); err != nil {
		log.Printf("[%s] failed to record usage: %v", agentName, err)
	}
}
