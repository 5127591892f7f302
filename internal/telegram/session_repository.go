package telegram

import (
	"sync"
	"time"

	"hydrotrack/internal/assistant"
	"hydrotrack/internal/shared"
)

// DefaultSessionTTL is how long an idle chat keeps its conversation.
const DefaultSessionTTL = 2 * time.Hour

type session struct {
	conv      *assistant.Conversation
	expiresAt time.Time
}

// SessionRepository keeps one assistant conversation per Telegram chat.
// Conversations idle for longer than the TTL are replaced on next use.
type SessionRepository struct {
	newConversation func() *assistant.Conversation
	ttl             time.Duration
	clock           shared.Clock

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewSessionRepository creates a SessionRepository. A non-positive ttl means
// DefaultSessionTTL.
func NewSessionRepository(newConversation func() *assistant.Conversation, ttl time.Duration, clock shared.Clock) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &SessionRepository{
		newConversation: newConversation,
		ttl:             ttl,
		clock:           clock,
		sessions:        make(map[int64]*session),
	}
}

// Get returns the live conversation for chatID, starting one if needed, and
// extends its expiry.
func (r *SessionRepository) Get(chatID int64) *assistant.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	s, ok := r.sessions[chatID]
	if !ok || now.After(s.expiresAt) {
		s = &session{conv: r.newConversation()}
		r.sessions[chatID] = s
	}
	s.expiresAt = now.Add(r.ttl)
	return s.conv
}

// Reset clears the conversation of chatID.
func (r *SessionRepository) Reset(chatID int64) assistant.Message {
	return r.Get(chatID).Reset()
}

// CleanupExpired drops idle conversations and reports how many were removed.
func (r *SessionRepository) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for id, s := range r.sessions {
		if now.After(s.expiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
