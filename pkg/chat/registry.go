package chat

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry maps a conversation ID to at most one live generation session.
// The original client kept a single shared poll timer; a per-conversation
// registry lets generations for different conversations run concurrently
// while still guaranteeing one poller per conversation.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// Get returns the live session for a conversation, if any.
func (r *Registry) Get(conversationID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[conversationID]
	return s, ok
}

// Replace installs sess as the one session for the conversation. Any previous
// session is cancelled before Replace returns, so its next tick can never
// fire once the new session starts polling.
func (r *Registry) Replace(conversationID string, sess *Session) {
	if conversationID == "" || sess == nil {
		return
	}
	r.mu.Lock()
	old := r.sessions[conversationID]
	r.sessions[conversationID] = sess
	r.mu.Unlock()

	if old != nil && old != sess {
		log.Debug().Str("component", "chat").Str("conv_id", conversationID).Msg("superseding active generation session")
		old.Cancel()
	}
}

// Stop cancels and removes the session for a conversation, if any.
func (r *Registry) Stop(conversationID string) {
	r.mu.Lock()
	old := r.sessions[conversationID]
	delete(r.sessions, conversationID)
	r.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
}

// StopAll cancels and removes every session. Used on teardown and account
// switch.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
}

// release removes a retired session, but only if it is still the registered
// one; a session that was superseded must not evict its replacement.
func (r *Registry) release(conversationID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[conversationID] == sess {
		delete(r.sessions, conversationID)
	}
}
