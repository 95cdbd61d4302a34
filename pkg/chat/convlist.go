package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// SummaryCache persists conversation summaries between runs.
// *convcache.Store satisfies it; a nil cache disables persistence.
type SummaryCache interface {
	Upsert(ctx context.Context, conv client.Conversation) error
	ReplaceAll(ctx context.Context, conversations []client.Conversation) error
	List(ctx context.Context) ([]client.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// ConversationList is the sidebar's view of all conversations. It is a
// read-through cache over the gateway: Hydrate serves stale summaries from
// the local store immediately, Load refreshes them from the server, and
// generation sessions push per-tick summary updates through ApplyUpdate.
type ConversationList struct {
	gw    Gateway
	cache SummaryCache

	mu            sync.RWMutex
	conversations []client.Conversation
}

func NewConversationList(gw Gateway, cache SummaryCache) *ConversationList {
	return &ConversationList{gw: gw, cache: cache}
}

// Conversations returns the current summary list.
func (l *ConversationList) Conversations() []client.Conversation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]client.Conversation(nil), l.conversations...)
}

// Get returns one conversation summary by ID.
func (l *ConversationList) Get(id string) (client.Conversation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, conv := range l.conversations {
		if conv.ID == id {
			return conv, true
		}
	}
	return client.Conversation{}, false
}

// Hydrate fills the list from the local cache without touching the network.
// Call it once on startup, before the first Load.
func (l *ConversationList) Hydrate(ctx context.Context) error {
	if l.cache == nil {
		return nil
	}
	cached, err := l.cache.List(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	if len(l.conversations) == 0 {
		l.conversations = cached
	}
	l.mu.Unlock()
	return nil
}

// Load replaces the list with a fresh snapshot from the server and writes it
// through to the cache. Cache failures are logged, never surfaced: the remote
// list is already in memory.
func (l *ConversationList) Load(ctx context.Context) error {
	conversations, err := l.gw.ListConversations(ctx, nil)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conversations = conversations
	l.mu.Unlock()

	if l.cache != nil {
		if err := l.cache.ReplaceAll(ctx, conversations); err != nil {
			log.Warn().Err(err).Str("component", "chat").Msg("failed to persist conversation list")
		}
	}
	return nil
}

// ApplyUpdate merges a single refreshed summary (title, pinned, generating)
// into the list, inserting it if unseen.
func (l *ConversationList) ApplyUpdate(conv client.Conversation) {
	if conv.ID == "" {
		return
	}
	l.mu.Lock()
	found := false
	for i := range l.conversations {
		if l.conversations[i].ID == conv.ID {
			l.conversations[i] = conv
			found = true
			break
		}
	}
	if !found {
		l.conversations = append([]client.Conversation{conv}, l.conversations...)
	}
	l.mu.Unlock()

	if l.cache != nil {
		if err := l.cache.Upsert(context.Background(), conv); err != nil {
			log.Warn().Err(err).Str("component", "chat").Str("conv_id", conv.ID).Msg("failed to cache conversation summary")
		}
	}
}

// Remove drops a conversation from the list and the cache. The remote delete
// is the caller's job.
func (l *ConversationList) Remove(ctx context.Context, id string) {
	l.mu.Lock()
	kept := l.conversations[:0]
	for _, conv := range l.conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	l.conversations = kept
	l.mu.Unlock()

	if l.cache != nil {
		if err := l.cache.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("component", "chat").Str("conv_id", id).Msg("failed to evict cached conversation")
		}
	}
}
