package chat

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// Snapshot is the externally observed chat state.
type Snapshot struct {
	ConversationID string
	Messages       []client.Message
	Loading        bool
	Generating     bool
	LastError      string
}

// ViewState is the single projection the UI renders from. It is mutated only
// through the transitions below; generation sessions are the only component
// allowed to flip Generating to true. Every mutation is published as an Event
// on ViewTopic.
type ViewState struct {
	mu             sync.RWMutex
	conversationID string
	messages       []client.Message
	loading        bool
	generating     bool
	lastError      string

	pubsub *gochannel.GoChannel
}

func NewViewState() *ViewState {
	return &ViewState{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{}),
	}
}

// Subscribe returns a channel of view-state events. The channel closes when
// ctx is cancelled or the view state is closed.
func (v *ViewState) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return v.pubsub.Subscribe(ctx, ViewTopic)
}

func (v *ViewState) Close() error {
	return v.pubsub.Close()
}

// Snapshot returns a copy of the current state.
func (v *ViewState) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{
		ConversationID: v.conversationID,
		Messages:       append([]client.Message(nil), v.messages...),
		Loading:        v.loading,
		Generating:     v.generating,
		LastError:      v.lastError,
	}
}

// Select resets the snapshot for a newly viewed conversation. The one-shot
// message load that follows is the caller's job (Service.SelectConversation);
// selecting never starts polling.
func (v *ViewState) Select(conversationID string) {
	v.mu.Lock()
	v.conversationID = conversationID
	v.messages = nil
	v.loading = conversationID != ""
	v.generating = false
	v.lastError = ""
	v.mu.Unlock()
	v.publish(Event{Type: EventConversationSelected, ConversationID: conversationID})
}

// Bind attaches the view to a conversation the server just created, without
// resetting the snapshot, and announces the new conversation.
func (v *ViewState) Bind(conversationID string) {
	v.mu.Lock()
	v.conversationID = conversationID
	v.mu.Unlock()
	v.publish(Event{Type: EventConversationCreated, ConversationID: conversationID})
}

// MessagesUpdated replaces the message snapshot. Updates for a conversation
// other than the viewed one are dropped; a session polling in the background
// keeps running but must not clobber the foreground view.
func (v *ViewState) MessagesUpdated(conversationID string, messages []client.Message) {
	v.mu.Lock()
	if conversationID != v.conversationID {
		v.mu.Unlock()
		return
	}
	v.messages = append([]client.Message(nil), messages...)
	v.loading = false
	v.mu.Unlock()
	v.publish(Event{Type: EventMessagesUpdated, ConversationID: conversationID, Messages: messages})
}

// GeneratingChanged flips the generating flag for the viewed conversation.
func (v *ViewState) GeneratingChanged(conversationID string, generating bool) {
	v.mu.Lock()
	if conversationID != v.conversationID {
		v.mu.Unlock()
		return
	}
	if v.generating == generating {
		v.mu.Unlock()
		return
	}
	v.generating = generating
	v.mu.Unlock()
	v.publish(Event{Type: EventGeneratingChanged, ConversationID: conversationID, Generating: generating})
}

// ErrorRaised surfaces a user-visible error. It stays set until ErrorCleared
// is called explicitly; later successful operations never silently clear it.
func (v *ViewState) ErrorRaised(errMsg string) {
	v.mu.Lock()
	v.lastError = errMsg
	v.loading = false
	conversationID := v.conversationID
	v.mu.Unlock()
	v.publish(Event{Type: EventErrorRaised, ConversationID: conversationID, Error: errMsg})
}

func (v *ViewState) ErrorCleared() {
	v.mu.Lock()
	v.lastError = ""
	conversationID := v.conversationID
	v.mu.Unlock()
	v.publish(Event{Type: EventErrorCleared, ConversationID: conversationID})
}

func (v *ViewState) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("component", "viewstate").Msg("failed to encode view event")
		return
	}
	if err := v.pubsub.Publish(ViewTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		log.Warn().Err(err).Str("component", "viewstate").Str("type", string(ev.Type)).Msg("failed to publish view event")
	}
}
