package chat

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// ViewTopic is the pub/sub topic all view-state events are published on.
// Subscribers filter by ConversationID.
const ViewTopic = "chat.view"

type EventType string

const (
	// EventConversationSelected: the viewed conversation changed and the
	// snapshot was reset.
	EventConversationSelected EventType = "conversation.selected"
	// EventConversationCreated: the server assigned an ID to a brand-new
	// conversation. Emitted exactly once per created conversation.
	EventConversationCreated EventType = "conversation.created"
	// EventMessagesUpdated carries the latest full message snapshot.
	EventMessagesUpdated EventType = "messages.updated"
	// EventGeneratingChanged signals the generating flag flipping.
	EventGeneratingChanged EventType = "generating.changed"
	EventErrorRaised       EventType = "error.raised"
	EventErrorCleared      EventType = "error.cleared"
)

// Event is the JSON payload published on ViewTopic for every view-state
// mutation.
type Event struct {
	Type           EventType        `json:"type"`
	ConversationID string           `json:"conversationId,omitempty"`
	Messages       []client.Message `json:"messages,omitempty"`
	Generating     bool             `json:"generating,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// EventFromMessage decodes a view-state event from a watermill message.
func EventFromMessage(msg *message.Message) (Event, error) {
	var ev Event
	if msg == nil {
		return ev, errors.New("nil message")
	}
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, errors.Wrap(err, "decode view event")
	}
	return ev, nil
}
