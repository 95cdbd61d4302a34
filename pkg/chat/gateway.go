package chat

import (
	"context"

	"github.com/nanochat/nanochat-desktop/pkg/client"
)

// Gateway is the slice of the remote API the generation tracker consumes.
// *client.Client satisfies it; tests substitute scripted fakes.
type Gateway interface {
	// Generate submits a fire-and-forget generation request. The response
	// carries only an acknowledgement and the conversation ID.
	Generate(ctx context.Context, req client.GenerateRequest) (client.GenerateResponse, error)
	// ListMessages returns the full message list in creation order.
	ListMessages(ctx context.Context, conversationID string) ([]client.Message, error)
	// GetConversation returns the conversation summary, including the
	// server-reported generating flag.
	GetConversation(ctx context.Context, id string) (client.Conversation, error)
	// CancelGeneration asks the server to stop generating.
	CancelGeneration(ctx context.Context, conversationID string) (client.CancelResponse, error)
	// ListConversations backs the sidebar list and the final authoritative
	// refresh after a completed generation.
	ListConversations(ctx context.Context, projectID *string) ([]client.Conversation, error)
}

var _ Gateway = (*client.Client)(nil)
