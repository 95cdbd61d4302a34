package client

import (
	"context"
	"net/url"
)

// ListMessages returns every message of a conversation in server (creation)
// order.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var messages []Message
	err := c.get(ctx, "/api/db/messages?conversationId="+url.QueryEscape(conversationID), &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateMessage inserts a message row without triggering generation.
func (c *Client) CreateMessage(ctx context.Context, conversationID, content string, role Role) (Message, error) {
	var message Message
	err := c.post(ctx, "/api/db/messages", map[string]any{
		"action":         "create",
		"conversationId": conversationID,
		"content":        content,
		"contentHtml":    content,
		"role":           role,
	}, &message)
	return message, err
}

// Generate asks the server to produce an assistant reply. The response only
// acknowledges the request; the reply itself has to be polled for.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	var resp GenerateResponse
	err := c.post(ctx, "/api/generate-message", req, &resp)
	return resp, err
}

// CancelGeneration asks the server to stop an in-flight generation.
func (c *Client) CancelGeneration(ctx context.Context, conversationID string) (CancelResponse, error) {
	var resp CancelResponse
	err := c.post(ctx, "/api/cancel-generation", map[string]any{
		"conversation_id": conversationID,
		"session_token":   "",
	}, &resp)
	return resp, err
}
