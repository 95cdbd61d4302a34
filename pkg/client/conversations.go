package client

import (
	"context"
	"net/http"
	"net/url"
)

// ListConversations returns all conversations, optionally filtered by project.
func (c *Client) ListConversations(ctx context.Context, projectID *string) ([]Conversation, error) {
	params := url.Values{}
	if projectID != nil {
		params.Set("projectId", *projectID)
	}
	var conversations []Conversation
	if err := c.get(ctx, "/api/db/conversations"+queryString(params), &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetConversation fetches a single conversation, including its server-reported
// generating flag.
func (c *Client) GetConversation(ctx context.Context, id string) (Conversation, error) {
	var conversation Conversation
	err := c.get(ctx, "/api/db/conversations?id="+url.QueryEscape(id), &conversation)
	return conversation, err
}

// CreateConversation creates a new empty conversation.
func (c *Client) CreateConversation(ctx context.Context, title string, projectID *string) (Conversation, error) {
	body := map[string]any{
		"action": "create",
		"title":  title,
	}
	if projectID != nil {
		body["projectId"] = *projectID
	}
	var conversation Conversation
	err := c.post(ctx, "/api/db/conversations", body, &conversation)
	return conversation, err
}

// CreateConversationWithMessage creates a conversation seeded with an initial
// user message, without triggering generation.
func (c *Client) CreateConversationWithMessage(ctx context.Context, content string, projectID *string) (Conversation, error) {
	body := map[string]any{
		"action":      "createWithMessage",
		"content":     content,
		"contentHtml": content,
		"role":        RoleUser,
	}
	if projectID != nil {
		body["projectId"] = *projectID
	}
	var conversation Conversation
	err := c.post(ctx, "/api/db/conversations", body, &conversation)
	return conversation, err
}

// UpdateConversationTitle renames a conversation.
func (c *Client) UpdateConversationTitle(ctx context.Context, conversationID, title string) error {
	return c.post(ctx, "/api/db/conversations", map[string]any{
		"action":         "updateTitle",
		"conversationId": conversationID,
		"title":          title,
	}, nil)
}

// SetConversationPinned pins or unpins a conversation.
func (c *Client) SetConversationPinned(ctx context.Context, conversationID string, pinned bool) error {
	return c.post(ctx, "/api/db/conversations", map[string]any{
		"action":         "setPinned",
		"conversationId": conversationID,
		"pinned":         pinned,
	}, nil)
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/api/db/conversations?id="+url.QueryEscape(conversationID), nil, nil)
}
