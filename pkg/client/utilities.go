package client

import "context"

// EnhancePromptResponse is the server's rewritten prompt.
type EnhancePromptResponse struct {
	Prompt string `json:"prompt"`
}

// FollowUpQuestionsResponse suggests follow-up questions for a message.
type FollowUpQuestionsResponse struct {
	Questions []string `json:"questions"`
}

// EnhancePrompt asks the server to improve a prompt before sending it.
func (c *Client) EnhancePrompt(ctx context.Context, prompt string) (EnhancePromptResponse, error) {
	var resp EnhancePromptResponse
	err := c.post(ctx, "/api/enhance-prompt", map[string]any{"prompt": prompt}, &resp)
	return resp, err
}

// FollowUpQuestions generates follow-up questions for an assistant message.
func (c *Client) FollowUpQuestions(ctx context.Context, conversationID, messageID string) (FollowUpQuestionsResponse, error) {
	var resp FollowUpQuestionsResponse
	err := c.post(ctx, "/api/generate-follow-up-questions", map[string]any{
		"conversationId": conversationID,
		"messageId":      messageID,
	}, &resp)
	return resp, err
}

// CleanupTempConversations deletes temporary conversations server-side.
func (c *Client) CleanupTempConversations(ctx context.Context) error {
	var resp struct {
		OK bool `json:"ok"`
	}
	return c.post(ctx, "/api/cleanup-temp-conversations", nil, &resp)
}
