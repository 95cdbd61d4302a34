package client

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Conversation is a conversation summary as reported by the server.
// The server owns this record; the client only caches it.
type Conversation struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	UserID     string   `json:"userId"`
	ProjectID  *string  `json:"projectId"`
	Pinned     bool     `json:"pinned"`
	Generating bool     `json:"generating"`
	CostUSD    *float64 `json:"costUsd"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

// Attachment references an uploaded image or document.
type Attachment struct {
	URL       string `json:"url"`
	StorageID string `json:"storage_id,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	FileType  string `json:"fileType,omitempty"`
}

// Message is a single message row. The server creates assistant rows before
// their content is fully written, so an empty Content does not mean the
// message is done.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	ContentHTML    string       `json:"contentHtml,omitempty"`
	ModelID        string       `json:"modelId,omitempty"`
	Reasoning      string       `json:"reasoning,omitempty"`
	Images         []Attachment `json:"images,omitempty"`
	Documents      []Attachment `json:"documents,omitempty"`
	CreatedAt      string       `json:"createdAt"`
}

// HasContent reports whether the message carries any visible content.
func (m Message) HasContent() bool {
	return m.Content != "" || m.ContentHTML != ""
}

// UserModel is a model entry from the user's model registry.
type UserModel struct {
	ModelID  string `json:"modelId"`
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
	Pinned   bool   `json:"pinned"`
}

// Project groups conversations under a shared system prompt.
type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Color        string `json:"color,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// UserSettings holds server-side user preferences.
type UserSettings struct {
	PrivacyMode             bool    `json:"privacyMode"`
	ContextMemoryEnabled    bool    `json:"contextMemoryEnabled"`
	PersistentMemoryEnabled bool    `json:"persistentMemoryEnabled"`
	Theme                   *string `json:"theme"`
}

// GenerateRequest asks the server to produce an assistant reply. The call is
// fire-and-forget: the reply text materializes later and has to be polled for.
// An empty ConversationID makes the server create a new conversation.
type GenerateRequest struct {
	Message           string       `json:"message,omitempty"`
	ModelID           string       `json:"model_id"`
	AssistantID       string       `json:"assistant_id,omitempty"`
	ProjectID         string       `json:"project_id,omitempty"`
	ConversationID    string       `json:"conversation_id,omitempty"`
	WebSearchEnabled  bool         `json:"web_search_enabled,omitempty"`
	WebSearchMode     string       `json:"web_search_mode,omitempty"`
	WebSearchProvider string       `json:"web_search_provider,omitempty"`
	Images            []Attachment `json:"images,omitempty"`
	Documents         []Attachment `json:"documents,omitempty"`
	ReasoningEffort   string       `json:"reasoning_effort,omitempty"`
	Temporary         bool         `json:"temporary,omitempty"`
	ProviderID        string       `json:"provider_id,omitempty"`
}

// GenerateResponse acknowledges a generation request. It carries the
// (possibly newly assigned) conversation ID, never the reply content.
type GenerateResponse struct {
	OK             bool   `json:"ok"`
	ConversationID string `json:"conversation_id"`
}

// CancelResponse is the server's answer to a cancel-generation request.
type CancelResponse struct {
	OK        bool `json:"ok"`
	Cancelled bool `json:"cancelled"`
}
