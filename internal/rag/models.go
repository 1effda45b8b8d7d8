package rag

// Document is one stored text with its caller-assigned identity.
// Re-ingesting an existing id overwrites the previous text and embedding.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Conversation roles accepted in query history. Any role other than
// RoleUser is rendered as the assistant when the prompt is assembled.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one prior message of the conversation, supplied by the
// caller with each query. History is never persisted by this service.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
