package model

import "encoding/json"

// Conversation stores the identity and metadata of one chat session.
type Conversation struct {
	ID          string               `json:"id"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Metadata    ConversationMetadata `json:"metadata"`
}

// ConversationMetadata links a conversation to the model vendor's own thread.
type ConversationMetadata struct {
	Vendor   string          `json:"vendor,omitempty"`
	ThreadID string          `json:"threadId,omitempty"`
	Extra    json.RawMessage `json:"extra,omitempty"`
}
