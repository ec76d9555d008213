package repository

import (
	"cmp"
	"context"
	"slices"

	"aria-chat/backend/internal/model"
)

// Repository is the durable store behind the persistence gateway. Every
// implementation keeps the same semantics so the gateway worker can host
// any of them.
type Repository interface {
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	UpsertConversation(ctx context.Context, conv *model.Conversation) error
	// GetConversation returns ErrNotFound when no conversation has the id.
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	// DeleteConversation removes the conversation and all of its messages.
	DeleteConversation(ctx context.Context, id string) error

	// UpsertMessages writes every message keyed by id. The last write wins.
	UpsertMessages(ctx context.Context, messages []model.Message) error
	// GetMessages returns a conversation's messages ordered by timestamp,
	// ties broken by id.
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	// DeleteMessages removes the messages with the given ids. Unknown ids
	// are ignored.
	DeleteMessages(ctx context.Context, ids []string) error
	ClearMessagesForConversation(ctx context.Context, conversationID string) error
	ClearAllMessages(ctx context.Context) error

	Close() error
}

// sortMessages orders messages by timestamp, then id.
func sortMessages(messages []model.Message) {
	slices.SortStableFunc(messages, func(a, b model.Message) int {
		if c := a.Meta().Timestamp.Compare(b.Meta().Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Meta().ID, b.Meta().ID)
	})
}
