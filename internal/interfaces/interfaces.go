package interfaces

import (
	"context"
	"io"

	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/reducer"
	"aria-chat/backend/internal/service"
)

// SessionService is the conversation engine as seen by the API layer.
type SessionService interface {
	Health(ctx context.Context) error
	OpenConversation(ctx context.Context, id string, req *service.OpenConversationRequest) (*model.Conversation, error)
	CloseConversation(ctx context.Context, id string) error
	DeleteConversation(ctx context.Context, id string) error
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	AddUserMessage(ctx context.Context, conversationID, content string, selections []model.ContextSelection) (*model.UserMessage, error)
	AddBotMessage(ctx context.Context, conversationID string) (*model.BotMessage, error)
	UpdateUserMessage(ctx context.Context, conversationID, messageID string, update reducer.UserMessageUpdate) error
	PreviousUserMessage(ctx context.Context, conversationID, messageID string) (*model.UserMessage, error)
	AddBotStep(ctx context.Context, conversationID, messageID string, step model.Step) (model.Step, error)
	UpdateBotStep(ctx context.Context, conversationID, messageID, stepID string, update reducer.StepUpdate) error
	CompleteBotMessageStep(ctx context.Context, conversationID, messageID, stepID string) error
	UpdateBotAction(ctx context.Context, conversationID, messageID, stepID, actionID string, update model.ActionUpdate) error
	DeleteMessages(ctx context.Context, conversationID string, ids []string) error
	Flush(ctx context.Context, conversationID string) error
	ConsumeEvents(ctx context.Context, conversationID, messageID string, body io.Reader) error
}

var _ SessionService = (*service.SessionService)(nil)
