package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	app_errors "aria-chat/backend/internal/errors"
	"aria-chat/backend/internal/gateway"
	"aria-chat/backend/internal/ids"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/reducer"
	"aria-chat/backend/internal/repository"
	"aria-chat/backend/internal/session"
	"aria-chat/backend/internal/stream"
)

// ConversationStore is the part of the persistence gateway the service
// reads directly, outside any session.
type ConversationStore interface {
	Ping(ctx context.Context) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// OpenConversationRequest is the DTO for opening a session.
type OpenConversationRequest struct {
	Title       string                     `json:"title" validate:"max=200"`
	Description string                     `json:"description" validate:"max=2000"`
	Metadata    model.ConversationMetadata `json:"metadata"`
}

// SessionService exposes the conversation engine to the API layer. It
// reopens a conversation from the store when no session is live for it.
type SessionService struct {
	sessions *session.Manager
	store    ConversationStore
	logger   *slog.Logger
}

// NewSessionService returns a service that opens sessions through sessions
// and reads conversations from store.
func NewSessionService(sessions *session.Manager, store ConversationStore, logger *slog.Logger) *SessionService {
	return &SessionService{sessions: sessions, store: store, logger: logger}
}

// Health reports whether the store answers.
func (s *SessionService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// OpenConversation opens, or returns the live, session of a conversation.
// An empty id starts a new conversation under a generated id.
func (s *SessionService) OpenConversation(ctx context.Context, id string, req *OpenConversationRequest) (*model.Conversation, error) {
	if id == "" {
		id = ids.Conversation()
	}
	conv := model.Conversation{ID: id}
	if req != nil {
		conv.Title = req.Title
		conv.Description = req.Description
		conv.Metadata = req.Metadata
	}
	c, err := s.sessions.Open(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("could not open conversation %s: %w", id, err)
	}
	opened := c.Conversation()
	return &opened, nil
}

// CloseConversation flushes and closes the live session of a conversation.
func (s *SessionService) CloseConversation(ctx context.Context, id string) error {
	s.logger.Info("Closing conversation", "conversation_id", id)
	return s.sessions.CloseSession(ctx, id)
}

// DeleteConversation closes the session, if any, and deletes the
// conversation with all of its messages.
func (s *SessionService) DeleteConversation(ctx context.Context, id string) error {
	if err := s.sessions.CloseSession(ctx, id); err != nil && !errors.Is(err, app_errors.ErrNotFound) {
		return err
	}
	s.logger.Info("Deleting conversation", "conversation_id", id)
	return s.store.DeleteConversation(ctx, id)
}

// controller returns the live session of a conversation, reopening it from
// the store if it was closed or never opened by this process.
func (s *SessionService) controller(ctx context.Context, id string) (*session.Controller, error) {
	c, err := s.sessions.Get(id)
	if err == nil {
		return c, nil
	}
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: conversation %s", app_errors.ErrNotFound, id)
		}
		if errors.Is(err, gateway.ErrHandleDestroyed) {
			return nil, fmt.Errorf("%w: %v", app_errors.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("could not load conversation %s: %w", id, err)
	}
	s.logger.Debug("Reopening conversation from store", "conversation_id", id)
	return s.sessions.Open(ctx, *conv)
}

// ListMessages returns the messages of a conversation in display order,
// including changes not yet written to the store.
func (s *SessionService) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return c.Messages(), nil
}

// AddUserMessage appends a user message. The write is debounced.
func (s *SessionService) AddUserMessage(ctx context.Context, conversationID, content string, selections []model.ContextSelection) (*model.UserMessage, error) {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return c.AddUserMessage(content, selections)
}

// AddBotMessage appends an empty bot message for an assistant run to fill.
func (s *SessionService) AddBotMessage(ctx context.Context, conversationID string) (*model.BotMessage, error) {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return c.AddBotMessage(nil)
}

// UpdateUserMessage edits a user message and drops every message after it.
func (s *SessionService) UpdateUserMessage(ctx context.Context, conversationID, messageID string, update reducer.UserMessageUpdate) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	return c.UpdateUserMessage(messageID, update)
}

// PreviousUserMessage returns the user message that prompted messageID.
func (s *SessionService) PreviousUserMessage(ctx context.Context, conversationID, messageID string) (*model.UserMessage, error) {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	m, ok := c.FindLastUserMessage(messageID)
	if !ok {
		return nil, fmt.Errorf("%w: no user message before %s", app_errors.ErrNotFound, messageID)
	}
	return m, nil
}

// AddBotStep appends a step to a bot message and returns it with its
// assigned id.
func (s *SessionService) AddBotStep(ctx context.Context, conversationID, messageID string, step model.Step) (model.Step, error) {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return c.AddBotStep(messageID, step)
}

// UpdateBotStep applies a partial update to one step of a bot message.
func (s *SessionService) UpdateBotStep(ctx context.Context, conversationID, messageID, stepID string, update reducer.StepUpdate) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	return c.UpdateBotStep(messageID, stepID, update)
}

// CompleteBotMessageStep settles a message step and expands the workflows
// it announced into their own steps.
func (s *SessionService) CompleteBotMessageStep(ctx context.Context, conversationID, messageID, stepID string) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	return c.CompleteBotMessageStep(messageID, stepID)
}

// UpdateBotAction applies a partial update to one action of a step.
func (s *SessionService) UpdateBotAction(ctx context.Context, conversationID, messageID, stepID, actionID string, update model.ActionUpdate) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	return c.UpdateBotAction(messageID, stepID, actionID, update)
}

// DeleteMessages deletes the given messages, or every message of the
// conversation when ids is empty.
func (s *SessionService) DeleteMessages(ctx context.Context, conversationID string, ids []string) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return c.ClearMessages()
	}
	return c.DeleteMessages(ids...)
}

// Flush writes the pending changes of a conversation now.
func (s *SessionService) Flush(ctx context.Context, conversationID string) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	return c.Flush(ctx)
}

// ConsumeEvents reads newline-delimited assistant stream events from body
// and applies them to the bot message messageID.
func (s *SessionService) ConsumeEvents(ctx context.Context, conversationID, messageID string, body io.Reader) error {
	c, err := s.controller(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, ok := c.GetMessage(messageID, 0); !ok {
		return fmt.Errorf("%w: message %s", app_errors.ErrNotFound, messageID)
	}

	g, gctx := errgroup.WithContext(ctx)
	events := make(chan stream.Event)
	g.Go(func() error {
		return stream.Decode(gctx, body, events, s.logger)
	})
	g.Go(func() error {
		err := stream.NewBinder(c, s.logger).Consume(gctx, messageID, events)
		if errors.Is(err, stream.ErrTooManyToolCalls) {
			return fmt.Errorf("%w: %w", app_errors.ErrValidation, err)
		}
		if err != nil {
			return err
		}
		// Events after the end of the run are ignored but still read, so
		// the decoder can finish.
		ignored := 0
		for range events {
			ignored++
		}
		if ignored > 0 {
			s.logger.Debug("Ignored events after end of run", "message_id", messageID, "count", ignored)
		}
		return nil
	})
	return g.Wait()
}
