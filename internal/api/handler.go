package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	app_errors "aria-chat/backend/internal/errors"
	"aria-chat/backend/internal/interfaces"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/service"
)

// maxStepBody bounds the size of a step document sent by a client.
const maxStepBody = 1 << 20

// ConversationHandler serves the conversation and message routes.
type ConversationHandler struct {
	service interfaces.SessionService
}

func NewConversationHandler(svc interfaces.SessionService) *ConversationHandler {
	return &ConversationHandler{service: svc}
}

func conversationID(r *http.Request) string { return chi.URLParam(r, "conversationID") }
func messageID(r *http.Request) string      { return chi.URLParam(r, "messageID") }
func stepID(r *http.Request) string         { return chi.URLParam(r, "stepID") }

// Health godoc
// @Summary      Health check
// @Description  Answers 200 when the conversation store responds to a ping, 503 otherwise.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  StatusResponse
// @Router       /healthz [get]
func (h *ConversationHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		slog.Warn("Health check failed", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// OpenConversation godoc
// @Summary      Open a conversation
// @Description  Opens the session of a conversation, creating the conversation if it does not exist yet.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string                           true   "Conversation ID"
// @Param        request         body  service.OpenConversationRequest  false  "Title, description and vendor metadata"
// @Success      200  {object}  model.Conversation
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID} [put]
func (h *ConversationHandler) OpenConversation(w http.ResponseWriter, r *http.Request) {
	var req service.OpenConversationRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondWithError(w, err)
		return
	}
	conv, err := h.service.OpenConversation(r.Context(), conversationID(r), &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, conv)
}

// CreateConversation godoc
// @Summary      Create a conversation
// @Description  Starts a conversation under a generated id and opens its session.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        request  body  service.OpenConversationRequest  false  "Title, description and vendor metadata"
// @Success      201  {object}  model.Conversation
// @Failure      400  {object}  ErrorResponse
// @Router       /api/v1/conversations [post]
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req service.OpenConversationRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondWithError(w, err)
		return
	}
	conv, err := h.service.OpenConversation(r.Context(), "", &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, conv)
}

// CloseConversation godoc
// @Summary      Close a conversation
// @Description  Flushes and closes the session. With purge=true the conversation and its messages are deleted as well.
// @Tags         Conversations
// @Produce      json
// @Param        conversationID  path   string  true   "Conversation ID"
// @Param        purge           query  bool    false  "Delete the conversation after closing"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID} [delete]
func (h *ConversationHandler) CloseConversation(w http.ResponseWriter, r *http.Request) {
	var err error
	if r.URL.Query().Get("purge") == "true" {
		err = h.service.DeleteConversation(r.Context(), conversationID(r))
	} else {
		err = h.service.CloseConversation(r.Context(), conversationID(r))
	}
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "closed"})
}

// ListMessages godoc
// @Summary      List messages
// @Description  Returns the messages of a conversation in order, reopening the session from the store if needed.
// @Tags         Messages
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Success      200  {array}   object
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages [get]
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListMessages(r.Context(), conversationID(r))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, messages)
}

// AddUserMessage godoc
// @Summary      Add a user message
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string                 true  "Conversation ID"
// @Param        request         body  AddUserMessageRequest  true  "Message content"
// @Success      201  {object}  object
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/user [post]
func (h *ConversationHandler) AddUserMessage(w http.ResponseWriter, r *http.Request) {
	var req AddUserMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, err)
		return
	}
	m, err := h.service.AddUserMessage(r.Context(), conversationID(r), req.Content, req.ContextSelections)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}

// AddBotMessage godoc
// @Summary      Add a bot message
// @Description  Appends an empty bot message; its steps arrive later.
// @Tags         Messages
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Success      201  {object}  object
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/bot [post]
func (h *ConversationHandler) AddBotMessage(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.AddBotMessage(r.Context(), conversationID(r))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}

// UpdateUserMessage godoc
// @Summary      Edit a user message
// @Description  Edits a user message. Every later message is removed from the conversation.
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string                    true  "Conversation ID"
// @Param        messageID       path  string                    true  "Message ID"
// @Param        request         body  UpdateUserMessageRequest  true  "Fields to change"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID} [patch]
func (h *ConversationHandler) UpdateUserMessage(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.service.UpdateUserMessage(r.Context(), conversationID(r), messageID(r), req.toUpdate()); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// PreviousUserMessage godoc
// @Summary      Previous user message
// @Description  Returns the closest user message before the given message.
// @Tags         Messages
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Param        messageID       path  string  true  "Message ID"
// @Success      200  {object}  object
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID}/previous-user [get]
func (h *ConversationHandler) PreviousUserMessage(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.PreviousUserMessage(r.Context(), conversationID(r), messageID(r))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, m)
}

// AddBotStep godoc
// @Summary      Add a bot step
// @Description  Appends a step document, tagged by its "type" field, to a bot message.
// @Tags         Steps
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Param        messageID       path  string  true  "Bot message ID"
// @Param        step            body  object  true  "Step document"
// @Success      201  {object}  object
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID}/steps [post]
func (h *ConversationHandler) AddBotStep(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStepBody))
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: reading step: %s", app_errors.ErrValidation, err.Error()))
		return
	}
	step, err := model.DecodeStep(body)
	if err != nil {
		respondWithError(w, fmt.Errorf("%w: %s", app_errors.ErrValidation, err.Error()))
		return
	}
	added, err := h.service.AddBotStep(r.Context(), conversationID(r), messageID(r), step)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, added)
}

// UpdateBotStep godoc
// @Summary      Update a bot step
// @Tags         Steps
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string             true  "Conversation ID"
// @Param        messageID       path  string             true  "Bot message ID"
// @Param        stepID          path  string             true  "Step ID"
// @Param        request         body  UpdateStepRequest  true  "Partial step update"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID}/steps/{stepID} [patch]
func (h *ConversationHandler) UpdateBotStep(w http.ResponseWriter, r *http.Request) {
	var req UpdateStepRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.service.UpdateBotStep(r.Context(), conversationID(r), messageID(r), stepID(r), req.toUpdate()); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// CompleteBotMessageStep godoc
// @Summary      Complete a message step
// @Description  Parses the streamed text of a message step, marks it completed and derives its workflow steps.
// @Tags         Steps
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Param        messageID       path  string  true  "Bot message ID"
// @Param        stepID          path  string  true  "Step ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID}/steps/{stepID}/complete [post]
func (h *ConversationHandler) CompleteBotMessageStep(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CompleteBotMessageStep(r.Context(), conversationID(r), messageID(r), stepID(r)); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "completed"})
}

// UpdateBotAction godoc
// @Summary      Resolve an action
// @Tags         Steps
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string               true  "Conversation ID"
// @Param        messageID       path  string               true  "Bot message ID"
// @Param        stepID          path  string               true  "Step ID"
// @Param        actionID        path  string               true  "Action ID"
// @Param        request         body  UpdateActionRequest  true  "Status and output"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID}/steps/{stepID}/actions/{actionID} [patch]
func (h *ConversationHandler) UpdateBotAction(w http.ResponseWriter, r *http.Request) {
	var req UpdateActionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, err)
		return
	}
	actionID := chi.URLParam(r, "actionID")
	if err := h.service.UpdateBotAction(r.Context(), conversationID(r), messageID(r), stepID(r), actionID, req.toUpdate()); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// ConsumeEvents godoc
// @Summary      Stream assistant events
// @Description  Applies a newline-delimited JSON stream of assistant events to a bot message. The request returns once the run ends.
// @Tags         Steps
// @Accept       application/x-ndjson
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Param        messageID       path  string  true  "Bot message ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages/{messageID}/events [post]
func (h *ConversationHandler) ConsumeEvents(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ConsumeEvents(r.Context(), conversationID(r), messageID(r), r.Body); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "consumed"})
}

// DeleteMessages godoc
// @Summary      Delete messages
// @Description  Deletes the listed messages; an empty body clears the conversation.
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        conversationID  path  string                 true   "Conversation ID"
// @Param        request         body  DeleteMessagesRequest  false  "Message IDs"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/messages [delete]
func (h *ConversationHandler) DeleteMessages(w http.ResponseWriter, r *http.Request) {
	var req DeleteMessagesRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.service.DeleteMessages(r.Context(), conversationID(r), req.IDs); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// Flush godoc
// @Summary      Flush a conversation
// @Description  Writes pending changes to the store now instead of after the debounce delay.
// @Tags         Conversations
// @Produce      json
// @Param        conversationID  path  string  true  "Conversation ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/conversations/{conversationID}/flush [post]
func (h *ConversationHandler) Flush(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Flush(r.Context(), conversationID(r)); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "flushed"})
}
