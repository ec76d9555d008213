package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	app_errors "aria-chat/backend/internal/errors"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/reducer"
	"aria-chat/backend/internal/session"
)

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse defines a generic success response for operations that
// don't return a resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// AddUserMessageRequest is the DTO for appending a user message.
type AddUserMessageRequest struct {
	Content           string                   `json:"content" validate:"required,max=32000"`
	ContextSelections []model.ContextSelection `json:"contextSelections" validate:"omitempty,dive"`
}

// UpdateUserMessageRequest is the DTO for editing a user message. Omitted
// fields are left unchanged.
type UpdateUserMessageRequest struct {
	Content           *string                  `json:"content" validate:"omitempty,min=1,max=32000"`
	ContextSelections []model.ContextSelection `json:"contextSelections"`
}

func (r UpdateUserMessageRequest) toUpdate() reducer.UserMessageUpdate {
	return reducer.UserMessageUpdate{Content: r.Content, ContextSelections: r.ContextSelections}
}

// UpdateStepRequest is the DTO for a partial step update. Fields that do
// not apply to the step's type are ignored.
type UpdateStepRequest struct {
	Status   *model.Status     `json:"status" validate:"omitempty,oneof=IN_PROGRESS COMPLETED"`
	Messages model.SubMessages `json:"messages"`
	Tool     *model.ToolCall   `json:"tool"`
	Error    *model.StepError  `json:"error"`
	Action   *model.Action     `json:"action"`
	Workflow *model.Workflow   `json:"workflow"`
	Params   model.Params      `json:"params"`
}

func (r UpdateStepRequest) toUpdate() reducer.StepUpdate {
	return reducer.StepUpdate{
		Status:   r.Status,
		Messages: r.Messages,
		Tool:     r.Tool,
		Error:    r.Error,
		Action:   r.Action,
		Workflow: r.Workflow,
		Params:   r.Params,
	}
}

// UpdateActionRequest is the DTO for resolving an action.
type UpdateActionRequest struct {
	Status *model.Status   `json:"status" validate:"omitempty,oneof=IN_PROGRESS COMPLETED"`
	Output json.RawMessage `json:"output"`
}

func (r UpdateActionRequest) toUpdate() model.ActionUpdate {
	return model.ActionUpdate{Status: r.Status, Output: r.Output}
}

// DeleteMessagesRequest is the DTO for deleting messages. An empty list
// clears the conversation.
type DeleteMessagesRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,required"`
}

// respondWithError maps business-layer errors to HTTP status codes and
// writes a standard JSON error response.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, app_errors.ErrConflict), errors.Is(err, session.ErrClosed):
		statusCode = http.StatusConflict
		message = "A conflict occurred with the current state of the resource."
	case errors.Is(err, app_errors.ErrUnavailable):
		statusCode = http.StatusServiceUnavailable
		message = "The conversation store is unavailable."
	default:
		// Unhandled errors are not shown to the client.
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// decodeJSON decodes the request body into v and validates it. An empty
// body is accepted when optional is true.
func decodeJSON(r *http.Request, v any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return validateRequest(v)
		}
		return fmt.Errorf("%w: invalid request payload: %s", app_errors.ErrValidation, err.Error())
	}
	return validateRequest(v)
}
