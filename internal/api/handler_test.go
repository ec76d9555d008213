package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aria-chat/backend/internal/api"
	app_errors "aria-chat/backend/internal/errors"
	"aria-chat/backend/internal/interfaces/mocks"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/reducer"
	"aria-chat/backend/internal/service"
	"aria-chat/backend/internal/session"
)

const convID = "conv-1"

var ts = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) (http.Handler, *mocks.MockSessionService) {
	svc := mocks.NewMockSessionService(t)
	return api.NewRouter(api.NewConversationHandler(svc)), svc
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// addChiURLParams injects URL parameters the way the chi router does, for
// calling a handler method directly.
func addChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for key, value := range params {
		chiCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

func TestSwaggerDoc(t *testing.T) {
	router, _ := setupRouter(t)

	rr := serve(router, http.MethodGet, "/api/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "Aria chat-session API", doc.Info.Title)
	assert.Contains(t, doc.Paths, "/api/v1/conversations/{conversationID}/messages/{messageID}/events")
	assert.Contains(t, doc.Paths["/api/v1/conversations/{conversationID}"], "put")
}

func TestHealth(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("Health", mock.Anything).Return(nil).Once()

		rr := serve(router, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("Failure - store unavailable", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("Health", mock.Anything).Return(errors.New("ping timeout")).Once()

		rr := serve(router, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestConversationHandler_OpenConversation(t *testing.T) {
	path := "/api/v1/conversations/" + convID

	t.Run("Success", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("OpenConversation", mock.Anything, convID, mock.MatchedBy(func(req *service.OpenConversationRequest) bool {
			return req.Title == "Papers"
		})).Return(&model.Conversation{ID: convID, Title: "Papers"}, nil).Once()

		rr := serve(router, http.MethodPut, path, `{"title": "Papers"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var conv model.Conversation
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &conv))
		assert.Equal(t, "Papers", conv.Title)
	})

	t.Run("Success - empty body", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("OpenConversation", mock.Anything, convID, mock.Anything).Return(&model.Conversation{ID: convID}, nil).Once()

		rr := serve(router, http.MethodPut, path, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Bad JSON", func(t *testing.T) {
		router, _ := setupRouter(t)
		rr := serve(router, http.MethodPut, path, `{"title":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestConversationHandler_CreateConversation(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("OpenConversation", mock.Anything, "", mock.MatchedBy(func(req *service.OpenConversationRequest) bool {
			return req.Title == "New"
		})).Return(&model.Conversation{ID: "generated", Title: "New"}, nil).Once()

		rr := serve(router, http.MethodPost, "/api/v1/conversations", `{"title": "New"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"generated"`)
	})

	t.Run("Failure - validation", func(t *testing.T) {
		router, _ := setupRouter(t)
		rr := serve(router, http.MethodPost, "/api/v1/conversations", `{"title": "`+strings.Repeat("x", 201)+`"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestConversationHandler_CloseConversation(t *testing.T) {
	path := "/api/v1/conversations/" + convID

	t.Run("Success - close", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("CloseConversation", mock.Anything, convID).Return(nil).Once()

		rr := serve(router, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Success - purge", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("DeleteConversation", mock.Anything, convID).Return(nil).Once()

		rr := serve(router, http.MethodDelete, path+"?purge=true", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - already closed", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("CloseConversation", mock.Anything, convID).Return(session.ErrClosed).Once()

		rr := serve(router, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestConversationHandler_Messages(t *testing.T) {
	base := "/api/v1/conversations/" + convID + "/messages"

	t.Run("ListMessages", func(t *testing.T) {
		router, svc := setupRouter(t)
		user := &model.UserMessage{MessageMeta: model.MessageMeta{ID: "message_1", ConversationID: convID, Timestamp: ts}, Content: "hi"}
		svc.On("ListMessages", mock.Anything, convID).Return([]model.Message{user}, nil).Once()

		rr := serve(router, http.MethodGet, base, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var messages model.Messages
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &messages))
		require.Len(t, messages, 1)
		assert.Equal(t, "hi", messages[0].(*model.UserMessage).Content)
	})

	t.Run("ListMessages - Not Found", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("ListMessages", mock.Anything, convID).Return(nil, app_errors.ErrNotFound).Once()

		rr := serve(router, http.MethodGet, base, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ListMessages - store unavailable", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("ListMessages", mock.Anything, convID).Return(nil, app_errors.ErrUnavailable).Once()

		rr := serve(router, http.MethodGet, base, "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("AddUserMessage", func(t *testing.T) {
		router, svc := setupRouter(t)
		selections := []model.ContextSelection{{Kind: "item", Key: "ABCD2345"}}
		svc.On("AddUserMessage", mock.Anything, convID, "what is new?", selections).
			Return(&model.UserMessage{MessageMeta: model.MessageMeta{ID: "message_1"}, Content: "what is new?"}, nil).Once()

		rr := serve(router, http.MethodPost, base+"/user",
			`{"content": "what is new?", "contextSelections": [{"kind": "item", "key": "ABCD2345"}]}`)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"type":"USER_MESSAGE"`)
	})

	t.Run("AddUserMessage - Validation Error", func(t *testing.T) {
		router, _ := setupRouter(t)
		rr := serve(router, http.MethodPost, base+"/user", `{"content": ""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'content' failed on the 'required' tag")
	})

	t.Run("AddBotMessage", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("AddBotMessage", mock.Anything, convID).
			Return(&model.BotMessage{MessageMeta: model.MessageMeta{ID: "message_2"}}, nil).Once()

		rr := serve(router, http.MethodPost, base+"/bot", "")
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"steps":[]`)
	})

	t.Run("UpdateUserMessage", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("UpdateUserMessage", mock.Anything, convID, "message_1", mock.MatchedBy(func(u reducer.UserMessageUpdate) bool {
			return u.Content != nil && *u.Content == "edited" && u.ContextSelections == nil
		})).Return(nil).Once()

		rr := serve(router, http.MethodPatch, base+"/message_1", `{"content": "edited"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("PreviousUserMessage - Not Found", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("PreviousUserMessage", mock.Anything, convID, "message_1").Return(nil, app_errors.ErrNotFound).Once()

		rr := serve(router, http.MethodGet, base+"/message_1/previous-user", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("DeleteMessages", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("DeleteMessages", mock.Anything, convID, []string{"message_1", "message_2"}).Return(nil).Once()

		rr := serve(router, http.MethodDelete, base, `{"ids": ["message_1", "message_2"]}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("DeleteMessages - empty body clears", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("DeleteMessages", mock.Anything, convID, []string(nil)).Return(nil).Once()

		rr := serve(router, http.MethodDelete, base, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Flush - internal error is hidden", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("Flush", mock.Anything, convID).Return(errors.New("disk I/O error")).Once()

		rr := serve(router, http.MethodPost, "/api/v1/conversations/"+convID+"/flush", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "disk")
	})
}

func TestConversationHandler_Steps(t *testing.T) {
	base := "/api/v1/conversations/" + convID + "/messages/message_2/steps"

	t.Run("AddBotStep", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("AddBotStep", mock.Anything, convID, "message_2", mock.MatchedBy(func(s model.Step) bool {
			tool, ok := s.(*model.ToolStep)
			return ok && tool.Tool.Name == "search"
		})).Return(&model.ToolStep{
			StepBase: model.StepBase{ID: "step_1", MessageID: "message_2", Timestamp: ts, Status: model.StatusInProgress},
			Tool:     model.ToolCall{Name: "search"},
		}, nil).Once()

		rr := serve(router, http.MethodPost, base, `{"type": "TOOL_STEP", "tool": {"name": "search"}}`)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"step_1"`)
	})

	t.Run("AddBotStep - unknown type", func(t *testing.T) {
		router, _ := setupRouter(t)
		rr := serve(router, http.MethodPost, base, `{"type": "DANCE_STEP"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("UpdateBotStep", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("UpdateBotStep", mock.Anything, convID, "message_2", "step_1", mock.MatchedBy(func(u reducer.StepUpdate) bool {
			return u.Status != nil && *u.Status == model.StatusCompleted && u.Params["found"] == float64(3)
		})).Return(nil).Once()

		rr := serve(router, http.MethodPatch, base+"/step_1", `{"status": "COMPLETED", "params": {"found": 3}}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("UpdateBotStep - invalid status", func(t *testing.T) {
		router, _ := setupRouter(t)
		rr := serve(router, http.MethodPatch, base+"/step_1", `{"status": "DONE"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "'oneof'")
	})

	t.Run("CompleteBotMessageStep", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("CompleteBotMessageStep", mock.Anything, convID, "message_2", "step_1").Return(nil).Once()

		rr := serve(router, http.MethodPost, base+"/step_1/complete", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("UpdateBotAction", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("UpdateBotAction", mock.Anything, convID, "message_2", "step_1", "action_1", mock.MatchedBy(func(u model.ActionUpdate) bool {
			return u.Status != nil && *u.Status == model.StatusCompleted && string(u.Output) == `{"answer":42}`
		})).Return(nil).Once()

		rr := serve(router, http.MethodPatch, base+"/step_1/actions/action_1", `{"status": "COMPLETED", "output": {"answer":42}}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestConversationHandler_ConsumeEvents(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := mocks.NewMockSessionService(t)
		handler := api.NewConversationHandler(svc)
		svc.On("ConsumeEvents", mock.Anything, convID, "message_2", mock.Anything).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"type": "end"}`))
		req = addChiURLParams(req, map[string]string{"conversationID": convID, "messageID": "message_2"})
		rr := httptest.NewRecorder()
		handler.ConsumeEvents(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - validation", func(t *testing.T) {
		router, svc := setupRouter(t)
		svc.On("ConsumeEvents", mock.Anything, convID, "message_2", mock.Anything).
			Return(app_errors.ErrValidation).Once()

		rr := serve(router, http.MethodPost, "/api/v1/conversations/"+convID+"/messages/message_2/events", `{"type": "end"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
