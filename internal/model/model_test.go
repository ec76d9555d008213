package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria-chat/backend/internal/model"
)

var ts = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleBotMessage() *model.BotMessage {
	base := func(id string, status model.Status) model.StepBase {
		return model.StepBase{ID: id, MessageID: "message_1", Timestamp: ts, Status: status}
	}
	return &model.BotMessage{
		MessageMeta: model.MessageMeta{ID: "message_1", ConversationID: "conv", Timestamp: ts},
		Steps: model.Steps{
			&model.MessageStep{
				StepBase: base("step_msg", model.StatusCompleted),
				Messages: model.SubMessages{
					&model.TextContent{Text: model.TextBody{
						Message:   "Here is what I found",
						Context:   json.RawMessage(`{}`),
						Workflows: []model.Workflow{{Type: model.WorkflowSearch, Input: json.RawMessage(`{"q":"go"}`)}},
						Actions: []model.Action{{
							ID:      "action_1",
							Status:  model.StatusInProgress,
							Payload: model.QAAction{Question: "why?"},
						}},
					}},
					&model.ImageContent{Image: "file_1"},
				},
			},
			&model.ToolStep{StepBase: base("step_tool", model.StatusCompleted), Tool: model.ToolCall{Name: "search", Parameters: json.RawMessage(`{"q":"x"}`)}},
			&model.WorkflowStep{
				StepBase: base("step_wf", model.StatusInProgress),
				Workflow: model.Workflow{Type: model.WorkflowQA},
				Origin:   model.StepRef{MessageID: "message_1", StepID: "step_msg"},
				Params:   model.Params{"searchResultsCount": float64(3)},
			},
			&model.ActionStep{
				StepBase: base("step_action", model.StatusInProgress),
				Action:   model.Action{Payload: model.SearchAction{Mode: "qa"}},
				Workflow: model.StepRef{MessageID: "message_1", StepID: "step_wf"},
			},
			&model.ErrorStep{StepBase: base("step_err", model.StatusCompleted), Error: model.StepError{Message: "run failed"}},
		},
	}
}

func TestEncodeDecodeMessage_BotMessage(t *testing.T) {
	original := sampleBotMessage()

	data, err := model.EncodeMessage(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"BOT_MESSAGE"`)
	assert.Contains(t, string(data), `"type":"WORKFLOW_STEP"`)
	assert.NotContains(t, string(data), "Stream")

	decoded, err := model.DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeDecodeMessage_UserMessage(t *testing.T) {
	original := &model.UserMessage{
		MessageMeta:       model.MessageMeta{ID: "message_u", ConversationID: "conv", Timestamp: ts},
		Content:           "hi",
		ContextSelections: []model.ContextSelection{{Kind: "item", Key: "ABCD"}},
	}
	data, err := model.EncodeMessage(original)
	require.NoError(t, err)

	decoded, err := model.DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeMessage_Errors(t *testing.T) {
	_, err := model.DecodeMessage([]byte(`{"type":"SYSTEM_MESSAGE","id":"x"}`))
	assert.ErrorIs(t, err, model.ErrUnknownType)

	_, err = model.DecodeMessage([]byte(`{"type":"BOT_MESSAGE","steps":[{"type":"MYSTERY_STEP"}]}`))
	assert.ErrorIs(t, err, model.ErrUnknownType)

	_, err = model.DecodeMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeMessage_BotMessageWithoutSteps(t *testing.T) {
	decoded, err := model.DecodeMessage([]byte(`{"type":"BOT_MESSAGE","id":"m"}`))
	require.NoError(t, err)
	bot := decoded.(*model.BotMessage)
	assert.NotNil(t, bot.Steps)
	assert.Empty(t, bot.Steps)
}

func TestBotMessage_Settled(t *testing.T) {
	bot := &model.BotMessage{}
	assert.False(t, bot.Settled(), "a bot message without steps is not settled")

	bot = sampleBotMessage()
	assert.False(t, bot.Settled())

	for _, step := range bot.Steps {
		step.Base().Status = model.StatusCompleted
	}
	assert.True(t, bot.Settled())
}

func TestBotMessage_CloneDoesNotAlias(t *testing.T) {
	original := sampleBotMessage()
	clone := original.Clone().(*model.BotMessage)
	clone.Steps = append(clone.Steps, &model.ErrorStep{})
	clone.Steps[0] = &model.ErrorStep{}

	assert.Len(t, original.Steps, 5)
	assert.Equal(t, model.StepTypeMessage, original.Steps[0].Type())
}

func TestStatus_Advance(t *testing.T) {
	assert.Equal(t, model.StatusCompleted, model.StatusInProgress.Advance(model.StatusCompleted))
	assert.Equal(t, model.StatusCompleted, model.StatusCompleted.Advance(model.StatusInProgress))
	assert.Equal(t, model.StatusInProgress, model.StatusInProgress.Advance(""))
}

func TestParams_Merge(t *testing.T) {
	params := model.Params{"a": "1", "b": "2"}
	merged := params.Merge(model.Params{"b": "3", "c": "4"})

	assert.Equal(t, model.Params{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, model.Params{"a": "1", "b": "2"}, params)
}

func TestActionUpdate_Apply(t *testing.T) {
	completed := model.StatusCompleted
	inProgress := model.StatusInProgress
	action := model.Action{ID: "a", Status: model.StatusInProgress, Payload: model.QAAction{Question: "q"}}

	updated := model.ActionUpdate{Status: &completed, Output: json.RawMessage(`"answer"`)}.Apply(action)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.JSONEq(t, `"answer"`, string(updated.Output))
	assert.Equal(t, model.QAAction{Question: "q"}, updated.Payload)

	reverted := model.ActionUpdate{Status: &inProgress}.Apply(updated)
	assert.Equal(t, model.StatusCompleted, reverted.Status)
}

func TestParseTextBody(t *testing.T) {
	t.Run("complete reply", func(t *testing.T) {
		body, ok := model.ParseTextBody(`{"message":"ok","context":{"query":null},"workflows":[{"type":"search","input":{"q":"x"}},{"type":"bogus"}]}`)
		require.True(t, ok)
		assert.Equal(t, "ok", body.Message)
		assert.JSONEq(t, `{"query":null}`, string(body.Context))
		require.Len(t, body.Workflows, 1)
		assert.Equal(t, model.WorkflowSearch, body.Workflows[0].Type)
	})

	t.Run("truncated reply", func(t *testing.T) {
		body, ok := model.ParseTextBody(`{"message":"Hello","context":{}`)
		require.True(t, ok)
		assert.Equal(t, "Hello", body.Message)
		assert.JSONEq(t, `{}`, string(body.Context))
		assert.Empty(t, body.Workflows)
	})

	t.Run("missing context defaults to empty object", func(t *testing.T) {
		body, ok := model.ParseTextBody(`{"message":"Hel`)
		require.True(t, ok)
		assert.JSONEq(t, `{}`, string(body.Context))
	})

	t.Run("nothing recoverable", func(t *testing.T) {
		_, ok := model.ParseTextBody(``)
		assert.False(t, ok)
	})
}
