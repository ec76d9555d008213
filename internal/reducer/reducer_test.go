package reducer_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/reducer"
)

var ts = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func userMessage(id, content string) *model.UserMessage {
	return &model.UserMessage{
		MessageMeta: model.MessageMeta{ID: id, ConversationID: "conv", Timestamp: ts},
		Content:     content,
	}
}

func botMessage(id string, steps ...model.Step) *model.BotMessage {
	return &model.BotMessage{
		MessageMeta: model.MessageMeta{ID: id, ConversationID: "conv", Timestamp: ts},
		Steps:       steps,
	}
}

func messageStep(id, messageID, raw string) *model.MessageStep {
	return &model.MessageStep{
		StepBase: model.StepBase{ID: id, MessageID: messageID, Timestamp: ts, Status: model.StatusInProgress},
		Messages: model.SubMessages{&model.TextContent{Text: model.TextBody{Raw: &model.RawText{Value: raw}}}},
	}
}

func newState() reducer.State {
	return reducer.NewState(model.Conversation{ID: "conv"})
}

func reduceAll(s reducer.State, actions ...reducer.Action) reducer.State {
	for _, a := range actions {
		s = reducer.Reduce(s, a)
	}
	return s
}

type unknownAction struct{}

func (unknownAction) Kind() reducer.Kind { return "SOMETHING_ELSE" }

func TestReduce_AddMessages(t *testing.T) {
	s := reduceAll(newState(),
		reducer.AddUserMessage{Message: userMessage("message_u", "hi")},
		reducer.AddBotMessage{Message: &model.BotMessage{MessageMeta: model.MessageMeta{ID: "message_b"}}},
	)

	require.Len(t, s.Messages, 2)
	bot := s.Messages[1].(*model.BotMessage)
	assert.NotNil(t, bot.Steps)
	assert.Empty(t, bot.Steps)
	assert.Equal(t, []string{"message_u", "message_b"}, s.PendingUpdate)
	assert.Empty(t, s.PendingDelete)
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	before := reduceAll(newState(), reducer.AddBotMessage{Message: botMessage("m1", messageStep("s1", "m1", `{"message":"a"`))})
	snapshot := before.Messages[0]

	after := reducer.Reduce(before, reducer.UpdateBotStep{
		MessageID: "m1",
		StepID:    "s1",
		Update:    reducer.StepUpdate{Messages: model.SubMessages{&model.TextContent{Text: model.TextBody{Raw: &model.RawText{Value: `{"message":"ab"`}}}}},
	})

	assert.Same(t, snapshot, before.Messages[0])
	original := before.Messages[0].(*model.BotMessage).Steps[0].(*model.MessageStep)
	assert.Equal(t, `{"message":"a"`, original.Messages[0].(*model.TextContent).Text.Raw.Value)
	updated := after.Messages[0].(*model.BotMessage).Steps[0].(*model.MessageStep)
	assert.Equal(t, `{"message":"ab"`, updated.Messages[0].(*model.TextContent).Text.Raw.Value)
}

func TestReduce_PendingUpdateIsASet(t *testing.T) {
	step := &model.ToolStep{StepBase: model.StepBase{ID: "tool", Status: model.StatusInProgress}}
	s := reduceAll(newState(),
		reducer.AddBotMessage{Message: botMessage("m1")},
		reducer.AddBotStep{MessageID: "m1", Step: step},
		reducer.AddBotStep{MessageID: "m1", Step: step},
	)

	assert.Equal(t, []string{"m1"}, s.PendingUpdate)
	bot := s.Messages[0].(*model.BotMessage)
	require.Len(t, bot.Steps, 1, "a step id is only added once")
	assert.Equal(t, "m1", bot.Steps[0].Base().MessageID)
}

func TestReduce_UpdateUserMessageRewinds(t *testing.T) {
	s := reduceAll(newState(),
		reducer.AddUserMessage{Message: userMessage("u1", "first")},
		reducer.AddBotMessage{Message: botMessage("b1")},
		reducer.AddUserMessage{Message: userMessage("u2", "second")},
		reducer.AddBotMessage{Message: botMessage("b2")},
		reducer.ClearPending{},
	)

	content := "second, edited"
	next, ok := reducer.Apply(s, reducer.UpdateUserMessage{ID: "u2", Update: reducer.UserMessageUpdate{Content: &content}})
	require.True(t, ok)

	require.Len(t, next.Messages, 3)
	assert.Equal(t, "second, edited", next.Messages[2].(*model.UserMessage).Content)
	assert.Equal(t, []string{"u2"}, next.PendingUpdate)
	assert.Equal(t, []string{"b2"}, next.PendingDelete)

	t.Run("editing an earlier message drops everything after it", func(t *testing.T) {
		edited := reducer.Reduce(s, reducer.UpdateUserMessage{ID: "u1", Update: reducer.UserMessageUpdate{Content: &content}})
		require.Len(t, edited.Messages, 1)
		assert.Equal(t, []string{"b1", "u2", "b2"}, edited.PendingDelete)
	})

	t.Run("unknown or non-user target is ignored", func(t *testing.T) {
		_, ok := reducer.Apply(s, reducer.UpdateUserMessage{ID: "b1", Update: reducer.UserMessageUpdate{Content: &content}})
		assert.False(t, ok)
		same, ok := reducer.Apply(s, reducer.UpdateUserMessage{ID: "missing"})
		assert.False(t, ok)
		assert.Equal(t, s, same)
	})
}

func TestReduce_UpdateBotStep(t *testing.T) {
	completed := model.StatusCompleted
	inProgress := model.StatusInProgress
	workflow := &model.WorkflowStep{
		StepBase: model.StepBase{ID: "wf", MessageID: "m1", Status: model.StatusInProgress},
		Workflow: model.Workflow{Type: model.WorkflowSearch},
		Params:   model.Params{"searchResultsCount": 2},
	}
	tool := &model.ToolStep{StepBase: model.StepBase{ID: "tool", MessageID: "m1", Status: model.StatusInProgress}}
	s := reduceAll(newState(), reducer.AddBotMessage{Message: botMessage("m1", workflow, tool)})

	s = reduceAll(s,
		reducer.UpdateBotStep{MessageID: "m1", StepID: "wf", Update: reducer.StepUpdate{Params: model.Params{"selectedIds": []int{1}}}},
		reducer.UpdateBotStep{MessageID: "m1", StepID: "tool", Update: reducer.StepUpdate{
			Status: &completed,
			Tool:   &model.ToolCall{Name: "search", Result: "3 hits"},
		}},
		reducer.UpdateBotStep{MessageID: "m1", StepID: "tool", Update: reducer.StepUpdate{Status: &inProgress}},
	)

	bot := s.Messages[0].(*model.BotMessage)
	gotWorkflow := bot.Steps[0].(*model.WorkflowStep)
	assert.Equal(t, model.Params{"searchResultsCount": 2, "selectedIds": []int{1}}, gotWorkflow.Params)
	assert.Equal(t, model.Params{"searchResultsCount": 2}, workflow.Params, "the dispatched step is not modified")

	gotTool := bot.Steps[1].(*model.ToolStep)
	assert.Equal(t, model.StatusCompleted, gotTool.Status, "status never goes back")
	assert.Equal(t, "3 hits", gotTool.Tool.Result)

	_, ok := reducer.Apply(s, reducer.UpdateBotStep{MessageID: "m1", StepID: "nope"})
	assert.False(t, ok)
}

func TestReduce_CompleteBotMessageStep(t *testing.T) {
	raw := `{"message":"ok","context":{},"workflows":[{"type":"search","input":{"q":"go"}}]`
	later := ts.Add(time.Minute)
	s := reduceAll(newState(),
		reducer.AddBotMessage{Message: botMessage("m1", messageStep("s1", "m1", raw))},
		reducer.CompleteBotMessageStep{MessageID: "m1", StepID: "s1", Timestamp: later},
	)

	bot := s.Messages[0].(*model.BotMessage)
	require.Len(t, bot.Steps, 2)

	step := bot.Steps[0].(*model.MessageStep)
	assert.Equal(t, model.StatusCompleted, step.Status)
	text := step.Messages[0].(*model.TextContent)
	assert.Nil(t, text.Text.Raw)
	assert.Equal(t, "ok", text.Text.Message)

	derived := bot.Steps[1].(*model.WorkflowStep)
	assert.Equal(t, model.StatusInProgress, derived.Status)
	assert.Equal(t, reducer.WorkflowStepID("s1", 0), derived.ID)
	assert.Equal(t, model.WorkflowSearch, derived.Workflow.Type)
	assert.JSONEq(t, `{"q":"go"}`, string(derived.Workflow.Input))
	assert.Equal(t, model.StepRef{MessageID: "m1", StepID: "s1"}, derived.Origin)
	assert.Equal(t, later, derived.Timestamp)

	t.Run("completing twice derives nothing new", func(t *testing.T) {
		again := reducer.Reduce(s, reducer.CompleteBotMessageStep{MessageID: "m1", StepID: "s1", Timestamp: later})
		assert.Len(t, again.Messages[0].(*model.BotMessage).Steps, 2)
	})

	t.Run("only message steps can be completed", func(t *testing.T) {
		_, ok := reducer.Apply(s, reducer.CompleteBotMessageStep{MessageID: "m1", StepID: derived.ID})
		assert.False(t, ok)
	})
}

func TestReduce_BotActions(t *testing.T) {
	completed := model.StatusCompleted
	s := reduceAll(newState(),
		reducer.AddBotMessage{Message: botMessage("m1", messageStep("s1", "m1", `{"message":"ok"}`))},
		reducer.CompleteBotMessageStep{MessageID: "m1", StepID: "s1"},
		reducer.AddBotActions{MessageID: "m1", StepID: "s1", Actions: []model.Action{
			{ID: "a1", Status: model.StatusInProgress, Payload: model.QAAction{Question: "why"}},
			{ID: "a2", Status: model.StatusInProgress, Payload: model.FileAction{ItemIDs: []int64{7}}},
		}},
		reducer.UpdateBotAction{MessageID: "m1", StepID: "s1", ActionID: "a2", Update: model.ActionUpdate{
			Status: &completed,
			Output: json.RawMessage(`{"done":true}`),
		}},
	)

	text := s.Messages[0].(*model.BotMessage).Steps[0].(*model.MessageStep).Messages[0].(*model.TextContent)
	require.Len(t, text.Text.Actions, 2)
	assert.Equal(t, model.StatusInProgress, text.Text.Actions[0].Status)
	assert.Empty(t, text.Text.Actions[0].Output)
	assert.Equal(t, model.StatusCompleted, text.Text.Actions[1].Status)
	assert.JSONEq(t, `{"done":true}`, string(text.Text.Actions[1].Output))

	_, ok := reducer.Apply(s, reducer.UpdateBotAction{MessageID: "m1", StepID: "s1", ActionID: "a9"})
	assert.False(t, ok)
}

func TestReduce_LoadMessagesKeepsPending(t *testing.T) {
	s := reduceAll(newState(), reducer.AddUserMessage{Message: userMessage("u1", "hi")})

	loaded := reducer.Reduce(s, reducer.LoadMessages{Messages: []model.Message{
		userMessage("u0", "old"),
		&model.BotMessage{MessageMeta: model.MessageMeta{ID: "b0"}},
	}})

	require.Len(t, loaded.Messages, 2)
	assert.NotNil(t, loaded.Messages[1].(*model.BotMessage).Steps)
	assert.Equal(t, []string{"u1"}, loaded.PendingUpdate)
}

func TestReduce_ClearMessages(t *testing.T) {
	s := reduceAll(newState(),
		reducer.AddUserMessage{Message: userMessage("u1", "hi")},
		reducer.AddBotMessage{Message: botMessage("b1")},
		reducer.AddUserMessage{Message: userMessage("u2", "again")},
		reducer.ClearPending{},
		reducer.ClearMessages{},
	)

	assert.Empty(t, s.Messages)
	assert.NotNil(t, s.Messages)
	assert.ElementsMatch(t, []string{"u1", "b1", "u2"}, s.PendingDelete)
}

func TestReduce_DeleteMessages(t *testing.T) {
	s := reduceAll(newState(),
		reducer.AddUserMessage{Message: userMessage("u1", "hi")},
		reducer.AddBotMessage{Message: botMessage("b1")},
	)

	next, ok := reducer.Apply(s, reducer.DeleteMessages{IDs: []string{"b1", "ghost"}})
	require.True(t, ok)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, []string{"b1"}, next.PendingDelete)
	assert.Equal(t, []string{"u1"}, next.EffectiveUpdate())

	_, ok = reducer.Apply(s, reducer.DeleteMessages{IDs: []string{"ghost"}})
	assert.False(t, ok)
}

func TestReduce_ClearPending(t *testing.T) {
	s := reduceAll(newState(),
		reducer.AddUserMessage{Message: userMessage("u1", "hi")},
		reducer.ClearMessages{},
	)
	require.True(t, s.HasPending())

	s = reducer.Reduce(s, reducer.ClearPending{})
	assert.False(t, s.HasPending())
	assert.Empty(t, s.PendingUpdate)
	assert.Empty(t, s.PendingDelete)
}

func TestReduce_UnknownActionIsNoOp(t *testing.T) {
	s := reduceAll(newState(), reducer.AddUserMessage{Message: userMessage("u1", "hi")})

	next, ok := reducer.Apply(s, unknownAction{})
	assert.False(t, ok)
	assert.Equal(t, s, next)
}

func TestState_EffectiveUpdateDeleteWins(t *testing.T) {
	s := reducer.State{PendingUpdate: []string{"a", "b"}, PendingDelete: []string{"b"}}
	assert.Equal(t, []string{"a"}, s.EffectiveUpdate())
}
