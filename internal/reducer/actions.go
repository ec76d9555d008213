package reducer

import (
	"time"

	"aria-chat/backend/internal/model"
)

// Kind names a mutation.
type Kind string

const (
	KindAddUserMessage         Kind = "ADD_USER_MESSAGE"
	KindAddBotMessage          Kind = "ADD_BOT_MESSAGE"
	KindUpdateUserMessage      Kind = "UPDATE_USER_MESSAGE"
	KindAddBotStep             Kind = "ADD_BOT_STEP"
	KindUpdateBotStep          Kind = "UPDATE_BOT_STEP"
	KindCompleteBotMessageStep Kind = "COMPLETE_BOT_MESSAGE_STEP"
	KindAddBotActions          Kind = "ADD_BOT_ACTIONS"
	KindUpdateBotAction        Kind = "UPDATE_BOT_ACTION"
	KindLoadMessages           Kind = "LOAD_MESSAGES"
	KindClearMessages          Kind = "CLEAR_MESSAGES"
	KindDeleteMessages         Kind = "DELETE_MESSAGES"
	KindClearPending           Kind = "CLEAR_PENDING"
)

// Action is a mutation of the conversation state. Reduce ignores actions
// of a kind it does not handle.
type Action interface {
	Kind() Kind
}

// AddUserMessage appends a user message.
type AddUserMessage struct {
	Message *model.UserMessage
}

// AddBotMessage appends a bot message. Missing steps default to an empty list.
type AddBotMessage struct {
	Message *model.BotMessage
}

// UserMessageUpdate is a partial update of a user message. Nil fields are
// left untouched.
type UserMessageUpdate struct {
	Content           *string
	ContextSelections []model.ContextSelection
}

// UpdateUserMessage edits a user message and rewinds the conversation to
// it: every message after the edited one is dropped.
type UpdateUserMessage struct {
	ID     string
	Update UserMessageUpdate
}

// AddBotStep appends a step to a bot message.
type AddBotStep struct {
	MessageID string
	Step      model.Step
}

// StepUpdate is a partial update of a step. Fields that do not apply to the
// target step's type are ignored.
type StepUpdate struct {
	Status *model.Status

	// Messages replaces the fragments of a MESSAGE_STEP.
	Messages model.SubMessages
	// Tool replaces the call of a TOOL_STEP.
	Tool *model.ToolCall
	// Error replaces the payload of an ERROR_STEP.
	Error *model.StepError
	// Action replaces the action of an ACTION_STEP.
	Action *model.Action
	// Workflow replaces the workflow of a WORKFLOW_STEP.
	Workflow *model.Workflow
	// Params is merged key by key into ACTION_STEP and WORKFLOW_STEP params.
	Params model.Params
}

// UpdateBotStep applies a partial update to one step of a bot message.
type UpdateBotStep struct {
	MessageID string
	StepID    string
	Update    StepUpdate
}

// CompleteBotMessageStep parses the streamed text of a MESSAGE_STEP, marks
// it completed and derives one WORKFLOW_STEP per prescribed workflow.
// Timestamp is stamped on the derived steps.
type CompleteBotMessageStep struct {
	MessageID string
	StepID    string
	Timestamp time.Time
}

// AddBotActions appends actions to the last text fragment of a MESSAGE_STEP.
type AddBotActions struct {
	MessageID string
	StepID    string
	Actions   []model.Action
}

// UpdateBotAction applies a partial update to one action of a MESSAGE_STEP.
type UpdateBotAction struct {
	MessageID string
	StepID    string
	ActionID  string
	Update    model.ActionUpdate
}

// LoadMessages replaces the message list. Pending sets are not touched.
type LoadMessages struct {
	Messages []model.Message
}

// ClearMessages drops every message and marks all of them for deletion.
type ClearMessages struct{}

// DeleteMessages drops the given messages and marks them for deletion.
type DeleteMessages struct {
	IDs []string
}

// ClearPending empties both pending sets after a flush.
type ClearPending struct{}

func (AddUserMessage) Kind() Kind         { return KindAddUserMessage }
func (AddBotMessage) Kind() Kind          { return KindAddBotMessage }
func (UpdateUserMessage) Kind() Kind      { return KindUpdateUserMessage }
func (AddBotStep) Kind() Kind             { return KindAddBotStep }
func (UpdateBotStep) Kind() Kind          { return KindUpdateBotStep }
func (CompleteBotMessageStep) Kind() Kind { return KindCompleteBotMessageStep }
func (AddBotActions) Kind() Kind          { return KindAddBotActions }
func (UpdateBotAction) Kind() Kind        { return KindUpdateBotAction }
func (LoadMessages) Kind() Kind           { return KindLoadMessages }
func (ClearMessages) Kind() Kind          { return KindClearMessages }
func (DeleteMessages) Kind() Kind         { return KindDeleteMessages }
func (ClearPending) Kind() Kind           { return KindClearPending }
