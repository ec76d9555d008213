package reducer

import (
	"fmt"
	"slices"

	"aria-chat/backend/internal/model"
)

// Reduce applies action to s and returns the next state. Actions that
// target a missing message, step or action leave the state unchanged, as do
// actions of an unknown kind. s is never modified.
func Reduce(s State, action Action) State {
	next, _ := Apply(s, action)
	return next
}

// Apply is Reduce that also reports whether the action found its target.
// When it returns false the returned state is s.
func Apply(s State, action Action) (State, bool) {
	switch a := action.(type) {
	case AddUserMessage:
		if a.Message == nil {
			return s, false
		}
		return s.appendMessage(a.Message.Clone()), true

	case AddBotMessage:
		if a.Message == nil {
			return s, false
		}
		return s.appendMessage(a.Message.Clone()), true

	case UpdateUserMessage:
		return updateUserMessage(s, a)

	case AddBotStep:
		return withBotMessage(s, a.MessageID, func(bot *model.BotMessage) bool {
			if a.Step == nil || bot.StepIndex(a.Step.Base().ID) >= 0 {
				return false
			}
			step := a.Step.Clone()
			if step.Base().MessageID == "" {
				step.Base().MessageID = bot.ID
			}
			bot.Steps = append(bot.Steps, step)
			return true
		})

	case UpdateBotStep:
		return withBotMessage(s, a.MessageID, func(bot *model.BotMessage) bool {
			i := bot.StepIndex(a.StepID)
			if i < 0 {
				return false
			}
			bot.Steps[i] = updateStep(bot.Steps[i], a.Update)
			return true
		})

	case CompleteBotMessageStep:
		return withBotMessage(s, a.MessageID, func(bot *model.BotMessage) bool {
			return completeMessageStep(bot, a)
		})

	case AddBotActions:
		return withMessageStep(s, a.MessageID, a.StepID, func(step *model.MessageStep) bool {
			return addActions(step, a.Actions)
		})

	case UpdateBotAction:
		return withMessageStep(s, a.MessageID, a.StepID, func(step *model.MessageStep) bool {
			return updateAction(step, a.ActionID, a.Update)
		})

	case LoadMessages:
		next := s
		next.Messages = make([]model.Message, 0, len(a.Messages))
		for _, m := range a.Messages {
			if m != nil {
				next.Messages = append(next.Messages, m.Clone())
			}
		}
		return next, true

	case ClearMessages:
		next := s
		next.PendingDelete = addPending(s.PendingDelete, messageIDs(s.Messages)...)
		next.Messages = []model.Message{}
		return next, true

	case DeleteMessages:
		return deleteMessages(s, a.IDs)

	case ClearPending:
		next := s
		next.PendingUpdate = []string{}
		next.PendingDelete = []string{}
		return next, true

	default:
		return s, false
	}
}

func (s State) appendMessage(m model.Message) State {
	next := s
	next.Messages = append(slices.Clone(s.Messages), m)
	next.PendingUpdate = addPending(s.PendingUpdate, m.Meta().ID)
	return next
}

// replaceMessage returns s with the message at i replaced by m and m's id
// marked for update.
func (s State) replaceMessage(i int, m model.Message) State {
	next := s
	next.Messages = slices.Clone(s.Messages)
	next.Messages[i] = m
	next.PendingUpdate = addPending(s.PendingUpdate, m.Meta().ID)
	return next
}

func updateUserMessage(s State, a UpdateUserMessage) (State, bool) {
	i := s.MessageIndex(a.ID)
	if i < 0 {
		return s, false
	}
	user, ok := s.Messages[i].(*model.UserMessage)
	if !ok {
		return s, false
	}
	updated := user.Clone().(*model.UserMessage)
	if a.Update.Content != nil {
		updated.Content = *a.Update.Content
	}
	if a.Update.ContextSelections != nil {
		updated.ContextSelections = slices.Clone(a.Update.ContextSelections)
	}

	// Editing rewinds: every later message is dropped and queued for
	// deletion so a reload does not bring it back.
	next := s
	next.Messages = append(slices.Clone(s.Messages[:i]), updated)
	next.PendingUpdate = addPending(s.PendingUpdate, updated.ID)
	next.PendingDelete = addPending(s.PendingDelete, messageIDs(s.Messages[i+1:])...)
	return next, true
}

// withBotMessage clones the bot message with the given id, lets fn change
// the clone and swaps it into the state when fn reports a change.
func withBotMessage(s State, id string, fn func(*model.BotMessage) bool) (State, bool) {
	i := s.MessageIndex(id)
	if i < 0 {
		return s, false
	}
	bot, ok := s.Messages[i].(*model.BotMessage)
	if !ok {
		return s, false
	}
	clone := bot.Clone().(*model.BotMessage)
	if !fn(clone) {
		return s, false
	}
	return s.replaceMessage(i, clone), true
}

func withMessageStep(s State, messageID, stepID string, fn func(*model.MessageStep) bool) (State, bool) {
	return withBotMessage(s, messageID, func(bot *model.BotMessage) bool {
		i := bot.StepIndex(stepID)
		if i < 0 {
			return false
		}
		current, ok := bot.Steps[i].(*model.MessageStep)
		if !ok {
			return false
		}
		step := current.Clone().(*model.MessageStep)
		if !fn(step) {
			return false
		}
		bot.Steps[i] = step
		return true
	})
}

func updateStep(current model.Step, u StepUpdate) model.Step {
	step := current.Clone()
	if u.Status != nil {
		step.Base().Status = step.Base().Status.Advance(*u.Status)
	}
	switch st := step.(type) {
	case *model.MessageStep:
		if u.Messages != nil {
			st.Messages = make(model.SubMessages, len(u.Messages))
			for i, sub := range u.Messages {
				st.Messages[i] = sub.Clone()
			}
		}
	case *model.ToolStep:
		if u.Tool != nil {
			st.Tool = *u.Tool
		}
	case *model.ErrorStep:
		if u.Error != nil {
			st.Error = *u.Error
		}
	case *model.ActionStep:
		if u.Action != nil {
			st.Action = *u.Action
		}
		if u.Params != nil {
			st.Params = st.Params.Merge(u.Params)
		}
	case *model.WorkflowStep:
		if u.Workflow != nil {
			st.Workflow = *u.Workflow
		}
		if u.Params != nil {
			st.Params = st.Params.Merge(u.Params)
		}
	}
	return step
}

// WorkflowStepID returns the id of the n-th workflow step derived from the
// message step stepID.
func WorkflowStepID(stepID string, n int) string {
	return fmt.Sprintf("%s_workflow_%d", stepID, n)
}

func completeMessageStep(bot *model.BotMessage, a CompleteBotMessageStep) bool {
	i := bot.StepIndex(a.StepID)
	if i < 0 {
		return false
	}
	current, ok := bot.Steps[i].(*model.MessageStep)
	if !ok {
		return false
	}
	// Completing twice must not derive the workflows twice.
	if current.Status == model.StatusCompleted {
		return true
	}

	step := current.Clone().(*model.MessageStep)
	step.Status = model.StatusCompleted
	var workflows []model.Workflow
	for j, sub := range step.Messages {
		text, ok := sub.(*model.TextContent)
		if !ok || text.Text.Raw == nil {
			continue
		}
		body, ok := model.ParseTextBody(text.Text.Raw.Value)
		if !ok {
			continue
		}
		for k := range body.Actions {
			if body.Actions[k].ID == "" {
				body.Actions[k].ID = fmt.Sprintf("%s_action_%d", step.ID, k)
			}
			if body.Actions[k].Status == "" {
				body.Actions[k].Status = model.StatusInProgress
			}
		}
		step.Messages[j] = &model.TextContent{Text: body}
		workflows = append(workflows, body.Workflows...)
	}

	ts := a.Timestamp
	if ts.IsZero() {
		ts = step.Timestamp
	}
	derived := make([]model.Step, 0, len(workflows))
	for n, wf := range workflows {
		derived = append(derived, &model.WorkflowStep{
			StepBase: model.StepBase{
				ID:        WorkflowStepID(step.ID, n),
				MessageID: bot.ID,
				Timestamp: ts,
				Status:    model.StatusInProgress,
			},
			Workflow: wf,
			Origin:   model.StepRef{MessageID: bot.ID, StepID: step.ID},
		})
	}

	steps := make(model.Steps, 0, len(bot.Steps)+len(derived))
	steps = append(steps, bot.Steps[:i]...)
	steps = append(steps, step)
	steps = append(steps, derived...)
	steps = append(steps, bot.Steps[i+1:]...)
	bot.Steps = steps
	return true
}

func addActions(step *model.MessageStep, actions []model.Action) bool {
	last := -1
	for j, sub := range step.Messages {
		if sub.Type() == model.SubMessageText {
			last = j
		}
	}
	if last < 0 {
		return false
	}
	text := step.Messages[last].(*model.TextContent)
	for _, action := range actions {
		if action.ID != "" && text.Text.ActionIndex(action.ID) >= 0 {
			continue
		}
		text.Text.Actions = append(text.Text.Actions, action)
	}
	return true
}

func updateAction(step *model.MessageStep, actionID string, u model.ActionUpdate) bool {
	for _, sub := range step.Messages {
		text, ok := sub.(*model.TextContent)
		if !ok {
			continue
		}
		if k := text.Text.ActionIndex(actionID); k >= 0 {
			text.Text.Actions[k] = u.Apply(text.Text.Actions[k])
			return true
		}
	}
	return false
}

func deleteMessages(s State, ids []string) (State, bool) {
	kept := make([]model.Message, 0, len(s.Messages))
	var removed []string
	for _, m := range s.Messages {
		if slices.Contains(ids, m.Meta().ID) {
			removed = append(removed, m.Meta().ID)
			continue
		}
		kept = append(kept, m)
	}
	if len(removed) == 0 {
		return s, false
	}
	next := s
	next.Messages = kept
	next.PendingDelete = addPending(s.PendingDelete, removed...)
	return next, true
}

func messageIDs(messages []model.Message) []string {
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.Meta().ID
	}
	return ids
}
