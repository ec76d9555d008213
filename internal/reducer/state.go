// Package reducer implements the conversation state machine: a pure
// function that applies one typed mutation to a conversation and returns
// the next state.
package reducer

import (
	"slices"

	"aria-chat/backend/internal/model"
)

// State is the runtime state of one conversation. PendingUpdate and
// PendingDelete are sets of message ids awaiting the next flush; they keep
// insertion order and never hold duplicates.
type State struct {
	Conversation  model.Conversation
	Messages      []model.Message
	PendingUpdate []string
	PendingDelete []string
}

// NewState returns the empty state of a conversation.
func NewState(conv model.Conversation) State {
	return State{
		Conversation:  conv,
		Messages:      []model.Message{},
		PendingUpdate: []string{},
		PendingDelete: []string{},
	}
}

// MessageIndex returns the position of the message with the given id, or -1.
func (s State) MessageIndex(id string) int {
	for i, m := range s.Messages {
		if m.Meta().ID == id {
			return i
		}
	}
	return -1
}

// Message returns the message with the given id.
func (s State) Message(id string) (model.Message, bool) {
	i := s.MessageIndex(id)
	if i < 0 {
		return nil, false
	}
	return s.Messages[i], true
}

// HasPending reports whether any message awaits a flush.
func (s State) HasPending() bool {
	return len(s.PendingUpdate) > 0 || len(s.PendingDelete) > 0
}

// EffectiveUpdate returns the pending updates that are not also pending
// deletion. Deletion wins.
func (s State) EffectiveUpdate() []string {
	out := make([]string, 0, len(s.PendingUpdate))
	for _, id := range s.PendingUpdate {
		if !slices.Contains(s.PendingDelete, id) {
			out = append(out, id)
		}
	}
	return out
}

// addPending returns set with ids appended, skipping ids already present.
// The input slice is never modified.
func addPending(set []string, ids ...string) []string {
	out := slices.Clone(set)
	if out == nil {
		out = []string{}
	}
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
