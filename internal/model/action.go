package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType discriminates the ActionPayload union.
type ActionType string

const (
	ActionSearch ActionType = "search"
	ActionQA     ActionType = "qa"
	ActionFile   ActionType = "file"
	ActionRetry  ActionType = "retry"
)

// ActionPayload is the typed input of an action.
type ActionPayload interface {
	ActionType() ActionType
}

// SearchAction retrieves items from the user's library.
type SearchAction struct {
	Mode  string          `json:"mode,omitempty"`
	Query json.RawMessage `json:"query,omitempty"`
}

// ActionType implements ActionPayload.
func (SearchAction) ActionType() ActionType { return ActionSearch }

// QAAction answers a question from the user's library.
type QAAction struct {
	Question string `json:"question"`
	Fulltext bool   `json:"fulltext,omitempty"`
}

// ActionType implements ActionPayload.
func (QAAction) ActionType() ActionType { return ActionQA }

// FileAction works on a set of library items.
type FileAction struct {
	ItemIDs []int64 `json:"itemIds"`
}

// ActionType implements ActionPayload.
func (FileAction) ActionType() ActionType { return ActionFile }

// RetryAction asks the model to revise its previous answer.
type RetryAction struct {
	Message string `json:"message"`
	Prompt  string `json:"prompt"`
}

// ActionType implements ActionPayload.
func (RetryAction) ActionType() ActionType { return ActionRetry }

// Action is one unit of delegated work. Output stays empty until the work
// resolves.
type Action struct {
	ID        string
	Timestamp time.Time
	Status    Status
	Payload   ActionPayload
	Output    json.RawMessage
}

// Type returns the payload's tag, or "" when the action has no payload.
func (a Action) Type() ActionType {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.ActionType()
}

type actionDocument struct {
	ID        string          `json:"id,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Status    Status          `json:"status,omitempty"`
	Type      ActionType      `json:"type"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
}

// MarshalJSON encodes the action as {id, timestamp, status, type, input, output}.
func (a Action) MarshalJSON() ([]byte, error) {
	doc := actionDocument{
		ID:     a.ID,
		Status: a.Status,
		Type:   a.Type(),
		Output: a.Output,
	}
	if !a.Timestamp.IsZero() {
		ts := a.Timestamp
		doc.Timestamp = &ts
	}
	if a.Payload != nil {
		input, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s action input: %w", a.Type(), err)
		}
		doc.Input = input
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var doc actionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	payload, err := decodeActionPayload(doc.Type, doc.Input)
	if err != nil {
		return err
	}
	*a = Action{
		ID:      doc.ID,
		Status:  doc.Status,
		Payload: payload,
		Output:  doc.Output,
	}
	if doc.Timestamp != nil {
		a.Timestamp = *doc.Timestamp
	}
	return nil
}

func decodeActionPayload(t ActionType, input json.RawMessage) (ActionPayload, error) {
	var payload ActionPayload
	switch t {
	case ActionSearch:
		var p SearchAction
		if err := unmarshalInput(input, &p); err != nil {
			return nil, err
		}
		payload = p
	case ActionQA:
		var p QAAction
		if err := unmarshalInput(input, &p); err != nil {
			return nil, err
		}
		payload = p
	case ActionFile:
		var p FileAction
		if err := unmarshalInput(input, &p); err != nil {
			return nil, err
		}
		payload = p
	case ActionRetry:
		var p RetryAction
		if err := unmarshalInput(input, &p); err != nil {
			return nil, err
		}
		payload = p
	default:
		return nil, fmt.Errorf("%w: action type %q", ErrUnknownType, t)
	}
	return payload, nil
}

func unmarshalInput(input json.RawMessage, v any) error {
	if len(input) == 0 {
		return nil
	}
	return json.Unmarshal(input, v)
}

// ActionUpdate is a partial update of an action. Nil fields are left
// untouched.
type ActionUpdate struct {
	Status  *Status
	Payload ActionPayload
	Output  json.RawMessage
}

// Apply returns a copy of a with the update applied. The status never
// regresses from completed.
func (u ActionUpdate) Apply(a Action) Action {
	if u.Status != nil {
		a.Status = a.Status.Advance(*u.Status)
	}
	if u.Payload != nil {
		a.Payload = u.Payload
	}
	if u.Output != nil {
		a.Output = u.Output
	}
	return a
}
