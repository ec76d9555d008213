package model

import (
	"encoding/json"
	"fmt"

	"aria-chat/backend/internal/partialjson"
)

// WorkflowType names a multi-step routine the model can prescribe.
type WorkflowType string

const (
	WorkflowSearch WorkflowType = "search"
	WorkflowQA     WorkflowType = "qa"
	WorkflowFile   WorkflowType = "file"
)

// Valid reports whether t is a known workflow type.
func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowSearch, WorkflowQA, WorkflowFile:
		return true
	}
	return false
}

// Workflow is a routine prescribed by the model in its structured reply.
type Workflow struct {
	Type  WorkflowType    `json:"type"`
	Input json.RawMessage `json:"input,omitempty"`
}

// UnmarshalJSON rejects unknown workflow types.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	type alias Workflow
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: workflow type %q", ErrUnknownType, a.Type)
	}
	*w = Workflow(a)
	return nil
}

// ParseTextBody turns the raw streamed reply into its structured form.
// Workflows and actions that cannot be decoded are skipped so that one bad
// entry does not hide the whole reply. It reports false when nothing could
// be recovered from raw.
func ParseTextBody(raw string) (TextBody, bool) {
	var doc struct {
		Message   string            `json:"message"`
		Context   json.RawMessage   `json:"context"`
		Workflows []json.RawMessage `json:"workflows"`
		Actions   []json.RawMessage `json:"actions"`
	}
	if !partialjson.ReconstructInto(raw, &doc) {
		return TextBody{}, false
	}

	body := TextBody{Message: doc.Message, Context: doc.Context}
	if len(body.Context) == 0 || string(body.Context) == "null" {
		body.Context = json.RawMessage(`{}`)
	}
	for _, item := range doc.Workflows {
		var wf Workflow
		if err := json.Unmarshal(item, &wf); err == nil {
			body.Workflows = append(body.Workflows, wf)
		}
	}
	for _, item := range doc.Actions {
		var action Action
		if err := json.Unmarshal(item, &action); err == nil {
			body.Actions = append(body.Actions, action)
		}
	}
	return body, true
}
