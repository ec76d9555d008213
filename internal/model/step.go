package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrUnknownType is returned when a tagged document carries a type tag this
// package does not know.
var ErrUnknownType = errors.New("model: unknown type")

// Status is the lifecycle of a step or action. It only moves forward.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Advance returns the status that results from applying next to s. A
// completed status never goes back to in progress.
func (s Status) Advance(next Status) Status {
	if s == StatusCompleted {
		return StatusCompleted
	}
	if next == "" {
		return s
	}
	return next
}

// StepType discriminates the Step union.
type StepType string

const (
	StepTypeMessage  StepType = "MESSAGE_STEP"
	StepTypeTool     StepType = "TOOL_STEP"
	StepTypeAction   StepType = "ACTION_STEP"
	StepTypeWorkflow StepType = "WORKFLOW_STEP"
	StepTypeError    StepType = "ERROR_STEP"
)

// Step is an ordered unit of content or work inside a bot message.
type Step interface {
	// Base returns the shared step fields. Callers must Clone a step
	// before changing anything reachable through Base.
	Base() *StepBase
	Type() StepType
	Clone() Step
}

// StepBase holds the fields shared by every step.
type StepBase struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// Base implements Step.
func (b *StepBase) Base() *StepBase { return b }

// StepRef points at a step of a message.
type StepRef struct {
	MessageID string `json:"messageId"`
	StepID    string `json:"stepId"`
}

// Params is the loosely typed progress state of a workflow or action step.
// Updates are merged key by key.
type Params map[string]any

// Merge returns a new Params holding p overlaid with update.
func (p Params) Merge(update Params) Params {
	if len(update) == 0 {
		return maps.Clone(p)
	}
	out := make(Params, len(p)+len(update))
	maps.Copy(out, p)
	maps.Copy(out, update)
	return out
}

// MessageStep carries the assistant's rendered output.
type MessageStep struct {
	StepBase
	Messages SubMessages `json:"messages"`
}

// Type implements Step.
func (*MessageStep) Type() StepType { return StepTypeMessage }

// Clone implements Step.
func (s *MessageStep) Clone() Step {
	c := *s
	c.Messages = make(SubMessages, len(s.Messages))
	for i, sub := range s.Messages {
		c.Messages[i] = sub.Clone()
	}
	return &c
}

// MarshalJSON adds the type tag.
func (s MessageStep) MarshalJSON() ([]byte, error) {
	type alias MessageStep
	a := alias(s)
	if a.Messages == nil {
		a.Messages = SubMessages{}
	}
	return json.Marshal(struct {
		Type StepType `json:"type"`
		alias
	}{StepTypeMessage, a})
}

// ToolCall describes a function call requested by the model.
type ToolCall struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Result     string          `json:"result,omitempty"`
}

// ToolStep records a tool invocation.
type ToolStep struct {
	StepBase
	Tool ToolCall `json:"tool"`
}

// Type implements Step.
func (*ToolStep) Type() StepType { return StepTypeTool }

// Clone implements Step.
func (s *ToolStep) Clone() Step {
	c := *s
	return &c
}

// MarshalJSON adds the type tag.
func (s ToolStep) MarshalJSON() ([]byte, error) {
	type alias ToolStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		alias
	}{StepTypeTool, alias(s)})
}

// ActionStep is a delegated unit of work spawned by a workflow step.
type ActionStep struct {
	StepBase
	Action   Action  `json:"action"`
	Workflow StepRef `json:"workflow"`
	Params   Params  `json:"params,omitempty"`
}

// Type implements Step.
func (*ActionStep) Type() StepType { return StepTypeAction }

// Clone implements Step.
func (s *ActionStep) Clone() Step {
	c := *s
	c.Params = maps.Clone(s.Params)
	return &c
}

// MarshalJSON adds the type tag.
func (s ActionStep) MarshalJSON() ([]byte, error) {
	type alias ActionStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		alias
	}{StepTypeAction, alias(s)})
}

// WorkflowStep is derived from a workflow the model prescribed in a
// completed message step. Origin points back at that message step.
type WorkflowStep struct {
	StepBase
	Workflow Workflow `json:"workflow"`
	Origin   StepRef  `json:"origin"`
	Params   Params   `json:"params,omitempty"`
}

// Type implements Step.
func (*WorkflowStep) Type() StepType { return StepTypeWorkflow }

// Clone implements Step.
func (s *WorkflowStep) Clone() Step {
	c := *s
	c.Params = maps.Clone(s.Params)
	return &c
}

// MarshalJSON adds the type tag.
func (s WorkflowStep) MarshalJSON() ([]byte, error) {
	type alias WorkflowStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		alias
	}{StepTypeWorkflow, alias(s)})
}

// StepError is the payload of an error step.
type StepError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ErrorStep records a failed run.
type ErrorStep struct {
	StepBase
	Error StepError `json:"error"`
}

// Type implements Step.
func (*ErrorStep) Type() StepType { return StepTypeError }

// Clone implements Step.
func (s *ErrorStep) Clone() Step {
	c := *s
	return &c
}

// MarshalJSON adds the type tag.
func (s ErrorStep) MarshalJSON() ([]byte, error) {
	type alias ErrorStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		alias
	}{StepTypeError, alias(s)})
}

// DecodeStep decodes one tagged step document.
func DecodeStep(data []byte) (Step, error) {
	var head struct {
		Type StepType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding step type: %w", err)
	}
	var step Step
	switch head.Type {
	case StepTypeMessage:
		step = &MessageStep{}
	case StepTypeTool:
		step = &ToolStep{}
	case StepTypeAction:
		step = &ActionStep{}
	case StepTypeWorkflow:
		step = &WorkflowStep{}
	case StepTypeError:
		step = &ErrorStep{}
	default:
		return nil, fmt.Errorf("%w: step type %q", ErrUnknownType, head.Type)
	}
	if err := json.Unmarshal(data, step); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", head.Type, err)
	}
	return step, nil
}

// Steps is a list of steps that decodes the Step union.
type Steps []Step

// UnmarshalJSON implements json.Unmarshaler.
func (ss *Steps) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Steps, 0, len(raws))
	for _, raw := range raws {
		step, err := DecodeStep(raw)
		if err != nil {
			return err
		}
		out = append(out, step)
	}
	*ss = out
	return nil
}
