package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType discriminates the Message union.
type MessageType string

const (
	MessageTypeUser MessageType = "USER_MESSAGE"
	MessageTypeBot  MessageType = "BOT_MESSAGE"
)

// Message is a top-level turn in a conversation. It is implemented by
// *UserMessage and *BotMessage only.
//
// Messages are treated as immutable values: code that needs a modified
// message calls Clone first and changes the copy.
type Message interface {
	Meta() MessageMeta
	Type() MessageType
	Clone() Message
	message()
}

// MessageMeta holds the fields shared by every message. The ID is assigned
// once, at creation, and never reused within a conversation.
type MessageMeta struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// Meta returns the shared message fields.
func (m MessageMeta) Meta() MessageMeta { return m }

// ContextSelection is an item the user attached to a question, such as a
// library item, collection or tag.
type ContextSelection struct {
	Kind  string `json:"kind"`
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

// UserMessage is a message authored by the user.
type UserMessage struct {
	MessageMeta
	Content           string             `json:"content"`
	ContextSelections []ContextSelection `json:"contextSelections,omitempty"`
}

func (*UserMessage) message() {}

// Type implements Message.
func (*UserMessage) Type() MessageType { return MessageTypeUser }

// Clone implements Message.
func (m *UserMessage) Clone() Message {
	c := *m
	c.ContextSelections = append([]ContextSelection(nil), m.ContextSelections...)
	return &c
}

// MarshalJSON adds the type tag.
func (m UserMessage) MarshalJSON() ([]byte, error) {
	type alias UserMessage
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		alias
	}{MessageTypeUser, alias(m)})
}

// StreamHandle is the live connection a bot message is being streamed
// from. It is never persisted.
type StreamHandle interface {
	Close() error
}

// BotMessage is a message produced by the assistant as an ordered list of
// steps. Steps only ever grow while the message streams.
type BotMessage struct {
	MessageMeta
	Steps  Steps        `json:"steps"`
	Stream StreamHandle `json:"-"`
}

func (*BotMessage) message() {}

// Type implements Message.
func (*BotMessage) Type() MessageType { return MessageTypeBot }

// Clone implements Message. Steps are copied shallowly: each Step value is
// itself immutable and replaced, not mutated, on update.
func (m *BotMessage) Clone() Message {
	c := *m
	c.Steps = append(Steps(nil), m.Steps...)
	if c.Steps == nil {
		c.Steps = Steps{}
	}
	return &c
}

// MarshalJSON adds the type tag and always emits steps as an array.
func (m BotMessage) MarshalJSON() ([]byte, error) {
	type alias BotMessage
	a := alias(m)
	if a.Steps == nil {
		a.Steps = Steps{}
	}
	return json.Marshal(struct {
		Type MessageType `json:"type"`
		alias
	}{MessageTypeBot, a})
}

// Settled reports whether the message can be persisted: it has at least
// one step and every step is completed.
func (m *BotMessage) Settled() bool {
	if len(m.Steps) == 0 {
		return false
	}
	for _, step := range m.Steps {
		if step.Base().Status != StatusCompleted {
			return false
		}
	}
	return true
}

// StepIndex returns the position of the step with the given id, or -1.
func (m *BotMessage) StepIndex(stepID string) int {
	for i, step := range m.Steps {
		if step.Base().ID == stepID {
			return i
		}
	}
	return -1
}

// WithoutStream returns a copy of the message that no longer references
// its live stream.
func (m *BotMessage) WithoutStream() *BotMessage {
	c := m.Clone().(*BotMessage)
	c.Stream = nil
	return c
}

// DecodeMessage decodes a persisted message document.
func DecodeMessage(data []byte) (Message, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding message type: %w", err)
	}
	switch head.Type {
	case MessageTypeUser:
		var m UserMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding user message: %w", err)
		}
		return &m, nil
	case MessageTypeBot:
		var m BotMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding bot message: %w", err)
		}
		if m.Steps == nil {
			m.Steps = Steps{}
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: message type %q", ErrUnknownType, head.Type)
	}
}

// EncodeMessage encodes a message into its persisted document. The stream
// handle is never part of the document.
func EncodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Messages is a list of messages that decodes the Message union.
type Messages []Message

// UnmarshalJSON implements json.Unmarshaler.
func (ms *Messages) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Messages, 0, len(raws))
	for _, raw := range raws {
		m, err := DecodeMessage(raw)
		if err != nil {
			return err
		}
		out = append(out, m)
	}
	*ms = out
	return nil
}
