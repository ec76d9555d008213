package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// SubMessageType discriminates the fragments of a message step.
type SubMessageType string

const (
	SubMessageText   SubMessageType = "TEXT"
	SubMessageImage  SubMessageType = "IMAGE"
	SubMessageWidget SubMessageType = "WIDGET"
)

// SubMessage is one fragment of a message step.
type SubMessage interface {
	Type() SubMessageType
	Clone() SubMessage
}

// RawText is the unparsed text streamed so far for a TEXT fragment.
type RawText struct {
	Value string `json:"value"`
}

// TextBody is the structured reply the model produces. While streaming
// only Raw is set; once the step completes Raw is parsed into the other
// fields.
type TextBody struct {
	Raw       *RawText        `json:"raw,omitempty"`
	Message   string          `json:"message,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
	Workflows []Workflow      `json:"workflows,omitempty"`
	Actions   []Action        `json:"actions,omitempty"`
}

// Clone returns a copy that shares no slices with b.
func (b TextBody) Clone() TextBody {
	c := b
	if b.Raw != nil {
		raw := *b.Raw
		c.Raw = &raw
	}
	c.Workflows = slices.Clone(b.Workflows)
	c.Actions = slices.Clone(b.Actions)
	return c
}

// ActionIndex returns the position of the action with the given id, or -1.
func (b TextBody) ActionIndex(actionID string) int {
	for i, action := range b.Actions {
		if action.ID == actionID {
			return i
		}
	}
	return -1
}

// TextContent is a text fragment.
type TextContent struct {
	Text TextBody `json:"text"`
}

// Type implements SubMessage.
func (*TextContent) Type() SubMessageType { return SubMessageText }

// Clone implements SubMessage.
func (t *TextContent) Clone() SubMessage {
	return &TextContent{Text: t.Text.Clone()}
}

// MarshalJSON adds the type tag.
func (t TextContent) MarshalJSON() ([]byte, error) {
	type alias TextContent
	return json.Marshal(struct {
		Type SubMessageType `json:"type"`
		alias
	}{SubMessageText, alias(t)})
}

// ImageContent references an image file produced by the model.
type ImageContent struct {
	Image string `json:"image"`
}

// Type implements SubMessage.
func (*ImageContent) Type() SubMessageType { return SubMessageImage }

// Clone implements SubMessage.
func (i *ImageContent) Clone() SubMessage {
	c := *i
	return &c
}

// MarshalJSON adds the type tag.
func (i ImageContent) MarshalJSON() ([]byte, error) {
	type alias ImageContent
	return json.Marshal(struct {
		Type SubMessageType `json:"type"`
		alias
	}{SubMessageImage, alias(i)})
}

// WidgetContent asks the presentation layer to render a named widget.
type WidgetContent struct {
	Widget string          `json:"widget"`
	Input  json.RawMessage `json:"input,omitempty"`
}

// Type implements SubMessage.
func (*WidgetContent) Type() SubMessageType { return SubMessageWidget }

// Clone implements SubMessage.
func (w *WidgetContent) Clone() SubMessage {
	c := *w
	return &c
}

// MarshalJSON adds the type tag.
func (w WidgetContent) MarshalJSON() ([]byte, error) {
	type alias WidgetContent
	return json.Marshal(struct {
		Type SubMessageType `json:"type"`
		alias
	}{SubMessageWidget, alias(w)})
}

// SubMessages is a list of fragments that decodes the SubMessage union.
type SubMessages []SubMessage

// UnmarshalJSON implements json.Unmarshaler.
func (ss *SubMessages) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(SubMessages, 0, len(raws))
	for _, raw := range raws {
		var head struct {
			Type SubMessageType `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("decoding sub-message type: %w", err)
		}
		var sub SubMessage
		switch head.Type {
		case SubMessageText:
			sub = &TextContent{}
		case SubMessageImage:
			sub = &ImageContent{}
		case SubMessageWidget:
			sub = &WidgetContent{}
		default:
			return fmt.Errorf("%w: sub-message type %q", ErrUnknownType, head.Type)
		}
		if err := json.Unmarshal(raw, sub); err != nil {
			return fmt.Errorf("decoding %s sub-message: %w", head.Type, err)
		}
		out = append(out, sub)
	}
	*ss = out
	return nil
}
