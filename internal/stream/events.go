// Package stream turns the event stream of an assistant run into bot
// message steps.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// EventType names an assistant stream event on the wire.
type EventType string

const (
	TypeMessageCreated EventType = "messageCreated"
	TypeMessageDelta   EventType = "messageDelta"
	TypeMessageDone    EventType = "messageDone"
	TypeImageDone      EventType = "imageFileDone"
	TypeToolCallDone   EventType = "toolCallDone"
	TypeRunFailed      EventType = "runFailed"
	TypeAbort          EventType = "abort"
	TypeEnd            EventType = "end"
)

// Event is one event of an assistant run.
type Event interface {
	Type() EventType
}

// MessageCreated opens a new message step.
type MessageCreated struct{}

// MessageDelta carries the full text streamed so far for the open step.
type MessageDelta struct {
	Snapshot string `json:"snapshot"`
}

// MessageDone closes the open message step.
type MessageDone struct{}

// ImageDone attaches a generated image file to the open message step.
type ImageDone struct {
	FileID string `json:"fileId"`
}

// ToolCallDone records a function call requested by the model.
type ToolCallDone struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// RunFailed reports that the run ended in error.
type RunFailed struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Abort reports that the run was cancelled by the user.
type Abort struct{}

// End is the last event of a run.
type End struct{}

func (MessageCreated) Type() EventType { return TypeMessageCreated }
func (MessageDelta) Type() EventType   { return TypeMessageDelta }
func (MessageDone) Type() EventType    { return TypeMessageDone }
func (ImageDone) Type() EventType      { return TypeImageDone }
func (ToolCallDone) Type() EventType   { return TypeToolCallDone }
func (RunFailed) Type() EventType      { return TypeRunFailed }
func (Abort) Type() EventType          { return TypeAbort }
func (End) Type() EventType            { return TypeEnd }

// DecodeEvent decodes one JSON event object of the form
// {"type": "...", ...fields}.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}

	switch head.Type {
	case TypeMessageCreated:
		return MessageCreated{}, nil
	case TypeMessageDone:
		return MessageDone{}, nil
	case TypeAbort:
		return Abort{}, nil
	case TypeEnd:
		return End{}, nil
	case TypeMessageDelta:
		return decodeAs[MessageDelta](data)
	case TypeImageDone:
		return decodeAs[ImageDone](data)
	case TypeToolCallDone:
		return decodeAs[ToolCallDone](data)
	case TypeRunFailed:
		return decodeAs[RunFailed](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Type)
	}
}

func decodeAs[T Event](data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", e.Type(), err)
	}
	return e, nil
}

// Decode reads newline-delimited JSON events from r and sends them on ch
// until r is exhausted or ctx is done. Lines that cannot be decoded are
// logged and skipped. ch is closed when Decode returns.
func Decode(ctx context.Context, r io.Reader, ch chan<- Event, logger *slog.Logger) error {
	defer close(ch)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := DecodeEvent(line)
		if err != nil {
			logger.Warn("Skipping undecodable stream event", "error", err)
			continue
		}

		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
