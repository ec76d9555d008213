package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/partialjson"
	"aria-chat/backend/internal/reducer"
)

// MaxToolCalls is the number of tool calls a single run may request.
const MaxToolCalls = 5

var (
	ErrTooManyToolCalls = errors.New("stream: too many tool calls")
	ErrUnknownEvent     = errors.New("stream: unknown event type")
)

// Target is the bot message owner a Binder writes to.
type Target interface {
	AddBotStep(messageID string, step model.Step) (model.Step, error)
	UpdateBotStep(messageID, stepID string, update reducer.StepUpdate) error
	CompleteBotMessageStep(messageID, stepID string) error
}

// Binder maps stream events onto steps of one bot message.
type Binder struct {
	target Target
	logger *slog.Logger
}

// NewBinder returns a binder writing to target.
func NewBinder(target Target, logger *slog.Logger) *Binder {
	return &Binder{target: target, logger: logger}
}

// run is the per-message state of a Consume call.
type run struct {
	messageID string
	stepID    string // open message step, "" when none
	raw       string
	images    []string
	toolCalls int
}

// Consume applies events to the bot message messageID until the stream
// ends, is aborted, events is closed or ctx is done.
func (b *Binder) Consume(ctx context.Context, messageID string, events <-chan Event) error {
	r := &run{messageID: messageID}
	logger := b.logger.With("message_id", messageID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			done, err := b.handle(r, ev)
			if err != nil {
				logger.Error("Failed to apply stream event", "event", ev.Type(), "error", err)
				return err
			}
			if done {
				logger.Debug("Stream finished", "event", ev.Type())
				return nil
			}
		}
	}
}

func (b *Binder) handle(r *run, ev Event) (bool, error) {
	switch e := ev.(type) {
	case MessageCreated:
		return false, b.openStep(r)

	case MessageDelta:
		r.raw = e.Snapshot
		return false, b.updateStep(r)

	case ImageDone:
		r.images = append(r.images, e.FileID)
		return false, b.updateStep(r)

	case MessageDone:
		return false, b.completeStep(r)

	case ToolCallDone:
		r.toolCalls++
		if r.toolCalls > MaxToolCalls {
			return true, fmt.Errorf("%w: limit is %d", ErrTooManyToolCalls, MaxToolCalls)
		}
		_, err := b.target.AddBotStep(r.messageID, &model.ToolStep{
			Tool: model.ToolCall{ID: e.ID, Name: e.Name, Parameters: toolParameters(e.Arguments)},
		})
		return false, err

	case RunFailed:
		r.toolCalls = 0
		message := e.Message
		if message == "" {
			message = "Thread run failed"
		}
		_, err := b.target.AddBotStep(r.messageID, &model.ErrorStep{
			StepBase: model.StepBase{Status: model.StatusCompleted},
			Error:    model.StepError{Message: message, Stack: e.Detail},
		})
		return false, err

	case Abort:
		return true, b.completeStep(r)

	case End:
		return true, nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type())
	}
}

func (b *Binder) openStep(r *run) error {
	step, err := b.target.AddBotStep(r.messageID, &model.MessageStep{Messages: model.SubMessages{}})
	if err != nil {
		return err
	}
	r.stepID = step.Base().ID
	r.raw = ""
	r.images = nil
	return nil
}

// updateStep replaces the fragments of the open step, opening one if a
// delta arrives before MessageCreated.
func (b *Binder) updateStep(r *run) error {
	if r.stepID == "" {
		raw, images := r.raw, r.images
		if err := b.openStep(r); err != nil {
			return err
		}
		r.raw, r.images = raw, images
	}

	fragments := model.SubMessages{}
	if r.raw != "" {
		fragments = append(fragments, &model.TextContent{Text: model.TextBody{Raw: &model.RawText{Value: r.raw}}})
	}
	for _, fileID := range r.images {
		fragments = append(fragments, &model.ImageContent{Image: fileID})
	}
	return b.target.UpdateBotStep(r.messageID, r.stepID, reducer.StepUpdate{Messages: fragments})
}

func (b *Binder) completeStep(r *run) error {
	if r.stepID == "" {
		return nil
	}
	stepID := r.stepID
	r.stepID = ""
	return b.target.CompleteBotMessageStep(r.messageID, stepID)
}

// toolParameters returns the call arguments as JSON. Arguments cut short
// by the model are closed where possible; anything else is dropped.
func toolParameters(arguments string) json.RawMessage {
	if arguments == "" {
		return nil
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	v := partialjson.Reconstruct(arguments)
	if v == nil {
		return nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}
