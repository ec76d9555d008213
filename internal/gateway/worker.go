package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"aria-chat/backend/internal/codec"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/repository"
)

type handlerFunc func(ctx context.Context, args codec.RawMessage) (any, error)

// Worker owns a repository and serves encoded requests from a channel,
// one at a time, writing encoded responses to another. It shares no
// memory with its callers beyond the frames.
type Worker struct {
	repo     repository.Repository
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

// NewWorker returns a worker serving repo.
func NewWorker(repo repository.Repository, logger *slog.Logger) *Worker {
	w := &Worker{repo: repo, logger: logger}
	w.handlers = map[string]handlerFunc{
		OpPing:                         w.ping,
		OpUpsertConversation:           w.upsertConversation,
		OpGetConversation:              w.getConversation,
		OpDeleteConversation:           w.deleteConversation,
		OpUpsertMessage:                w.upsertMessage,
		OpUpsertMessages:               w.upsertMessages,
		OpGetMessages:                  w.getMessages,
		OpDeleteMessage:                w.deleteMessage,
		OpDeleteMessages:               w.deleteMessages,
		OpClearMessagesForConversation: w.clearMessagesForConversation,
		OpClearAllMessages:             w.clearAllMessages,
	}
	return w
}

// Run serves requests until ctx is done.
func (w *Worker) Run(ctx context.Context, requests <-chan []byte, responses chan<- []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-requests:
			out, err := w.Serve(ctx, frame)
			if err != nil {
				w.logger.Error("Dropping undecodable request frame", "error", err, "frame", describe(frame))
				continue
			}
			select {
			case responses <- out:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Serve handles one encoded request and returns the encoded response. It
// only fails when the frame itself cannot be decoded.
func (w *Worker) Serve(ctx context.Context, frame []byte) ([]byte, error) {
	var req request
	if err := codec.Unmarshal(frame, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}

	resp := response{ID: req.ID}
	handler, ok := w.handlers[req.Op]
	if !ok {
		resp.Error = &wireError{Code: codeUnknown, Message: fmt.Sprintf("unknown operation %q", req.Op)}
		return codec.Marshal(resp)
	}

	data, err := handler(ctx, req.Args)
	if err == nil && data != nil {
		resp.Data, err = codec.Marshal(data)
	}
	if err != nil {
		w.logger.Debug("Store operation failed", "op", req.Op, "id", req.ID, "error", err)
		code := classify(err)
		var bad argsError
		if errors.As(err, &bad) {
			code = codeBadArgs
		}
		resp.Error = &wireError{Code: code, Message: err.Error()}
		return codec.Marshal(resp)
	}

	w.logger.Debug("Store operation completed", "op", req.Op, "id", req.ID)
	resp.OK = true
	return codec.Marshal(resp)
}

type argsError struct{ err error }

func (e argsError) Error() string { return "invalid arguments: " + e.err.Error() }
func (e argsError) Unwrap() error { return e.err }

func decodeArgs(args codec.RawMessage, v any) error {
	if err := codec.Unmarshal(args, v); err != nil {
		return argsError{err}
	}
	return nil
}

func decodeMessages(docs [][]byte) ([]model.Message, error) {
	messages := make([]model.Message, 0, len(docs))
	for _, doc := range docs {
		m, err := model.DecodeMessage(doc)
		if err != nil {
			return nil, argsError{err}
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (w *Worker) ping(ctx context.Context, _ codec.RawMessage) (any, error) {
	if err := w.repo.Ping(ctx); err != nil {
		return nil, err
	}
	return pong, nil
}

func (w *Worker) upsertConversation(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args conversationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal(args.Conversation, &conv); err != nil {
		return nil, argsError{err}
	}
	return nil, w.repo.UpsertConversation(ctx, &conv)
}

func (w *Worker) getConversation(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	conv, err := w.repo.GetConversation(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(conv)
	if err != nil {
		return nil, err
	}
	return conversationArgs{Conversation: doc}, nil
}

func (w *Worker) deleteConversation(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, w.repo.DeleteConversation(ctx, args.ID)
}

func (w *Worker) upsertMessage(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args messageArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	messages, err := decodeMessages([][]byte{args.Message})
	if err != nil {
		return nil, err
	}
	return nil, w.repo.UpsertMessages(ctx, messages)
}

func (w *Worker) upsertMessages(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args messagesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	messages, err := decodeMessages(args.Messages)
	if err != nil {
		return nil, err
	}
	return nil, w.repo.UpsertMessages(ctx, messages)
}

func (w *Worker) getMessages(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	messages, err := w.repo.GetMessages(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	docs := make([][]byte, 0, len(messages))
	for _, m := range messages {
		doc, err := model.EncodeMessage(m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return messagesArgs{Messages: docs}, nil
}

func (w *Worker) deleteMessage(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, w.repo.DeleteMessages(ctx, []string{args.ID})
}

func (w *Worker) deleteMessages(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args idsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, w.repo.DeleteMessages(ctx, args.IDs)
}

func (w *Worker) clearMessagesForConversation(ctx context.Context, raw codec.RawMessage) (any, error) {
	var args idArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return nil, w.repo.ClearMessagesForConversation(ctx, args.ID)
}

func (w *Worker) clearAllMessages(ctx context.Context, _ codec.RawMessage) (any, error) {
	return nil, w.repo.ClearAllMessages(ctx)
}
