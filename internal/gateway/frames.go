package gateway

import (
	"context"
	"errors"
	"fmt"

	"aria-chat/backend/internal/codec"
	"aria-chat/backend/internal/repository"
)

// Operations understood by the worker.
const (
	OpPing                         = "ping"
	OpUpsertConversation           = "upsertConversation"
	OpGetConversation              = "getConversation"
	OpDeleteConversation           = "deleteConversation"
	OpUpsertMessage                = "upsertMessage"
	OpUpsertMessages               = "upsertMessages"
	OpGetMessages                  = "getMessages"
	OpDeleteMessage                = "deleteMessage"
	OpDeleteMessages               = "deleteMessages"
	OpClearMessagesForConversation = "clearMessagesForConversation"
	OpClearAllMessages             = "clearAllMessages"
)

// request is the frame sent to the worker. ID correlates it with its
// response.
type request struct {
	ID   uint64           `cbor:"id"`
	Op   string           `cbor:"op"`
	Args codec.RawMessage `cbor:"args,omitempty"`
}

// response is the frame sent back by the worker.
type response struct {
	ID    uint64           `cbor:"id"`
	OK    bool             `cbor:"ok"`
	Error *wireError       `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

type wireError struct {
	Code    string `cbor:"code"`
	Message string `cbor:"message"`
}

// Error codes carried by failed responses.
const (
	codeNotFound = "not_found"
	codeCanceled = "canceled"
	codeBadArgs  = "bad_args"
	codeUnknown  = "unknown_op"
	codeInternal = "internal"
)

// describe renders a frame in CBOR diagnostic notation for a log line.
func describe(frame []byte) string {
	if diag, err := codec.Diagnose(frame); err == nil {
		return diag
	}
	return fmt.Sprintf("%d malformed bytes", len(frame))
}

func classify(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return codeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return codeCanceled
	default:
		return codeInternal
	}
}

// RemoteError is a failure reported by the worker for one operation.
type RemoteError struct {
	Op      string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway: %s failed (%s): %s", e.Op, e.Code, e.Message)
}

// Unwrap lets callers match the repository sentinels across the worker
// boundary.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codeNotFound:
		return repository.ErrNotFound
	case codeCanceled:
		return context.Canceled
	default:
		return nil
	}
}

// Argument shapes. Messages travel as their persisted JSON documents.
type (
	conversationArgs struct {
		Conversation []byte `cbor:"conversation"`
	}
	idArgs struct {
		ID string `cbor:"id"`
	}
	idsArgs struct {
		IDs []string `cbor:"ids"`
	}
	messageArgs struct {
		Message []byte `cbor:"message"`
	}
	messagesArgs struct {
		Messages [][]byte `cbor:"messages"`
	}
)
