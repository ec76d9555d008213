package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"aria-chat/backend/internal/codec"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/repository"
)

// ErrHandleDestroyed is returned by calls made on, or interrupted by, a
// destroyed handle.
var ErrHandleDestroyed = errors.New("gateway: store handle destroyed")

const pong = "pong"

// State is the lifecycle of a Handle.
type State int

const (
	StateCreated State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Handle is a live connection to a store worker. Requests are encoded
// frames sent over a channel; a dispatcher routes each response frame to
// the caller waiting on its correlation id.
type Handle struct {
	logger *slog.Logger
	repo   repository.Repository

	requests  chan []byte
	responses chan []byte
	done      chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	state   State
	nextID  uint64
	pending map[uint64]chan response
}

// newHandle starts a worker over repo and returns its handle in the
// created state.
func newHandle(repo repository.Repository, logger *slog.Logger) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		logger:    logger,
		repo:      repo,
		requests:  make(chan []byte),
		responses: make(chan []byte),
		done:      make(chan struct{}),
		cancel:    cancel,
		pending:   make(map[uint64]chan response),
	}

	worker := NewWorker(repo, logger)
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		worker.Run(ctx, h.requests, h.responses)
	}()
	go func() {
		defer h.wg.Done()
		h.dispatch(ctx)
	}()
	return h
}

// State returns the handle's lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) markReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateCreated {
		h.state = StateReady
	}
}

// Destroy stops the worker, fails every outstanding call with
// ErrHandleDestroyed and closes the repository. It is safe to call more
// than once.
func (h *Handle) Destroy() error {
	h.mu.Lock()
	if h.state == StateDestroyed {
		h.mu.Unlock()
		return nil
	}
	h.state = StateDestroyed
	close(h.done)
	h.cancel()
	h.mu.Unlock()

	h.wg.Wait()

	h.mu.Lock()
	h.pending = make(map[uint64]chan response)
	h.mu.Unlock()

	if err := h.repo.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

func (h *Handle) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-h.responses:
			var resp response
			if err := codec.Unmarshal(frame, &resp); err != nil {
				h.logger.Error("Dropping undecodable response frame", "error", err, "frame", describe(frame))
				continue
			}
			h.mu.Lock()
			waiter, ok := h.pending[resp.ID]
			delete(h.pending, resp.ID)
			h.mu.Unlock()
			if !ok {
				h.logger.Warn("Dropping response with no pending request", "id", resp.ID)
				continue
			}
			waiter <- resp
		}
	}
}

// call sends op with args to the worker and decodes the response data
// into out when out is non-nil.
func (h *Handle) call(ctx context.Context, op string, args, out any) error {
	frame := request{Op: op}
	if args != nil {
		encoded, err := codec.Marshal(args)
		if err != nil {
			return fmt.Errorf("gateway: encoding %s arguments: %w", op, err)
		}
		frame.Args = encoded
	}

	waiter := make(chan response, 1)
	h.mu.Lock()
	if h.state == StateDestroyed {
		h.mu.Unlock()
		return ErrHandleDestroyed
	}
	h.nextID++
	frame.ID = h.nextID
	h.pending[frame.ID] = waiter
	h.mu.Unlock()

	data, err := codec.Marshal(frame)
	if err != nil {
		h.forget(frame.ID)
		return fmt.Errorf("gateway: encoding %s request: %w", op, err)
	}

	select {
	case h.requests <- data:
	case <-ctx.Done():
		h.forget(frame.ID)
		return ctx.Err()
	case <-h.done:
		return ErrHandleDestroyed
	}

	var resp response
	select {
	case resp = <-waiter:
	case <-ctx.Done():
		h.forget(frame.ID)
		return ctx.Err()
	case <-h.done:
		return ErrHandleDestroyed
	}

	if !resp.OK {
		remote := &RemoteError{Op: op, Code: codeInternal}
		if resp.Error != nil {
			remote.Code = resp.Error.Code
			remote.Message = resp.Error.Message
		}
		return remote
	}
	if out != nil && len(resp.Data) > 0 {
		if err := codec.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("gateway: decoding %s response: %w", op, err)
		}
	}
	return nil
}

func (h *Handle) forget(id uint64) {
	h.mu.Lock()
	delete(h.pending, id)
	h.mu.Unlock()
}

// Ping checks that the worker and its store answer.
func (h *Handle) Ping(ctx context.Context) error {
	var reply string
	if err := h.call(ctx, OpPing, nil, &reply); err != nil {
		return err
	}
	if reply != pong {
		return fmt.Errorf("gateway: unexpected ping reply %q", reply)
	}
	return nil
}

func (h *Handle) UpsertConversation(ctx context.Context, conv *model.Conversation) error {
	doc, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("gateway: encoding conversation: %w", err)
	}
	return h.call(ctx, OpUpsertConversation, conversationArgs{Conversation: doc}, nil)
}

func (h *Handle) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var reply conversationArgs
	if err := h.call(ctx, OpGetConversation, idArgs{ID: id}, &reply); err != nil {
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal(reply.Conversation, &conv); err != nil {
		return nil, fmt.Errorf("gateway: decoding conversation: %w", err)
	}
	return &conv, nil
}

func (h *Handle) DeleteConversation(ctx context.Context, id string) error {
	return h.call(ctx, OpDeleteConversation, idArgs{ID: id}, nil)
}

func (h *Handle) UpsertMessage(ctx context.Context, m model.Message) error {
	doc, err := model.EncodeMessage(m)
	if err != nil {
		return fmt.Errorf("gateway: encoding message: %w", err)
	}
	return h.call(ctx, OpUpsertMessage, messageArgs{Message: doc}, nil)
}

func (h *Handle) UpsertMessages(ctx context.Context, messages []model.Message) error {
	docs := make([][]byte, 0, len(messages))
	for _, m := range messages {
		doc, err := model.EncodeMessage(m)
		if err != nil {
			return fmt.Errorf("gateway: encoding message %s: %w", m.Meta().ID, err)
		}
		docs = append(docs, doc)
	}
	return h.call(ctx, OpUpsertMessages, messagesArgs{Messages: docs}, nil)
}

func (h *Handle) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var reply messagesArgs
	if err := h.call(ctx, OpGetMessages, idArgs{ID: conversationID}, &reply); err != nil {
		return nil, err
	}
	messages := make([]model.Message, 0, len(reply.Messages))
	for _, doc := range reply.Messages {
		m, err := model.DecodeMessage(doc)
		if err != nil {
			return nil, fmt.Errorf("gateway: decoding message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (h *Handle) DeleteMessage(ctx context.Context, id string) error {
	return h.call(ctx, OpDeleteMessage, idArgs{ID: id}, nil)
}

func (h *Handle) DeleteMessages(ctx context.Context, ids []string) error {
	return h.call(ctx, OpDeleteMessages, idsArgs{IDs: ids}, nil)
}

func (h *Handle) ClearMessagesForConversation(ctx context.Context, conversationID string) error {
	return h.call(ctx, OpClearMessagesForConversation, idArgs{ID: conversationID}, nil)
}

func (h *Handle) ClearAllMessages(ctx context.Context) error {
	return h.call(ctx, OpClearAllMessages, nil, nil)
}
