// Package gateway gives the session layer asynchronous access to a
// durable store. The store is owned by a single background worker that is
// started on first use and reached only through encoded request and
// response frames.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/repository"
)

// Opener opens the repository the worker will own.
type Opener func(ctx context.Context) (repository.Repository, error)

// Gateway lazily starts one store worker and hands out its Handle. The
// typed methods acquire the handle on every call, so the first operation
// starts the worker.
type Gateway struct {
	open   Opener
	logger *slog.Logger

	mu     sync.Mutex
	handle *Handle
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used by the gateway and its worker.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New returns a gateway that opens its store with open on first use.
func New(open Opener, opts ...Option) *Gateway {
	g := &Gateway{open: open, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the ready handle, starting the worker and pinging it if
// no handle is live yet. Concurrent callers share one handle. If the ping
// fails the half-started worker is destroyed and the error returned; the
// next call starts over.
func (g *Gateway) Store(ctx context.Context) (*Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handle != nil && g.handle.State() != StateDestroyed {
		return g.handle, nil
	}
	g.handle = nil

	repo, err := g.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: opening store: %w", err)
	}

	h := newHandle(repo, g.logger)
	if err := h.Ping(ctx); err != nil {
		if derr := h.Destroy(); derr != nil {
			g.logger.Warn("Failed to tear down store worker after ping failure", "error", derr)
		}
		return nil, fmt.Errorf("gateway: store did not answer ping: %w", err)
	}
	h.markReady()
	g.logger.Info("Store worker ready")

	g.handle = h
	return h, nil
}

// Close destroys the live handle, if any.
func (g *Gateway) Close() error {
	g.mu.Lock()
	h := g.handle
	g.handle = nil
	g.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Destroy()
}

func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.Store(ctx)
	return err
}

func (g *Gateway) UpsertConversation(ctx context.Context, conv *model.Conversation) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.UpsertConversation(ctx, conv)
}

func (g *Gateway) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	h, err := g.Store(ctx)
	if err != nil {
		return nil, err
	}
	return h.GetConversation(ctx, id)
}

func (g *Gateway) DeleteConversation(ctx context.Context, id string) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.DeleteConversation(ctx, id)
}

func (g *Gateway) UpsertMessage(ctx context.Context, m model.Message) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.UpsertMessage(ctx, m)
}

func (g *Gateway) UpsertMessages(ctx context.Context, messages []model.Message) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.UpsertMessages(ctx, messages)
}

func (g *Gateway) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	h, err := g.Store(ctx)
	if err != nil {
		return nil, err
	}
	return h.GetMessages(ctx, conversationID)
}

func (g *Gateway) DeleteMessage(ctx context.Context, id string) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.DeleteMessage(ctx, id)
}

func (g *Gateway) DeleteMessages(ctx context.Context, ids []string) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.DeleteMessages(ctx, ids)
}

func (g *Gateway) ClearMessagesForConversation(ctx context.Context, conversationID string) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.ClearMessagesForConversation(ctx, conversationID)
}

func (g *Gateway) ClearAllMessages(ctx context.Context) error {
	h, err := g.Store(ctx)
	if err != nil {
		return err
	}
	return h.ClearAllMessages(ctx)
}
