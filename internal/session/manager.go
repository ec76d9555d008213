package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	app_errors "aria-chat/backend/internal/errors"
	"aria-chat/backend/internal/model"
)

// Manager keeps at most one Controller per conversation id.
type Manager struct {
	store  Store
	opts   []Option
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Controller
	// closing holds a channel per conversation whose controller is still
	// flushing on its way out. The channel is closed once Close returns.
	closing map[string]chan struct{}
}

// NewManager returns a manager whose controllers use store and opts.
func NewManager(store Store, opts ...Option) *Manager {
	return &Manager{
		store:    store,
		opts:     opts,
		logger:   buildOptions(opts).logger,
		sessions: make(map[string]*Controller),
		closing:  make(map[string]chan struct{}),
	}
}

// Open returns the controller of conv, opening a session if none is live.
// The lock is held while the session loads so that concurrent callers for
// the same conversation share one controller. A conversation that is still
// being closed is only reopened after its final flush has landed.
func (m *Manager) Open(ctx context.Context, conv model.Conversation) (*Controller, error) {
	m.mu.Lock()
	for {
		done, ok := m.closing[conv.ID]
		if !ok {
			break
		}
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
	}
	defer m.mu.Unlock()

	if c, ok := m.sessions[conv.ID]; ok {
		return c, nil
	}
	c, err := New(ctx, conv, m.store, m.opts...)
	if err != nil {
		return nil, err
	}
	m.sessions[conv.ID] = c
	return c, nil
}

// Get returns the live controller of a conversation.
func (m *Manager) Get(conversationID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: no open session for conversation %s", app_errors.ErrNotFound, conversationID)
	}
	return c, nil
}

// CloseSession flushes and closes one conversation's controller.
func (m *Manager) CloseSession(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	c, ok := m.sessions[conversationID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: no open session for conversation %s", app_errors.ErrNotFound, conversationID)
	}
	done := m.markClosing(conversationID)
	m.mu.Unlock()

	defer m.closed(conversationID, done)
	return c.Close(ctx)
}

// Close flushes and closes every live controller.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	marks := make(map[string]chan struct{}, len(sessions))
	for id := range sessions {
		marks[id] = m.markClosing(id)
	}
	m.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for id, c := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.closed(id, marks[id])
			if err := c.Close(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("closing session %s: %w", id, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	m.logger.Info("Closed all sessions", "count", len(sessions))
	return errors.Join(errs...)
}

// markClosing moves a live session into the closing set. m.mu must be held.
func (m *Manager) markClosing(id string) chan struct{} {
	done := make(chan struct{})
	delete(m.sessions, id)
	m.closing[id] = done
	return done
}

func (m *Manager) closed(id string, done chan struct{}) {
	m.mu.Lock()
	if m.closing[id] == done {
		delete(m.closing, id)
	}
	m.mu.Unlock()
	close(done)
}
