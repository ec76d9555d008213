// Package session owns the runtime state of open conversations. A
// Controller applies typed mutations through the reducer and persists the
// resulting changes write-behind, through a debounced flush.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	app_errors "aria-chat/backend/internal/errors"
	"aria-chat/backend/internal/ids"
	"aria-chat/backend/internal/model"
	"aria-chat/backend/internal/reducer"
)

// DefaultFlushDelay is the quiet period after the last change before a
// flush runs.
const DefaultFlushDelay = 500 * time.Millisecond

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("session: controller closed")

// Store is the persistence a controller loads from and flushes to.
type Store interface {
	UpsertConversation(ctx context.Context, conv *model.Conversation) error
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	UpsertMessages(ctx context.Context, messages []model.Message) error
	DeleteMessages(ctx context.Context, ids []string) error
}

type options struct {
	clock      clockwork.Clock
	logger     *slog.Logger
	flushDelay time.Duration
	newID      func(prefix string) (string, error)
}

// Option configures a Controller or a Manager.
type Option func(*options)

// WithClock sets the clock used for timestamps and the flush timer.
func WithClock(c clockwork.Clock) Option { return func(o *options) { o.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithFlushDelay sets the debounce delay of the write-behind flush.
func WithFlushDelay(d time.Duration) Option { return func(o *options) { o.flushDelay = d } }

// WithIDGenerator replaces the generator of message, step and action ids.
func WithIDGenerator(fn func(prefix string) (string, error)) Option {
	return func(o *options) { o.newID = fn }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
		flushDelay: DefaultFlushDelay,
		newID:      ids.New,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Controller is the single owner of one conversation's state. All methods
// are safe for concurrent use.
type Controller struct {
	store     Store
	clock     clockwork.Clock
	logger    *slog.Logger
	newID     func(prefix string) (string, error)
	debouncer *Debouncer

	mu     sync.Mutex
	state  reducer.State
	closed bool
}

// New opens a session: it upserts the conversation, loads its persisted
// messages and returns a controller holding them.
func New(ctx context.Context, conv model.Conversation, store Store, opts ...Option) (*Controller, error) {
	o := buildOptions(opts)
	c := &Controller{
		store:  store,
		clock:  o.clock,
		logger: o.logger.With("conversation_id", conv.ID),
		newID:  o.newID,
		state:  reducer.NewState(conv),
	}
	c.debouncer = NewDebouncer(o.clock, o.flushDelay, c.Flush, c.logger)

	if err := store.UpsertConversation(ctx, &conv); err != nil {
		return nil, fmt.Errorf("could not upsert conversation: %w", err)
	}
	messages, err := store.GetMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("could not load messages: %w", err)
	}
	c.dispatch(reducer.LoadMessages{Messages: messages})
	c.logger.Info("Session opened", "messages", len(messages))
	return c, nil
}

// dispatch applies action under the state lock and re-arms the flush timer
// when anything is pending.
func (c *Controller) dispatch(action reducer.Action) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	next, ok := reducer.Apply(c.state, action)
	c.state = next
	pending := next.HasPending()
	c.mu.Unlock()

	c.logger.Debug("Applied action", "action", action.Kind(), "applied", ok)
	if ok && pending {
		c.debouncer.Trigger()
	}
	return ok, nil
}

// apply is dispatch for actions that target an existing message.
func (c *Controller) apply(action reducer.Action, target string) error {
	ok, err := c.dispatch(action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", app_errors.ErrNotFound, target)
	}
	return nil
}

func (c *Controller) id(prefix string) (string, error) {
	id, err := c.newID(prefix)
	if err != nil {
		return "", fmt.Errorf("could not assign an id: %w", err)
	}
	return id, nil
}

func (c *Controller) conversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Conversation.ID
}

// Conversation returns the conversation metadata.
func (c *Controller) Conversation() model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Conversation
}

// Snapshot returns the current state. The reducer never modifies a state
// in place, so the value stays valid after later changes.
func (c *Controller) Snapshot() reducer.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns the conversation's messages in order.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.state.Messages)
}

// GetMessage returns the message offset positions away from the message
// with the given id.
func (c *Controller) GetMessage(id string, offset int) (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.state.MessageIndex(id)
	if i < 0 || i+offset < 0 || i+offset >= len(c.state.Messages) {
		return nil, false
	}
	return c.state.Messages[i+offset], true
}

// FindLastUserMessage returns the closest user message before the message
// with the given id.
func (c *Controller) FindLastUserMessage(id string) (*model.UserMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.state.MessageIndex(id)
	for j := i - 1; j >= 0; j-- {
		if user, ok := c.state.Messages[j].(*model.UserMessage); ok {
			return user, true
		}
	}
	return nil, false
}

// AddUserMessage appends a new user message and returns it.
func (c *Controller) AddUserMessage(content string, selections []model.ContextSelection) (*model.UserMessage, error) {
	id, err := c.id(ids.MessagePrefix)
	if err != nil {
		return nil, err
	}
	m := &model.UserMessage{
		MessageMeta: model.MessageMeta{
			ID:             id,
			ConversationID: c.conversationID(),
			Timestamp:      c.clock.Now(),
		},
		Content:           content,
		ContextSelections: selections,
	}
	if _, err := c.dispatch(reducer.AddUserMessage{Message: m}); err != nil {
		return nil, err
	}
	return m, nil
}

// AddBotMessage appends a new bot message with no steps. stream is the
// live connection the message is produced from and may be nil.
func (c *Controller) AddBotMessage(stream model.StreamHandle) (*model.BotMessage, error) {
	id, err := c.id(ids.MessagePrefix)
	if err != nil {
		return nil, err
	}
	m := &model.BotMessage{
		MessageMeta: model.MessageMeta{
			ID:             id,
			ConversationID: c.conversationID(),
			Timestamp:      c.clock.Now(),
		},
		Steps:  model.Steps{},
		Stream: stream,
	}
	if _, err := c.dispatch(reducer.AddBotMessage{Message: m}); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateUserMessage edits a user message. Every message after it is
// dropped from the conversation and deleted on the next flush.
func (c *Controller) UpdateUserMessage(id string, update reducer.UserMessageUpdate) error {
	return c.apply(reducer.UpdateUserMessage{ID: id, Update: update}, "user message "+id)
}

// AddBotStep appends step to a bot message. The step's id, message id and
// timestamp are assigned here; an empty status becomes IN_PROGRESS.
func (c *Controller) AddBotStep(messageID string, step model.Step) (model.Step, error) {
	if step == nil {
		return nil, fmt.Errorf("%w: step is required", app_errors.ErrValidation)
	}
	id, err := c.id(ids.StepPrefix)
	if err != nil {
		return nil, err
	}
	step = step.Clone()
	b := step.Base()
	b.ID = id
	b.MessageID = messageID
	b.Timestamp = c.clock.Now()
	if b.Status == "" {
		b.Status = model.StatusInProgress
	}
	if err := c.apply(reducer.AddBotStep{MessageID: messageID, Step: step}, "bot message "+messageID); err != nil {
		return nil, err
	}
	return step, nil
}

// UpdateBotStep applies a partial update to a step.
func (c *Controller) UpdateBotStep(messageID, stepID string, update reducer.StepUpdate) error {
	return c.apply(reducer.UpdateBotStep{MessageID: messageID, StepID: stepID, Update: update}, "step "+stepID)
}

// CompleteBotMessageStep parses the streamed text of a message step, marks
// it completed and appends the workflow steps it prescribes.
func (c *Controller) CompleteBotMessageStep(messageID, stepID string) error {
	action := reducer.CompleteBotMessageStep{MessageID: messageID, StepID: stepID, Timestamp: c.clock.Now()}
	return c.apply(action, "message step "+stepID)
}

// AddBotActions appends actions to a message step, assigning ids and
// timestamps. An empty status becomes IN_PROGRESS.
func (c *Controller) AddBotActions(messageID, stepID string, actions ...model.Action) ([]model.Action, error) {
	now := c.clock.Now()
	added := make([]model.Action, len(actions))
	for i, a := range actions {
		id, err := c.id(ids.ActionPrefix)
		if err != nil {
			return nil, err
		}
		a.ID = id
		a.Timestamp = now
		if a.Status == "" {
			a.Status = model.StatusInProgress
		}
		added[i] = a
	}
	if err := c.apply(reducer.AddBotActions{MessageID: messageID, StepID: stepID, Actions: added}, "message step "+stepID); err != nil {
		return nil, err
	}
	return added, nil
}

// UpdateBotAction applies a partial update to one action of a message step.
func (c *Controller) UpdateBotAction(messageID, stepID, actionID string, update model.ActionUpdate) error {
	action := reducer.UpdateBotAction{MessageID: messageID, StepID: stepID, ActionID: actionID, Update: update}
	return c.apply(action, "action "+actionID)
}

// DeleteMessages removes messages from the conversation.
func (c *Controller) DeleteMessages(ids ...string) error {
	return c.apply(reducer.DeleteMessages{IDs: ids}, "messages")
}

// ClearMessages removes every message from the conversation.
func (c *Controller) ClearMessages() error {
	_, err := c.dispatch(reducer.ClearMessages{})
	return err
}

// Flush writes pending changes to the store. Bot messages that are still
// streaming are skipped; they are queued again by their next change. When
// there is nothing to write the pending sets are left alone. Otherwise the
// pending sets are cleared before the writes complete, so a failed write is
// reported but not retried.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	deletes := slices.Clone(c.state.PendingDelete)
	var updates []model.Message
	for _, id := range c.state.EffectiveUpdate() {
		m, ok := c.state.Message(id)
		if !ok {
			c.logger.Debug("Pending message no longer in state", "message_id", id)
			continue
		}
		switch m := m.(type) {
		case *model.UserMessage:
			updates = append(updates, m)
		case *model.BotMessage:
			if m.Settled() {
				updates = append(updates, m.WithoutStream())
			}
		}
	}
	if len(updates) == 0 && len(deletes) == 0 {
		c.mu.Unlock()
		c.logger.Debug("Nothing to flush")
		return nil
	}
	c.state = reducer.Reduce(c.state, reducer.ClearPending{})
	c.mu.Unlock()

	// Both writes always run to completion, so each reports into its own
	// slot and the results are joined.
	var (
		wg                   sync.WaitGroup
		upsertErr, deleteErr error
	)
	if len(updates) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.store.UpsertMessages(ctx, updates); err != nil {
				upsertErr = fmt.Errorf("upserting %d messages: %w", len(updates), err)
			}
		}()
	}
	if len(deletes) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.store.DeleteMessages(ctx, deletes); err != nil {
				deleteErr = fmt.Errorf("deleting %d messages: %w", len(deletes), err)
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(upsertErr, deleteErr); err != nil {
		c.logger.Error("Flush failed", "error", err)
		return err
	}
	c.logger.Debug("Flushed", "upserted", len(updates), "deleted", len(deletes))
	return nil
}

// Close flushes unconditionally and closes the controller. Later calls
// return ErrClosed.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	err := c.debouncer.Stop(ctx)
	c.logger.Info("Session closed")
	return err
}
