package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"

	"aria-chat/backend/internal/model"
)

// messageKey orders the secondary index by conversation, then timestamp,
// then id.
type messageKey struct {
	conversationID string
	timestamp      time.Time
	id             string
}

func lessMessageKey(a, b messageKey) bool {
	if a.conversationID != b.conversationID {
		return a.conversationID < b.conversationID
	}
	if !a.timestamp.Equal(b.timestamp) {
		return a.timestamp.Before(b.timestamp)
	}
	return a.id < b.id
}

type storedMessage struct {
	key      messageKey
	document []byte
}

type memoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]model.Conversation
	messages      map[string]storedMessage
	index         *btree.BTreeG[messageKey]
	closed        bool
}

// NewMemoryRepository returns a Repository that keeps everything in process
// memory. Messages are stored as their persisted documents, so what comes
// back out is exactly what a durable store would return.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		conversations: make(map[string]model.Conversation),
		messages:      make(map[string]storedMessage),
		index:         btree.NewG(16, lessMessageKey),
	}
}

// Shared wraps repo so that Close leaves it usable. A process-wide memory
// store outlives the gateway workers that host it, so a worker restart
// must not discard its contents.
func Shared(repo Repository) Repository {
	return sharedRepository{Repository: repo}
}

type sharedRepository struct {
	Repository
}

func (sharedRepository) Close() error { return nil }

func (r *memoryRepository) Ping(_ context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return fmt.Errorf("memory repository is closed")
	}
	return nil
}

func (r *memoryRepository) UpsertConversation(_ context.Context, conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conv.ID] = *conv
	return nil
}

func (r *memoryRepository) GetConversation(_ context.Context, id string) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &conv, nil
}

func (r *memoryRepository) DeleteConversation(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conversations, id)
	r.clearConversationLocked(id)
	return nil
}

func (r *memoryRepository) UpsertMessages(_ context.Context, messages []model.Message) error {
	stored := make([]storedMessage, 0, len(messages))
	for _, m := range messages {
		doc, err := model.EncodeMessage(m)
		if err != nil {
			return fmt.Errorf("could not encode message %s: %w", m.Meta().ID, err)
		}
		meta := m.Meta()
		stored = append(stored, storedMessage{
			key:      messageKey{conversationID: meta.ConversationID, timestamp: meta.Timestamp, id: meta.ID},
			document: doc,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range stored {
		if previous, ok := r.messages[s.key.id]; ok {
			r.index.Delete(previous.key)
		}
		r.messages[s.key.id] = s
		r.index.ReplaceOrInsert(s.key)
	}
	return nil
}

func (r *memoryRepository) GetMessages(_ context.Context, conversationID string) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := []model.Message{}
	var decodeErr error
	r.index.AscendGreaterOrEqual(messageKey{conversationID: conversationID}, func(key messageKey) bool {
		if key.conversationID != conversationID {
			return false
		}
		m, err := model.DecodeMessage(r.messages[key.id].document)
		if err != nil {
			decodeErr = fmt.Errorf("could not decode message %s: %w", key.id, err)
			return false
		}
		messages = append(messages, m)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return messages, nil
}

func (r *memoryRepository) DeleteMessages(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if s, ok := r.messages[id]; ok {
			r.index.Delete(s.key)
			delete(r.messages, id)
		}
	}
	return nil
}

func (r *memoryRepository) ClearMessagesForConversation(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearConversationLocked(conversationID)
	return nil
}

func (r *memoryRepository) ClearAllMessages(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = make(map[string]storedMessage)
	r.index.Clear(false)
	return nil
}

func (r *memoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *memoryRepository) clearConversationLocked(conversationID string) {
	var keys []messageKey
	r.index.AscendGreaterOrEqual(messageKey{conversationID: conversationID}, func(key messageKey) bool {
		if key.conversationID != conversationID {
			return false
		}
		keys = append(keys, key)
		return true
	})
	for _, key := range keys {
		r.index.Delete(key)
		delete(r.messages, key.id)
	}
}
