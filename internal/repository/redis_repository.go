package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aria-chat/backend/internal/model"
)

type redisRepository struct {
	rdb *redis.Client
}

// NewRedisRepository returns a Repository backed by a Redis server.
//
// Layout: conversation:{id} holds the conversation document,
// message:{id} is a hash of the owning conversation and the message
// document, conversation:{id}:messages is a sorted set of message ids
// scored by timestamp and messages:all indexes every stored message id.
func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisRepository{rdb: rdb}
}

const allMessagesKey = "messages:all"

func (r *redisRepository) conversationKey(id string) string { return fmt.Sprintf("conversation:%s", id) }
func (r *redisRepository) messagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}
func (r *redisRepository) messageKey(id string) string { return fmt.Sprintf("message:%s", id) }

func (r *redisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// --- Conversation Operations ---

func (r *redisRepository) UpsertConversation(ctx context.Context, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("could not encode conversation: %w", err)
	}
	return r.rdb.Set(ctx, r.conversationKey(conv.ID), data, 0).Err()
}

func (r *redisRepository) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	data, err := r.rdb.Get(ctx, r.conversationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("could not decode conversation: %w", err)
	}
	return &conv, nil
}

func (r *redisRepository) DeleteConversation(ctx context.Context, id string) error {
	if err := r.ClearMessagesForConversation(ctx, id); err != nil {
		return err
	}
	return r.rdb.Del(ctx, r.conversationKey(id)).Err()
}

// --- Message Operations ---

func (r *redisRepository) UpsertMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	pipe := r.rdb.TxPipeline()
	for _, m := range messages {
		payload, err := model.EncodeMessage(m)
		if err != nil {
			return fmt.Errorf("could not encode message %s: %w", m.Meta().ID, err)
		}
		meta := m.Meta()
		pipe.HSet(ctx, r.messageKey(meta.ID), "conversation_id", meta.ConversationID, "payload", payload)
		pipe.ZAdd(ctx, r.messagesKey(meta.ConversationID), redis.Z{Score: float64(meta.Timestamp.UnixMilli()), Member: meta.ID})
		pipe.SAdd(ctx, allMessagesKey, meta.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	ids, err := r.rdb.ZRange(ctx, r.messagesKey(conversationID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.Message{}, nil
		}
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Message{}, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, r.messageKey(id), "payload")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	messages := make([]model.Message, 0, len(ids))
	for i, cmd := range cmds {
		payload, err := cmd.Bytes()
		if err != nil {
			// The index can briefly outlive a message hash; skip it.
			continue
		}
		m, err := model.DecodeMessage(payload)
		if err != nil {
			return nil, fmt.Errorf("could not decode message %s: %w", ids[i], err)
		}
		messages = append(messages, m)
	}
	// Scores have millisecond precision; restore the exact order.
	sortMessages(messages)
	return messages, nil
}

func (r *redisRepository) DeleteMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	owners, err := r.owners(ctx, ids)
	if err != nil {
		return err
	}
	return r.removeMessages(ctx, ids, owners)
}

func (r *redisRepository) ClearMessagesForConversation(ctx context.Context, conversationID string) error {
	ids, err := r.rdb.ZRange(ctx, r.messagesKey(conversationID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("could not get message IDs for deletion: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		members := make([]any, len(ids))
		for i, id := range ids {
			keys[i] = r.messageKey(id)
			members[i] = id
		}
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, allMessagesKey, members...)
	}
	pipe.Del(ctx, r.messagesKey(conversationID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute message deletion pipeline: %w", err)
	}
	return nil
}

func (r *redisRepository) ClearAllMessages(ctx context.Context) error {
	ids, err := r.rdb.SMembers(ctx, allMessagesKey).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	owners, err := r.owners(ctx, ids)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	seen := make(map[string]bool)
	for _, conversationID := range owners {
		if conversationID != "" && !seen[conversationID] {
			seen[conversationID] = true
			pipe.Del(ctx, r.messagesKey(conversationID))
		}
	}
	for _, id := range ids {
		pipe.Del(ctx, r.messageKey(id))
	}
	pipe.Del(ctx, allMessagesKey)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) Close() error {
	return r.rdb.Close()
}

// owners returns the conversation id of each message, or "" when the
// message does not exist.
func (r *redisRepository) owners(ctx context.Context, ids []string) ([]string, error) {
	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, r.messageKey(id), "conversation_id")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	owners := make([]string, len(ids))
	for i, cmd := range cmds {
		owners[i] = cmd.Val()
	}
	return owners, nil
}

func (r *redisRepository) removeMessages(ctx context.Context, ids, owners []string) error {
	pipe := r.rdb.TxPipeline()
	for i, id := range ids {
		if owners[i] == "" {
			continue
		}
		pipe.Del(ctx, r.messageKey(id))
		pipe.ZRem(ctx, r.messagesKey(owners[i]), id)
		pipe.SRem(ctx, allMessagesKey, id)
	}
	_, err := pipe.Exec(ctx)
	return err
}
