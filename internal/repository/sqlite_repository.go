package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aria-chat/backend/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a Repository backed by db. The schema is
// created by database.InitDB.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

const (
	upsertConversationQuery = `INSERT INTO conversations (id, title, description, metadata) VALUES (?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET title = excluded.title, description = excluded.description, metadata = excluded.metadata`
	upsertMessageQuery      = `INSERT INTO messages (id, conversation_id, type, timestamp, payload) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET conversation_id = excluded.conversation_id, type = excluded.type, timestamp = excluded.timestamp, payload = excluded.payload`
)

func (r *sqliteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqliteRepository) UpsertConversation(ctx context.Context, conv *model.Conversation) error {
	metadata, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("could not encode conversation metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertConversationQuery, conv.ID, conv.Title, conv.Description, string(metadata))
	if err != nil {
		return fmt.Errorf("could not upsert conversation: %w", err)
	}
	return nil
}

func (r *sqliteRepository) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	query := "SELECT id, title, description, metadata FROM conversations WHERE id = ?"
	row := r.db.QueryRowContext(ctx, query, id)

	var conv model.Conversation
	var metadata sql.NullString
	if err := row.Scan(&conv.ID, &conv.Title, &conv.Description, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &conv.Metadata); err != nil {
			return nil, fmt.Errorf("could not decode conversation metadata: %w", err)
		}
	}
	return &conv, nil
}

func (r *sqliteRepository) DeleteConversation(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("could not delete conversation messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("could not delete conversation: %w", err)
	}
	return tx.Commit()
}

// UpsertMessages writes all messages in one transaction.
func (r *sqliteRepository) UpsertMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertMessageQuery)
	if err != nil {
		return fmt.Errorf("could not prepare message upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range messages {
		payload, err := model.EncodeMessage(m)
		if err != nil {
			return fmt.Errorf("could not encode message %s: %w", m.Meta().ID, err)
		}
		meta := m.Meta()
		if _, err := stmt.ExecContext(ctx, meta.ID, meta.ConversationID, string(m.Type()), meta.Timestamp.UnixNano(), string(payload)); err != nil {
			return fmt.Errorf("could not upsert message %s: %w", meta.ID, err)
		}
	}
	return tx.Commit()
}

func (r *sqliteRepository) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	query := `
		SELECT id, payload
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	messages := []model.Message{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		m, err := model.DecodeMessage([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("could not decode message %s: %w", id, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *sqliteRepository) DeleteMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "DELETE FROM messages WHERE id IN (" + placeholders + ")"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("could not delete messages: %w", err)
	}
	return nil
}

func (r *sqliteRepository) ClearMessagesForConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID)
	return err
}

func (r *sqliteRepository) ClearAllMessages(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM messages")
	return err
}

func (r *sqliteRepository) Close() error {
	return r.db.Close()
}
