package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/message"
)

const messageColumns = `id::text, chat_id, text, uid, display_name, photo_url, created_at, edited_at`

func scanMessage(row pgx.Row) (message.Message, error) {
	var m message.Message
	if err := row.Scan(
		&m.ID, &m.ChatID, &m.Text, &m.SenderID, &m.SenderName, &m.SenderPhotoURL,
		&m.CreatedAt, &m.EditedAt,
	); err != nil {
		return message.Message{}, err
	}
	if err := m.Validate(); err != nil {
		return message.Message{}, fmt.Errorf("malformed message row: %w", err)
	}
	return m, nil
}

// AppendMessage implements message.Repository. The database assigns id and creation time.
func (s *Store) AppendMessage(ctx context.Context, chatID string, d message.Draft) (message.Message, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx, `
		INSERT INTO messages (chat_id, text, uid, display_name, photo_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		chatID, d.Text, d.SenderID, d.SenderName, d.SenderPhotoURL,
	))
	if IsForeignKeyViolation(err) {
		return message.Message{}, chat.ErrNotFound
	}
	if err != nil {
		return message.Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// ListMessages implements message.Repository.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at, id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]message.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// GetMessage implements message.Repository.
func (s *Store) GetMessage(ctx context.Context, chatID, id string) (message.Message, error) {
	if uuid.Validate(id) != nil {
		return message.Message{}, message.ErrNotFound
	}

	m, err := scanMessage(s.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 AND id = $2`,
		chatID, id,
	))
	if isNoRows(err) {
		return message.Message{}, message.ErrNotFound
	}
	if err != nil {
		return message.Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// UpdateMessageText implements message.Repository.
func (s *Store) UpdateMessageText(ctx context.Context, chatID, id, text string, editedAt time.Time) (message.Message, error) {
	if uuid.Validate(id) != nil {
		return message.Message{}, message.ErrNotFound
	}

	m, err := scanMessage(s.pool.QueryRow(ctx, `
		UPDATE messages SET text = $3, edited_at = $4
		WHERE chat_id = $1 AND id = $2
		RETURNING `+messageColumns,
		chatID, id, text, editedAt,
	))
	if isNoRows(err) {
		return message.Message{}, message.ErrNotFound
	}
	if err != nil {
		return message.Message{}, fmt.Errorf("update message: %w", err)
	}
	return m, nil
}

// DeleteMessage implements message.Repository.
func (s *Store) DeleteMessage(ctx context.Context, chatID, id string) error {
	if uuid.Validate(id) != nil {
		return message.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1 AND id = $2`, chatID, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return message.ErrNotFound
	}
	return nil
}
