package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"relaychat/internal/app/chat"
)

const chatColumns = `id, type, members, created_at`

func scanChat(row pgx.Row) (chat.Chat, error) {
	var (
		c   chat.Chat
		typ string
	)
	if err := row.Scan(&c.ID, &typ, &c.Members, &c.CreatedAt); err != nil {
		return chat.Chat{}, err
	}

	parsed, err := chat.ParseType(typ)
	if err != nil {
		return chat.Chat{}, fmt.Errorf("malformed chat row %s: %w", c.ID, err)
	}
	c.Type = parsed

	if err := c.Validate(); err != nil {
		return chat.Chat{}, fmt.Errorf("malformed chat row: %w", err)
	}
	return c, nil
}

// GetChat implements chat.Repository.
func (s *Store) GetChat(ctx context.Context, id string) (chat.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id))
	if isNoRows(err) {
		return chat.Chat{}, chat.ErrNotFound
	}
	if err != nil {
		return chat.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	return c, nil
}

// CreateChatIfAbsent implements chat.Repository.
func (s *Store) CreateChatIfAbsent(ctx context.Context, c chat.Chat) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	members := c.Members
	if members == nil {
		members = []string{}
	}

	var createdAt *time.Time
	if !c.CreatedAt.IsZero() {
		createdAt = &c.CreatedAt
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO chats (id, type, members, created_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
		ON CONFLICT (id) DO NOTHING`,
		c.ID, string(c.Type), members, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("create chat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListDirectMessages implements chat.Repository.
func (s *Store) ListDirectMessages(ctx context.Context, memberID string) ([]chat.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE type = $1 AND members @> ARRAY[$2::text]
		ORDER BY created_at, id`,
		string(chat.TypeDM), memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list direct messages: %w", err)
	}
	defer rows.Close()

	var chats []chat.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping malformed chat row.")
			continue
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list direct messages: %w", err)
	}
	return chats, nil
}
