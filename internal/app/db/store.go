package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
)

// Store implements every repository on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStore wraps pool. Call EnsureChannels once before serving.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, logger: logx.Component("PostgresStore")}
}

// EnsureChannels inserts the built-in channels that are missing.
func (s *Store) EnsureChannels(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, c := range chat.Channels() {
		batch.Queue(`INSERT INTO chats (id, type) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, string(chat.TypeChannel))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed channels: %w", err)
	}
	return nil
}

// --- users ---

const userColumns = `uid, display_name, email, photo_url`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &u.PhotoURL); err != nil {
		return user.User{}, err
	}
	if err := u.Validate(); err != nil {
		return user.User{}, fmt.Errorf("malformed user row: %w", err)
	}
	return u, nil
}

// GetUser implements user.Repository.
func (s *Store) GetUser(ctx context.Context, uid string) (user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers implements user.Repository.
func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateUserIfAbsent implements user.Repository.
func (s *Store) CreateUserIfAbsent(ctx context.Context, u user.User) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO users (uid, display_name, email, photo_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO NOTHING`,
		u.ID, u.DisplayName, u.Email, u.PhotoURL,
	)
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateUserProfile implements user.Repository.
func (s *Store) UpdateUserProfile(ctx context.Context, uid string, p user.Profile) (user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET display_name = $2, photo_url = $3
		WHERE uid = $1
		RETURNING `+userColumns,
		uid, p.DisplayName, p.PhotoURL,
	))
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
