package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"relaychat/internal/app/identity"
)

const accountColumns = `user_id, email, display_name, photo_url, password_hash, created_at`

func scanAccount(row pgx.Row) (identity.Account, error) {
	var a identity.Account
	err := row.Scan(&a.UserID, &a.Email, &a.DisplayName, &a.PhotoURL, &a.PasswordHash, &a.CreatedAt)
	return a, err
}

// CreateAccount implements identity.AccountRepository.
func (s *Store) CreateAccount(ctx context.Context, a identity.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.UserID, a.Email, a.DisplayName, a.PhotoURL, a.PasswordHash, a.CreatedAt,
	)
	if IsUniqueViolation(err) {
		return identity.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount implements identity.AccountRepository.
func (s *Store) GetAccount(ctx context.Context, uid string) (identity.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, uid))
	if isNoRows(err) {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	if err != nil {
		return identity.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// GetAccountByEmail implements identity.AccountRepository.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (identity.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if isNoRows(err) {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	if err != nil {
		return identity.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// UpdateAccountProfile implements identity.AccountRepository.
func (s *Store) UpdateAccountProfile(ctx context.Context, uid, displayName, photoURL string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET display_name = $2, photo_url = $3 WHERE user_id = $1`,
		uid, displayName, photoURL,
	)
	if err != nil {
		return fmt.Errorf("update account profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}

// SaveResetToken implements identity.AccountRepository.
func (s *Store) SaveResetToken(ctx context.Context, r identity.PasswordReset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at`,
		r.TokenHash, r.UserID, r.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// RedeemResetToken implements identity.AccountRepository. The token is deleted and the password
// written in one transaction. Expired tokens found on the way are removed.
func (s *Store) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	var (
		uid     string
		expired bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var expiresAt time.Time
		err := tx.QueryRow(ctx, `
			DELETE FROM password_resets WHERE token_hash = $1
			RETURNING user_id, expires_at`,
			tokenHash,
		).Scan(&uid, &expiresAt)
		if isNoRows(err) {
			return identity.ErrResetNotFound
		}
		if err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}

		if !now.Before(expiresAt) {
			expired = true
			return nil
		}

		tag, err := tx.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE user_id = $1`, uid, passwordHash)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return identity.ErrAccountNotFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= $1`, now); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to prune expired reset tokens.")
	}

	if expired {
		return "", identity.ErrResetNotFound
	}
	return uid, nil
}
