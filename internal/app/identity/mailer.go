package identity

import (
	"context"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes reset links to the log instead of sending mail.
// It is meant for development and self-hosted setups without an SMTP relay.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{logger: logx.Component("LogMailer")}
}

// SendPasswordReset implements Mailer.
func (m *LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.logger.Info().Str("email", email).Str("link", link).Msg("Password reset requested.")
	return nil
}
