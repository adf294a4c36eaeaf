package message

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/app/live"
	"relaychat/internal/app/moderation"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Editor changes or removes existing messages. Only a message's author may do either.
type Editor struct {
	resolver Resolver
	repo     Repository
	gate     moderation.Gate
	pub      live.Publisher
	now      func() time.Time
	logger   zerolog.Logger
}

// NewEditor creates an Editor. Edited text goes through gate like a new message; a nil gate disables that.
func NewEditor(resolver Resolver, repo Repository, gate moderation.Gate, pub live.Publisher) *Editor {
	return &Editor{
		resolver: resolver,
		repo:     repo,
		gate:     gate,
		pub:      pub,
		now:      time.Now,
		logger:   logx.Component("Editor"),
	}
}

// Edit replaces the text of messageID. Only text and the edit time change.
func (e *Editor) Edit(ctx context.Context, viewer user.Viewer, chatID, messageID, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, errs.NewError(errs.ErrMessageEmpty)
	}
	if len(text) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	logger := e.logger.With().
		Str("uid", viewer.CurrentUser().ID).
		Str("chat_id", chatID).
		Str("message_id", messageID).
		Logger()

	if _, err := e.authorize(ctx, viewer, chatID, messageID, errs.ErrUpdateFailed); err != nil {
		return Message{}, err
	}

	if err := moderate(ctx, e.gate, text, logger); err != nil {
		return Message{}, err
	}

	updated, err := e.repo.UpdateMessageText(ctx, chatID, messageID, text, e.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return Message{}, errs.NewError(errs.ErrMessageNotFound)
	}
	if err != nil {
		return Message{}, errs.Wrap(errs.ErrUpdateFailed, err)
	}

	e.announce(ctx, chatID, logger)
	logger.Debug().Msg("Message edited.")
	return updated, nil
}

// Delete removes messageID.
func (e *Editor) Delete(ctx context.Context, viewer user.Viewer, chatID, messageID string) error {
	logger := e.logger.With().
		Str("uid", viewer.CurrentUser().ID).
		Str("chat_id", chatID).
		Str("message_id", messageID).
		Logger()

	if _, err := e.authorize(ctx, viewer, chatID, messageID, errs.ErrDeleteFailed); err != nil {
		return err
	}

	err := e.repo.DeleteMessage(ctx, chatID, messageID)
	if errors.Is(err, ErrNotFound) {
		return errs.NewError(errs.ErrMessageNotFound)
	}
	if err != nil {
		return errs.Wrap(errs.ErrDeleteFailed, err)
	}

	e.announce(ctx, chatID, logger)
	logger.Debug().Msg("Message deleted.")
	return nil
}

// authorize loads the message and checks that the viewer can reach the chat and wrote the message.
func (e *Editor) authorize(ctx context.Context, viewer user.Viewer, chatID, messageID string, failCode int) (Message, error) {
	if strings.TrimSpace(messageID) == "" {
		return Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	if _, err := e.resolver.Resolve(ctx, viewer, chatID); err != nil {
		return Message{}, err
	}

	msg, err := e.repo.GetMessage(ctx, chatID, messageID)
	if errors.Is(err, ErrNotFound) {
		return Message{}, errs.NewError(errs.ErrMessageNotFound)
	}
	if err != nil {
		return Message{}, errs.Wrap(failCode, err)
	}

	if msg.SenderID != viewer.CurrentUser().ID {
		return Message{}, errs.NewError(errs.ErrMessageNotOwned)
	}

	return msg, nil
}

func (e *Editor) announce(ctx context.Context, chatID string, logger zerolog.Logger) {
	if err := e.pub.Publish(ctx, live.MessagesTopic(chatID)); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish message change.")
	}
}
