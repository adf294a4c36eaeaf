package message

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/live"
	"relaychat/internal/app/moderation"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// ComposerState is the phase of a composer's in-flight submission.
type ComposerState string

const (
	StateIdle       ComposerState = "idle"
	StateModerating ComposerState = "moderating"
	StateSending    ComposerState = "sending"
)

// Composer validates, moderates, and appends new messages. Each composer has at most one
// submission in flight; a second one is refused until the first settles. A viewer bound to a
// session composes on its own; any other viewer composes as its user.
type Composer struct {
	resolver Resolver
	repo     Repository
	gate     moderation.Gate
	pub      live.Publisher
	logger   zerolog.Logger

	mu     sync.Mutex
	states map[string]ComposerState
}

// sessionViewer is a Viewer tied to one signed-in session.
type sessionViewer interface {
	user.Viewer
	SessionID() string
}

// ComposerKey identifies the composer viewer submits through.
func ComposerKey(viewer user.Viewer) string {
	if sv, ok := viewer.(sessionViewer); ok {
		return "session:" + sv.SessionID()
	}
	return "user:" + viewer.CurrentUser().ID
}

// NewComposer creates a Composer. A nil gate disables moderation.
func NewComposer(resolver Resolver, repo Repository, gate moderation.Gate, pub live.Publisher) *Composer {
	return &Composer{
		resolver: resolver,
		repo:     repo,
		gate:     gate,
		pub:      pub,
		logger:   logx.Component("Composer"),
		states:   make(map[string]ComposerState),
	}
}

// State returns the current phase of the composer identified by key (see ComposerKey).
func (c *Composer) State(key string) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.states[key]; ok {
		return s
	}
	return StateIdle
}

func (c *Composer) begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.states[key]; busy {
		return false
	}
	c.states[key] = StateModerating
	return true
}

func (c *Composer) transition(key string, s ComposerState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s == StateIdle {
		delete(c.states, key)
		return
	}
	c.states[key] = s
}

// Submit sends text to chatID as the viewer. Whitespace-only text is refused without a
// write. When a gate is configured the text must be approved first; a failed classification
// refuses the message. The sender name and avatar are copied from the viewer as it is now.
func (c *Composer) Submit(ctx context.Context, viewer user.Viewer, chatID, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, errs.NewError(errs.ErrMessageEmpty)
	}
	if len(text) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	sender := viewer.CurrentUser()
	logger := c.logger.With().Str("uid", sender.ID).Str("chat_id", chatID).Logger()

	key := ComposerKey(viewer)
	if !c.begin(key) {
		return Message{}, errs.NewError(errs.ErrComposerBusy)
	}
	defer c.transition(key, StateIdle)

	if _, err := c.resolver.Resolve(ctx, viewer, chatID); err != nil {
		return Message{}, err
	}

	if err := moderate(ctx, c.gate, text, logger); err != nil {
		return Message{}, err
	}

	c.transition(key, StateSending)

	msg, err := c.repo.AppendMessage(ctx, chatID, draftFrom(sender, text))
	if err != nil {
		return Message{}, errs.Wrap(errs.ErrSendFailed, err)
	}

	if err := c.pub.Publish(ctx, live.MessagesTopic(chatID)); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish new message.")
	}

	logger.Debug().Str("message_id", msg.ID).Msg("Message sent.")
	return msg, nil
}

// moderate runs text through gate. A nil gate approves everything.
func moderate(ctx context.Context, gate moderation.Gate, text string, logger zerolog.Logger) error {
	if gate == nil {
		return nil
	}

	verdict, err := gate.Moderate(ctx, text)
	if err != nil {
		logger.Error().Err(err).Msg("Moderation failed; message refused.")
		return errs.Wrap(errs.ErrModerationUnavailable, err)
	}

	if !verdict.IsAppropriate {
		logger.Info().Str("reason", verdict.Reason).Msg("Message rejected by moderation.")
		return errs.Rejected(verdict.Reason)
	}

	return nil
}
