package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"relaychat/internal/app/live"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Registry lists, opens, and authorizes chats.
type Registry struct {
	chats  Repository
	users  user.Repository
	hub    *live.Hub
	now    func() time.Time
	logger zerolog.Logger
}

// NewRegistry creates a Registry. hub carries the change notes for DM list subscriptions.
func NewRegistry(chats Repository, users user.Repository, hub *live.Hub) *Registry {
	return &Registry{
		chats:  chats,
		users:  users,
		hub:    hub,
		now:    time.Now,
		logger: logx.Component("Registry"),
	}
}

// OpenOrCreateDirectMessage returns the DM between the viewer and targetID, creating it on
// first use. targetID may be the viewer's own uid, which opens the self-DM. The returned
// descriptor is named after the counterpart.
func (r *Registry) OpenOrCreateDirectMessage(ctx context.Context, viewer user.Viewer, targetID string) (Descriptor, error) {
	self := viewer.CurrentUser()

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return Descriptor{}, errs.NewError(errs.ErrInvalidParams)
	}

	name := selfDMName(self)
	if targetID != self.ID {
		target, err := r.users.GetUser(ctx, targetID)
		if errors.Is(err, user.ErrNotFound) {
			return Descriptor{}, errs.NewError(errs.ErrUserNotFound)
		}
		if err != nil {
			return Descriptor{}, errs.Wrap(errs.ErrLoadFailed, err)
		}
		name = target.DisplayName
	}

	id := DirectMessageID(self.ID, targetID)
	descriptor := Descriptor{ID: id, Name: name, Type: TypeDM}

	_, err := r.chats.GetChat(ctx, id)
	if err == nil {
		return descriptor, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Descriptor{}, errs.Wrap(errs.ErrLoadFailed, err)
	}

	members := directMessageMembers(self.ID, targetID)
	created, err := r.chats.CreateChatIfAbsent(ctx, Chat{
		ID:        id,
		Type:      TypeDM,
		Members:   members,
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return Descriptor{}, errs.Wrap(errs.ErrUnknown, err)
	}

	if created {
		r.logger.Info().Str("chat_id", id).Strs("members", members).Msg("Direct message created.")

		topics := lo.Map(members, func(m string, _ int) string { return live.ChatsTopic(m) })
		if err := r.hub.Publish(ctx, topics...); err != nil {
			r.logger.Warn().Err(err).Str("chat_id", id).Msg("Failed to publish chat creation.")
		}
	}

	return descriptor, nil
}

// ListDirectMessages returns the viewer's DMs, each named after its counterpart.
// DMs whose counterpart has no user record are left out.
func (r *Registry) ListDirectMessages(ctx context.Context, viewer user.Viewer) ([]Descriptor, error) {
	self := viewer.CurrentUser()

	chats, err := r.chats.ListDirectMessages(ctx, self.ID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrLoadFailed, err)
	}

	descriptors := make([]Descriptor, 0, len(chats))
	for _, c := range chats {
		other := c.Counterpart(self.ID)
		if other == "" {
			descriptors = append(descriptors, Descriptor{ID: c.ID, Name: selfDMName(self), Type: TypeDM})
			continue
		}

		counterpart, err := r.users.GetUser(ctx, other)
		if errors.Is(err, user.ErrNotFound) {
			r.logger.Debug().Str("chat_id", c.ID).Str("uid", other).Msg("Skipping DM with unknown counterpart.")
			continue
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrLoadFailed, err)
		}

		descriptors = append(descriptors, Descriptor{ID: c.ID, Name: counterpart.DisplayName, Type: TypeDM})
	}

	return descriptors, nil
}

// WatchDirectMessages keeps the viewer's DM list live. A new snapshot is produced whenever
// a DM including the viewer is created or any user profile changes.
func (r *Registry) WatchDirectMessages(ctx context.Context, viewer user.Viewer) *live.Subscription[[]Descriptor] {
	self := viewer.CurrentUser()
	topics := []string{live.ChatsTopic(self.ID), live.TopicUsers}

	return live.Watch(ctx, r.hub, topics, func(ctx context.Context) ([]Descriptor, error) {
		return r.ListDirectMessages(ctx, viewer)
	})
}

// Resolve returns the chat chatID if the viewer may read and write it.
func (r *Registry) Resolve(ctx context.Context, viewer user.Viewer, chatID string) (Chat, error) {
	if IsChannel(chatID) {
		return Chat{ID: chatID, Type: TypeChannel}, nil
	}

	c, err := r.chats.GetChat(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return Chat{}, errs.NewError(errs.ErrChatNotFound)
	}
	if err != nil {
		return Chat{}, errs.Wrap(errs.ErrLoadFailed, err)
	}

	if !c.HasMember(viewer.CurrentUser().ID) {
		return Chat{}, errs.NewError(errs.ErrChatForbidden)
	}

	return c, nil
}

func selfDMName(self user.User) string {
	if strings.TrimSpace(self.DisplayName) == "" {
		return SelfDMFallbackName
	}
	return self.DisplayName
}
