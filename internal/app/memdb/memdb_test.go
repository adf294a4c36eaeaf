package memdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
)

func TestNew_SeedsChannels(t *testing.T) {
	s := New()

	c, err := s.GetChat(context.Background(), chat.GeneralChannelID)
	require.NoError(t, err)
	require.Equal(t, chat.TypeChannel, c.Type)

	_, err = s.GetChat(context.Background(), "missing")
	require.ErrorIs(t, err, chat.ErrNotFound)
}

func TestMessages_OrderedByServerTime(t *testing.T) {
	fixed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		m, err := s.AppendMessage(ctx, chat.GeneralChannelID, message.Draft{Text: text, SenderID: "u1", SenderName: "U"})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	msgs, err := s.ListMessages(ctx, chat.GeneralChannelID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		require.Equal(t, ids[i], m.ID)
		if i > 0 {
			require.True(t, m.CreatedAt.After(msgs[i-1].CreatedAt))
		}
	}

	_, err = s.AppendMessage(ctx, "nowhere", message.Draft{Text: "x"})
	require.ErrorIs(t, err, chat.ErrNotFound)

	empty, err := s.ListMessages(ctx, "nowhere")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestMessages_UpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	m, err := s.AppendMessage(ctx, chat.GeneralChannelID, message.Draft{Text: "helo", SenderID: "u1"})
	require.NoError(t, err)

	editedAt := time.Now()
	updated, err := s.UpdateMessageText(ctx, chat.GeneralChannelID, m.ID, "hello", editedAt)
	require.NoError(t, err)
	require.Equal(t, "hello", updated.Text)
	require.Equal(t, m.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.EditedAt)

	require.NoError(t, s.DeleteMessage(ctx, chat.GeneralChannelID, m.ID))
	require.ErrorIs(t, s.DeleteMessage(ctx, chat.GeneralChannelID, m.ID), message.ErrNotFound)

	_, err = s.UpdateMessageText(ctx, chat.GeneralChannelID, m.ID, "x", editedAt)
	require.ErrorIs(t, err, message.ErrNotFound)
}

func TestChats_MembersAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	members := []string{"alice", "bob"}
	created, err := s.CreateChatIfAbsent(ctx, chat.Chat{ID: chat.DirectMessageID("alice", "bob"), Type: chat.TypeDM, Members: members})
	require.NoError(t, err)
	require.True(t, created)

	members[0] = "mallory"

	c, err := s.GetChat(ctx, "bob_alice")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, c.Members)

	again, err := s.CreateChatIfAbsent(ctx, chat.Chat{ID: "bob_alice", Type: chat.TypeDM, Members: []string{"alice", "bob"}})
	require.NoError(t, err)
	require.False(t, again)

	dms, err := s.ListDirectMessages(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, dms, 1)

	_, err = s.CreateChatIfAbsent(ctx, chat.Chat{ID: "bad", Type: chat.TypeDM, Members: []string{"a", "b"}})
	require.Error(t, err)
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateUserIfAbsent(ctx, user.User{ID: "u1", DisplayName: "Alice"})
	require.NoError(t, err)
	require.True(t, created)

	_, err = s.UpdateUserProfile(ctx, "missing", user.Profile{DisplayName: "X"})
	require.ErrorIs(t, err, user.ErrNotFound)

	u, err := s.UpdateUserProfile(ctx, "u1", user.Profile{DisplayName: "Alicia"})
	require.NoError(t, err)
	require.Equal(t, "Alicia", u.DisplayName)
}

func TestAccounts_ResetTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateAccount(ctx, identity.Account{UserID: "u1", Email: "a@example.com"}))
	require.ErrorIs(t, s.CreateAccount(ctx, identity.Account{UserID: "u2", Email: "a@example.com"}), identity.ErrEmailTaken)

	require.NoError(t, s.SaveResetToken(ctx, identity.PasswordReset{TokenHash: "h1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.SaveResetToken(ctx, identity.PasswordReset{TokenHash: "h2", UserID: "u1", ExpiresAt: now.Add(-time.Second)}))

	uid, err := s.RedeemResetToken(ctx, "h1", "new-hash", now)
	require.NoError(t, err)
	require.Equal(t, "u1", uid)

	a, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new-hash", a.PasswordHash)

	_, err = s.RedeemResetToken(ctx, "h1", "other-hash", now)
	require.ErrorIs(t, err, identity.ErrResetNotFound)

	_, err = s.RedeemResetToken(ctx, "h2", "other-hash", now)
	require.ErrorIs(t, err, identity.ErrResetNotFound)

	a, err = s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "new-hash", a.PasswordHash)
}

func TestAccounts_RedeemKeepsTokenWhenPasswordWriteFails(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveResetToken(ctx, identity.PasswordReset{TokenHash: "h1", UserID: "late", ExpiresAt: now.Add(time.Hour)}))

	_, err := s.RedeemResetToken(ctx, "h1", "new-hash", now)
	require.ErrorIs(t, err, identity.ErrAccountNotFound)

	require.NoError(t, s.CreateAccount(ctx, identity.Account{UserID: "late", Email: "late@example.com", PasswordHash: "old-hash"}))

	uid, err := s.RedeemResetToken(ctx, "h1", "new-hash", now)
	require.NoError(t, err)
	require.Equal(t, "late", uid)
}
