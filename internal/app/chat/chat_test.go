package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectMessageID(t *testing.T) {
	req := require.New(t)

	req.Equal("bob_alice", DirectMessageID("alice", "bob"))
	req.Equal(DirectMessageID("alice", "bob"), DirectMessageID("bob", "alice"))
	req.Equal(DirectMessageID("x", "y"), DirectMessageID("x", "y"))
	req.Equal("alice_alice", DirectMessageID("alice", "alice"))

	for _, other := range []string{"bob", "aaa", "zzz", "alice2"} {
		req.NotEqual(DirectMessageID("alice", "alice"), DirectMessageID("alice", other))
	}
}

func TestChannels(t *testing.T) {
	require.Equal(t, []Descriptor{{ID: "general", Name: "General", Type: TypeChannel}}, Channels())
	require.True(t, IsChannel("general"))
	require.False(t, IsChannel("bob_alice"))
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("dm")
	require.NoError(t, err)
	require.Equal(t, TypeDM, typ)

	_, err = ParseType("group")
	require.Error(t, err)
}

func TestChatValidate(t *testing.T) {
	tests := []struct {
		name    string
		chat    Chat
		wantErr bool
	}{
		{name: "channel", chat: Chat{ID: "general", Type: TypeChannel}},
		{name: "two party dm", chat: Chat{ID: "bob_alice", Type: TypeDM, Members: []string{"alice", "bob"}}},
		{name: "self dm", chat: Chat{ID: "alice_alice", Type: TypeDM, Members: []string{"alice"}}},
		{name: "unknown type", chat: Chat{ID: "x", Type: "group"}, wantErr: true},
		{name: "dm without members", chat: Chat{ID: "x", Type: TypeDM}, wantErr: true},
		{name: "dm with three members", chat: Chat{ID: "x", Type: TypeDM, Members: []string{"a", "b", "c"}}, wantErr: true},
		{name: "dm id mismatch", chat: Chat{ID: "alice_bob", Type: TypeDM, Members: []string{"alice", "bob"}}, wantErr: true},
		{name: "empty id", chat: Chat{Type: TypeChannel}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chat.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestChatMembership(t *testing.T) {
	dm := Chat{ID: "bob_alice", Type: TypeDM, Members: []string{"alice", "bob"}}

	require.True(t, dm.HasMember("alice"))
	require.False(t, dm.HasMember("carol"))
	require.Equal(t, "bob", dm.Counterpart("alice"))

	self := Chat{ID: "alice_alice", Type: TypeDM, Members: []string{"alice"}}
	require.Equal(t, "", self.Counterpart("alice"))

	require.True(t, Chat{ID: "general", Type: TypeChannel}.HasMember("anyone"))
}
