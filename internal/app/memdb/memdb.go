/*
Package memdb is an in-memory implementation of every repository, for single-process
deployments and tests. Data lives for the life of the process.
*/
package memdb

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/randx"
)

// Store holds all records behind one lock.
type Store struct {
	mu sync.RWMutex

	now      func() time.Time
	lastTime time.Time

	users    map[string]user.User
	chats    map[string]chat.Chat
	messages map[string][]message.Message

	accounts       map[string]identity.Account
	accountByEmail map[string]string
	resets         map[string]identity.PasswordReset
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store seeded with the built-in channels.
func New(opts ...Option) *Store {
	s := &Store{
		now:            time.Now,
		users:          make(map[string]user.User),
		chats:          make(map[string]chat.Chat),
		messages:       make(map[string][]message.Message),
		accounts:       make(map[string]identity.Account),
		accountByEmail: make(map[string]string),
		resets:         make(map[string]identity.PasswordReset),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, c := range chat.Channels() {
		s.chats[c.ID] = chat.Chat{ID: c.ID, Type: chat.TypeChannel, CreatedAt: s.now().UTC()}
	}

	return s
}

// stampLocked returns a server timestamp strictly later than every previous one.
func (s *Store) stampLocked() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

// --- users ---

// GetUser implements user.Repository.
func (s *Store) GetUser(_ context.Context, uid string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[uid]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// ListUsers implements user.Repository.
func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateUserIfAbsent implements user.Repository.
func (s *Store) CreateUserIfAbsent(_ context.Context, u user.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return false, nil
	}
	s.users[u.ID] = u
	return true, nil
}

// UpdateUserProfile implements user.Repository.
func (s *Store) UpdateUserProfile(_ context.Context, uid string, p user.Profile) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u.DisplayName = p.DisplayName
	u.PhotoURL = p.PhotoURL
	s.users[uid] = u
	return u, nil
}

// --- chats ---

// GetChat implements chat.Repository.
func (s *Store) GetChat(_ context.Context, id string) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[id]
	if !ok {
		return chat.Chat{}, chat.ErrNotFound
	}
	c.Members = slices.Clone(c.Members)
	return c, nil
}

// CreateChatIfAbsent implements chat.Repository.
func (s *Store) CreateChatIfAbsent(_ context.Context, c chat.Chat) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[c.ID]; ok {
		return false, nil
	}
	c.Members = slices.Clone(c.Members)
	s.chats[c.ID] = c
	return true, nil
}

// ListDirectMessages implements chat.Repository.
func (s *Store) ListDirectMessages(_ context.Context, memberID string) ([]chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Chat
	for _, c := range s.chats {
		if c.Type == chat.TypeDM && slices.Contains(c.Members, memberID) {
			c.Members = slices.Clone(c.Members)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- messages ---

// AppendMessage implements message.Repository.
func (s *Store) AppendMessage(_ context.Context, chatID string, d message.Draft) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return message.Message{}, chat.ErrNotFound
	}

	m := message.Message{
		ID:             randx.MessageID(),
		ChatID:         chatID,
		Text:           d.Text,
		SenderID:       d.SenderID,
		SenderName:     d.SenderName,
		SenderPhotoURL: d.SenderPhotoURL,
		CreatedAt:      s.stampLocked(),
	}
	s.messages[chatID] = append(s.messages[chatID], m)
	return m, nil
}

// ListMessages implements message.Repository.
func (s *Store) ListMessages(_ context.Context, chatID string) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.messages[chatID])
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		out = []message.Message{}
	}
	return out, nil
}

func (s *Store) indexLocked(chatID, id string) int {
	return slices.IndexFunc(s.messages[chatID], func(m message.Message) bool { return m.ID == id })
}

// GetMessage implements message.Repository.
func (s *Store) GetMessage(_ context.Context, chatID, id string) (message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(chatID, id)
	if i < 0 {
		return message.Message{}, message.ErrNotFound
	}
	return s.messages[chatID][i], nil
}

// UpdateMessageText implements message.Repository.
func (s *Store) UpdateMessageText(_ context.Context, chatID, id, text string, editedAt time.Time) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(chatID, id)
	if i < 0 {
		return message.Message{}, message.ErrNotFound
	}

	m := s.messages[chatID][i]
	m.Text = text
	edited := editedAt.UTC()
	m.EditedAt = &edited
	s.messages[chatID][i] = m
	return m, nil
}

// DeleteMessage implements message.Repository.
func (s *Store) DeleteMessage(_ context.Context, chatID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(chatID, id)
	if i < 0 {
		return message.ErrNotFound
	}
	s.messages[chatID] = slices.Delete(s.messages[chatID], i, i+1)
	return nil
}

// --- accounts ---

// CreateAccount implements identity.AccountRepository.
func (s *Store) CreateAccount(_ context.Context, a identity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accountByEmail[a.Email]; ok {
		return identity.ErrEmailTaken
	}
	s.accounts[a.UserID] = a
	s.accountByEmail[a.Email] = a.UserID
	return nil
}

// GetAccount implements identity.AccountRepository.
func (s *Store) GetAccount(_ context.Context, uid string) (identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[uid]
	if !ok {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	return a, nil
}

// GetAccountByEmail implements identity.AccountRepository.
func (s *Store) GetAccountByEmail(_ context.Context, email string) (identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uid, ok := s.accountByEmail[email]
	if !ok {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	return s.accounts[uid], nil
}

// UpdateAccountProfile implements identity.AccountRepository.
func (s *Store) UpdateAccountProfile(_ context.Context, uid, displayName, photoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[uid]
	if !ok {
		return identity.ErrAccountNotFound
	}
	a.DisplayName = displayName
	a.PhotoURL = photoURL
	s.accounts[uid] = a
	return nil
}

// SaveResetToken implements identity.AccountRepository.
func (s *Store) SaveResetToken(_ context.Context, r identity.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resets[r.TokenHash] = r
	return nil
}

// RedeemResetToken implements identity.AccountRepository.
func (s *Store) RedeemResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resets[tokenHash]
	if !ok {
		return "", identity.ErrResetNotFound
	}
	if !now.Before(r.ExpiresAt) {
		delete(s.resets, tokenHash)
		return "", identity.ErrResetNotFound
	}

	a, ok := s.accounts[r.UserID]
	if !ok {
		return "", identity.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	s.accounts[r.UserID] = a
	delete(s.resets, tokenHash)
	return r.UserID, nil
}
