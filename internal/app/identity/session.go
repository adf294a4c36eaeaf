package identity

import (
	"context"
	"sync"
	"time"

	"relaychat/internal/app/user"
)

// Session is one signed-in identity. It replaces any process-wide notion of a
// "current user": everything that acts on behalf of a user receives its Session.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time

	mu      sync.RWMutex
	user    user.User
	changed chan struct{}

	done    chan struct{}
	endOnce sync.Once
}

func newSession(id string, u user.User, token string, expiresAt time.Time) *Session {
	return &Session{
		ID:        id,
		Token:     token,
		ExpiresAt: expiresAt,
		user:      u,
		changed:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SessionID returns the session id.
func (s *Session) SessionID() string {
	return s.ID
}

// CurrentUser returns the session's user as of now.
func (s *Session) CurrentUser() user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Changed returns a channel that is closed the next time the user value changes.
// Call it again after it fires to wait for the following change.
func (s *Session) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Done is closed when the session ends by sign-out, password reset, or expiry.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Active reports whether the session has neither ended nor expired at now.
func (s *Session) Active(now time.Time) bool {
	select {
	case <-s.done:
		return false
	default:
		return now.Before(s.ExpiresAt)
	}
}

func (s *Session) setUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = u
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) end() {
	s.endOnce.Do(func() { close(s.done) })
}

// Sessions is the single owner of live sessions.
type Sessions struct {
	mu     sync.Mutex
	byID   map[string]*Session
	byUser map[string]map[string]*Session
	now    func() time.Time
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{
		byID:   make(map[string]*Session),
		byUser: make(map[string]map[string]*Session),
		now:    time.Now,
	}
}

// Start registers a new session.
func (r *Sessions) Start(id string, u user.User, token string, expiresAt time.Time) *Session {
	s := newSession(id, u, token, expiresAt)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[id] = s
	if r.byUser[u.ID] == nil {
		r.byUser[u.ID] = make(map[string]*Session)
	}
	r.byUser[u.ID][id] = s

	return s
}

// Get returns the live session id. Expired sessions are ended and removed.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, false
	}

	if !s.Active(r.now()) {
		r.removeLocked(s)
		return nil, false
	}

	return s, true
}

// End ends one session. Unknown ids are ignored.
func (r *Sessions) End(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byID[id]; ok {
		r.removeLocked(s)
	}
}

// EndUser ends every session of uid.
func (r *Sessions) EndUser(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.byUser[uid] {
		r.removeLocked(s)
	}
}

// UpdateUser refreshes the user value of every session of u.ID.
func (r *Sessions) UpdateUser(u user.User) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.byUser[u.ID]))
	for _, s := range r.byUser[u.ID] {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.setUser(u)
	}
}

// Sweep ends and removes expired sessions, returning how many were removed.
func (r *Sessions) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for _, s := range r.byID {
		if !s.Active(now) {
			r.removeLocked(s)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sessions every interval until ctx ends.
func (r *Sessions) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Count returns the number of registered sessions.
func (r *Sessions) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Sessions) removeLocked(s *Session) {
	s.end()
	delete(r.byID, s.ID)

	uid := s.CurrentUser().ID
	if set, ok := r.byUser[uid]; ok {
		delete(set, s.ID)
		if len(set) == 0 {
			delete(r.byUser, uid)
		}
	}
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session carried by ctx.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
