package message

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/app/live"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Feed reads chat timelines, either once or as a live Stream.
type Feed struct {
	resolver Resolver
	repo     Repository
	hub      *live.Hub
	now      func() time.Time
	logger   zerolog.Logger
}

// NewFeed creates a Feed.
func NewFeed(resolver Resolver, repo Repository, hub *live.Hub) *Feed {
	return &Feed{
		resolver: resolver,
		repo:     repo,
		hub:      hub,
		now:      time.Now,
		logger:   logx.Component("Feed"),
	}
}

// Load returns the current timeline of chatID once.
func (f *Feed) Load(ctx context.Context, viewer user.Viewer, chatID string, loc *time.Location) ([]Entry, error) {
	if _, err := f.resolver.Resolve(ctx, viewer, chatID); err != nil {
		return nil, err
	}

	msgs, err := f.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrLoadFailed, err)
	}

	return Timeline(msgs, f.now(), loc), nil
}

// View is what a client renders for the active chat.
type View struct {
	ChatID  string  `json:"chatId"`
	Loading bool    `json:"loading"`
	Entries []Entry `json:"entries"`
}

// Stream follows one active chat at a time for one viewer. Opening another chat
// tears the previous subscription down; snapshots that arrive from it afterwards are dropped.
type Stream struct {
	feed   *Feed
	viewer user.Viewer
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	views chan View
	wg    sync.WaitGroup

	mu      sync.Mutex
	gen     uint64
	sub     *live.Subscription[[]Message]
	current View
	closed  bool
}

// NewStream creates an idle Stream for viewer. Day separators are computed in loc.
func (f *Feed) NewStream(ctx context.Context, viewer user.Viewer, loc *time.Location) *Stream {
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Stream{
		feed:   f,
		viewer: viewer,
		loc:    loc,
		ctx:    ctx,
		cancel: cancel,
		logger: f.logger.With().Str("uid", viewer.CurrentUser().ID).Logger(),
		views:  make(chan View, 1),
	}
}

// Views delivers every change of the rendered view. An unread view is replaced by a newer one.
// The channel is closed by Close.
func (s *Stream) Views() <-chan View {
	return s.views
}

// Current returns the latest view.
func (s *Stream) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Open makes chatID the active chat. The view is reset to loading immediately; the first
// snapshot replaces it. Access errors are returned and leave the view empty and not loading.
func (s *Stream) Open(ctx context.Context, chatID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return context.Canceled
	}
	s.gen++
	gen := s.gen
	previous := s.sub
	s.sub = nil
	s.current = View{ChatID: chatID, Loading: true}
	s.emitLocked()
	s.mu.Unlock()

	if previous != nil {
		previous.Cancel()
	}

	if _, err := s.feed.resolver.Resolve(ctx, s.viewer, chatID); err != nil {
		s.mu.Lock()
		if gen == s.gen && !s.closed {
			s.current.Loading = false
			s.emitLocked()
		}
		s.mu.Unlock()
		return err
	}

	sub := live.Watch(s.ctx, s.feed.hub, []string{live.MessagesTopic(chatID)}, func(ctx context.Context) ([]Message, error) {
		return s.feed.repo.ListMessages(ctx, chatID)
	})

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		sub.Cancel()
		return nil
	}
	s.sub = sub
	s.wg.Add(1)
	s.mu.Unlock()

	go s.forward(gen, chatID, sub)
	return nil
}

func (s *Stream) forward(gen uint64, chatID string, sub *live.Subscription[[]Message]) {
	defer s.wg.Done()

	for snap := range sub.C() {
		s.apply(gen, chatID, snap)
	}
}

func (s *Stream) apply(gen uint64, chatID string, snap live.Snapshot[[]Message]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.closed {
		return
	}

	if snap.Err != nil {
		s.logger.Error().Err(snap.Err).Str("chat_id", chatID).Msg("Message subscription failed.")
		s.current.Loading = false
		s.emitLocked()
		return
	}

	s.current = View{
		ChatID:  chatID,
		Loading: false,
		Entries: Timeline(snap.Data, s.feed.now(), s.loc),
	}
	s.emitLocked()
}

// emitLocked publishes s.current. The caller holds s.mu, so there is a single sender.
func (s *Stream) emitLocked() {
	view := s.current
	for {
		select {
		case s.views <- view:
			return
		default:
		}

		select {
		case <-s.views:
		default:
		}
	}
}

// Close cancels the active subscription and closes Views. It is safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	s.cancel()
	if sub != nil {
		sub.Cancel()
	}
	s.wg.Wait()
	close(s.views)
}
