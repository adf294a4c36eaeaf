package live

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// ErrHubStopped is returned when registering with a hub that has shut down.
var ErrHubStopped = errors.New("live: hub stopped")

// watcher is one registered live query. signal holds at most one pending wake-up,
// so a burst of notes collapses into a single re-query.
type watcher struct {
	topics []string
	signal chan struct{}
}

func newWatcher(topics []string) *watcher {
	return &watcher{
		topics: topics,
		signal: make(chan struct{}, 1),
	}
}

func (w *watcher) wake() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Hub routes change notes from the Bus to the watchers registered on each topic.
// All watcher bookkeeping happens on the Run loop goroutine.
type Hub struct {
	bus Bus

	// watchers indexes registered watchers by topic.
	watchers map[string]map[*watcher]struct{}

	// a channel for watchers requesting to join.
	register chan *watcher

	// a channel for watchers requesting to leave.
	unregister chan *watcher

	// used to signal the Hub to stop its Run loop immediately.
	stopChan chan struct{}
	stopOnce sync.Once

	// closed once the Run loop has exited.
	done chan struct{}

	logger zerolog.Logger
}

// NewHub creates a hub fed by bus. Call Start to begin routing.
func NewHub(bus Bus) *Hub {
	return &Hub{
		bus:        bus,
		watchers:   make(map[string]map[*watcher]struct{}),
		register:   make(chan *watcher),
		unregister: make(chan *watcher),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.Component("Hub"),
	}
}

// Start subscribes to the bus and launches the Run loop.
func (h *Hub) Start(ctx context.Context) error {
	notes, err := h.bus.Listen(ctx)
	if err != nil {
		return err
	}

	go h.run(notes)

	h.logger.Info().Msg("Hub started.")
	return nil
}

// Publish announces a change on every topic through the bus.
func (h *Hub) Publish(ctx context.Context, topics ...string) error {
	var errList []error
	for _, topic := range topics {
		if err := h.bus.Publish(ctx, topic); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Shutdown stops the Run loop and waits for it to exit. Subscriptions that are
// still open end on their own once they observe the stop.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
	<-h.done
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) run(notes <-chan string) {
	defer func() {
		close(h.done)
		h.logger.Info().Msg("Hub Run loop finished.")
	}()

	for {
		select {
		case w := <-h.register:
			for _, topic := range w.topics {
				set, ok := h.watchers[topic]
				if !ok {
					set = make(map[*watcher]struct{})
					h.watchers[topic] = set
				}
				set[w] = struct{}{}
			}

		case w := <-h.unregister:
			for _, topic := range w.topics {
				if set, ok := h.watchers[topic]; ok {
					delete(set, w)
					if len(set) == 0 {
						delete(h.watchers, topic)
					}
				}
			}

		case topic, ok := <-notes:
			if !ok {
				h.logger.Warn().Msg("Bus closed its note stream. Stopping hub.")
				return
			}
			for w := range h.watchers[topic] {
				w.wake()
			}

		case <-h.stopChan:
			return
		}
	}
}

// add registers w and returns once the Run loop has recorded it.
func (h *Hub) add(ctx context.Context, w *watcher) error {
	select {
	case h.register <- w:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) remove(w *watcher) {
	select {
	case h.unregister <- w:
	case <-h.done:
	}
}
