package live

import (
	"context"
)

// Snapshot is one delivery of a live query: the full current result, or the error of this attempt.
type Snapshot[T any] struct {
	Data T
	Err  error
}

// Subscription is a cancellable live query. Every delivery replaces the previous one
// wholesale; an unread snapshot is overwritten by a newer one.
type Subscription[T any] struct {
	out    chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
}

// C returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan Snapshot[T] {
	return s.out
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the subscription and waits for its delivery goroutine to exit.
// Nothing is delivered after Cancel returns. It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
	for range s.out {
	}
}

// Watch runs fetch now and again after every note on any of topics, delivering
// each result as a Snapshot. The watcher is registered before the first fetch, so a
// change committed between the fetch and the registration cannot be missed.
// The subscription ends when ctx ends, when Cancel is called, or when the hub stops.
func Watch[T any](ctx context.Context, h *Hub, topics []string, fetch func(context.Context) (T, error)) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription[T]{
		out:    make(chan Snapshot[T], 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.loop(ctx, h, newWatcher(topics), fetch)

	return s
}

func (s *Subscription[T]) loop(ctx context.Context, h *Hub, w *watcher, fetch func(context.Context) (T, error)) {
	defer close(s.done)
	defer close(s.out)

	if err := h.add(ctx, w); err != nil {
		if ctx.Err() == nil {
			var zero T
			s.deliver(Snapshot[T]{Data: zero, Err: err})
		}
		return
	}
	defer h.remove(w)

	for {
		data, err := fetch(ctx)
		if ctx.Err() != nil {
			return
		}

		s.deliver(Snapshot[T]{Data: data, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-w.signal:
		}
	}
}

// deliver hands snap to the consumer, replacing a snapshot it has not read yet.
// Only the loop goroutine sends on out, so the retry always succeeds.
func (s *Subscription[T]) deliver(snap Snapshot[T]) {
	for {
		select {
		case s.out <- snap:
			return
		default:
		}

		select {
		case <-s.out:
		default:
		}
	}
}
