/*
Package live implements live queries on top of plain repositories.

Writers publish a topic after every successful change; a Bus carries topic notes to every
server instance; the Hub wakes the watchers registered on that topic; each watcher re-runs
its query and delivers a fresh, immutable snapshot through a Subscription.
*/
package live

import (
	"context"
	"errors"
	"sync"
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("live: bus closed")

// Bus transports change notes (topic names) between writers and hubs.
type Bus interface {
	// Publish announces that data behind topic changed.
	Publish(ctx context.Context, topic string) error

	// Listen returns the stream of published topics. The channel closes when ctx ends or the bus closes.
	Listen(ctx context.Context) (<-chan string, error)

	Close() error
}

const localBusBuffer = 1024

// LocalBus is an in-process Bus for single-instance deployments and tests.
// It supports a single listener.
type LocalBus struct {
	mu     sync.RWMutex
	notes  chan string
	closed bool
}

// NewLocalBus creates an in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{notes: make(chan string, localBusBuffer)}
}

// Publish implements Bus.
func (b *LocalBus) Publish(ctx context.Context, topic string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.notes <- topic:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listen implements Bus.
func (b *LocalBus) Listen(ctx context.Context) (<-chan string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	out := make(chan string, localBusBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case topic, ok := <-b.notes:
				if !ok {
					return
				}
				select {
				case out <- topic:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close implements Bus.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.notes)
	}
	return nil
}
