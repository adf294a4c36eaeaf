package live

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// RedisBus fans change notes out to every server instance through a Redis pub/sub channel.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisBus parses redisURL (e.g. "redis://localhost:6379/0"), connects,
// and pings the server to verify the connection.
func NewRedisBus(redisURL, channel string) (*RedisBus, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL cannot be empty")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisBusFromClient(client, channel), nil
}

// NewRedisBusFromClient wraps an existing client.
func NewRedisBusFromClient(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  logx.Component("RedisBus").With().Str("channel", channel).Logger(),
	}
}

// Publish implements Bus.
func (b *RedisBus) Publish(ctx context.Context, topic string) error {
	if err := b.client.Publish(ctx, b.channel, topic).Err(); err != nil {
		return fmt.Errorf("publish %q: %w", topic, err)
	}
	return nil
}

// Listen implements Bus. The subscription is confirmed before Listen returns,
// so no note published afterwards is missed.
func (b *RedisBus) Listen(ctx context.Context) (<-chan string, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %q: %w", b.channel, err)
	}

	out := make(chan string, localBusBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					b.logger.Warn().Msg("Redis subscription channel closed.")
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	b.logger.Info().Msg("Listening for change notes.")
	return out, nil
}

// Close implements Bus.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
