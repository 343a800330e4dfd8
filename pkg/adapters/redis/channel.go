// Package redis provides a ports.Channel over Redis pub/sub.
//
// Every Channel publishing to the same topic sees every other Channel's
// packets, so a topic behaves like a shared bus between hubs. Messages are
// tagged with the publisher's origin so a Channel never receives its own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/domsync/internal/fanout"
	"github.com/aretw0/domsync/internal/logging"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/oklog/ulid/v2"
	backend "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

const separator = "\n"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("redis: channel closed")

// Channel implements ports.Channel using Redis PUBLISH/SUBSCRIBE.
type Channel struct {
	client  *backend.Client
	topic   string
	origin  string
	timeout time.Duration
	logger  *slog.Logger

	subs   fanout.Registry
	pubsub *backend.PubSub

	ownsClient bool
	closeOnce  sync.Once
	closed     chan struct{}
	done       chan struct{}
}

var _ ports.Channel = (*Channel)(nil)

// Option configures the Channel.
type Option func(*Channel)

// WithPublishTimeout bounds each Send. Defaults to 5s.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Channel) {
		c.timeout = d
	}
}

// WithLogger configures a logger for dropped messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New subscribes to topic and returns once the subscription is confirmed.
func New(ctx context.Context, client *backend.Client, topic string, opts ...Option) (*Channel, error) {
	c := &Channel{
		client:  client,
		topic:   topic,
		origin:  ulid.Make().String(),
		timeout: 5 * time.Second,
		logger:  logging.NewNop(),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.pubsub = client.Subscribe(ctx, topic)
	if _, err := c.pubsub.Receive(ctx); err != nil {
		_ = c.pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	go c.receive(c.pubsub.Channel())
	return c, nil
}

// NewFromAddr connects to the Redis server at addr.
// The client is closed together with the Channel.
func NewFromAddr(ctx context.Context, addr, topic string, opts ...Option) (*Channel, error) {
	client := backend.NewClient(&backend.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	c, err := New(ctx, client, topic, opts...)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	c.ownsClient = true
	return c, nil
}

// Origin returns the identifier stamped on every published message.
func (c *Channel) Origin() string { return c.origin }

// Send implements ports.Channel.
func (c *Channel) Send(msg []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Publish(ctx, c.topic, c.origin+separator+string(msg)).Err()
}

// Subscribe implements ports.Channel.
func (c *Channel) Subscribe(handler func([]byte)) ports.Subscription {
	return c.subs.Subscribe(handler)
}

// Unsubscribe implements ports.Channel.
func (c *Channel) Unsubscribe(sub ports.Subscription) {
	c.subs.Unsubscribe(sub)
}

// Close unsubscribes and waits for the receive loop to stop.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.pubsub.Close()
		<-c.done
		if c.ownsClient {
			err = multierr.Append(err, c.client.Close())
		}
	})
	return err
}

func (c *Channel) receive(ch <-chan *backend.Message) {
	defer close(c.done)
	for m := range ch {
		origin, payload, ok := strings.Cut(m.Payload, separator)
		if !ok {
			c.logger.Warn("Dropping unframed message", "topic", c.topic, "bytes", len(m.Payload))
			continue
		}
		if origin == c.origin {
			continue
		}
		c.subs.Deliver([]byte(payload))
	}
}
