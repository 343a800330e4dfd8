package ports

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ChannelPairFactory returns two connected channel endpoints.
// Messages sent on one must be delivered to the subscribers of the other.
type ChannelPairFactory func(t *testing.T) (a, b Channel)

// collector gathers inbound messages for assertions.
type collector struct {
	mu   sync.Mutex
	msgs []string
}

func (c *collector) handle(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, string(msg))
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func (c *collector) has(msg string) bool {
	for _, m := range c.snapshot() {
		if m == msg {
			return true
		}
	}
	return false
}

// RunChannelContract runs a suite of tests to verify that a Channel implementation
// adheres to the defined interface contract.
func RunChannelContract(t *testing.T, newPair ChannelPairFactory) {
	const wait = 2 * time.Second
	const tick = 10 * time.Millisecond

	t.Run("Send and Receive", func(t *testing.T) {
		a, b := newPair(t)
		var got collector
		b.Subscribe(got.handle)

		require.NoError(t, a.Send([]byte("<packet></packet>")))

		assert.Eventually(t, func() bool { return got.has("<packet></packet>") }, wait, tick)
	})

	t.Run("Preserves Order", func(t *testing.T) {
		a, b := newPair(t)
		var got collector
		b.Subscribe(got.handle)

		want := []string{"one", "two", "three"}
		for _, m := range want {
			require.NoError(t, a.Send([]byte(m)))
		}

		assert.Eventually(t, func() bool { return len(got.snapshot()) == len(want) }, wait, tick)
		assert.Equal(t, want, got.snapshot())
	})

	t.Run("Fan Out To Subscribers", func(t *testing.T) {
		a, b := newPair(t)
		var first, second collector
		b.Subscribe(first.handle)
		b.Subscribe(second.handle)

		require.NoError(t, a.Send([]byte("hello")))

		assert.Eventually(t, func() bool { return first.has("hello") && second.has("hello") }, wait, tick)
	})

	t.Run("Unsubscribe Stops Delivery", func(t *testing.T) {
		a, b := newPair(t)
		var removed, kept collector
		sub := b.Subscribe(removed.handle)
		b.Subscribe(kept.handle)

		b.Unsubscribe(sub)
		b.Unsubscribe(sub) // second call is a no-op
		b.Unsubscribe(Subscription(987654))

		require.NoError(t, a.Send([]byte("after")))

		assert.Eventually(t, func() bool { return kept.has("after") }, wait, tick)
		assert.Empty(t, removed.snapshot())
	})

	t.Run("Bidirectional", func(t *testing.T) {
		a, b := newPair(t)
		var atA, atB collector
		a.Subscribe(atA.handle)
		b.Subscribe(atB.handle)

		require.NoError(t, a.Send([]byte("ping")))
		require.NoError(t, b.Send([]byte("pong")))

		assert.Eventually(t, func() bool { return atB.has("ping") && atA.has("pong") }, wait, tick)
		assert.False(t, atA.has("ping"), "a sender must not receive its own message")
	})
}
