package redis_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/domsync/pkg/adapters/redis"
	"github.com/aretw0/domsync/pkg/hub"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/aretw0/domsync/pkg/scene"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func open(t *testing.T, client *backend.Client, topic string) *redis.Channel {
	t.Helper()
	ch, err := redis.New(context.Background(), client, topic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestRedisChannel_Contract(t *testing.T) {
	_, client := setup(t)
	var n atomic.Int64

	ports.RunChannelContract(t, func(t *testing.T) (ports.Channel, ports.Channel) {
		topic := fmt.Sprintf("contract:%d", n.Add(1))
		return open(t, client, topic), open(t, client, topic)
	})
}

func TestRedisChannel_DropsUnframedMessages(t *testing.T) {
	mr, client := setup(t)
	ch := open(t, client, "scene")

	var mu sync.Mutex
	var got []string
	ch.Subscribe(func(msg []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(msg))
	})

	mr.Publish("scene", "no separator")
	mr.Publish("scene", ch.Origin()+"\nmine")
	mr.Publish("scene", "someone-else\n<packet></packet>")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"<packet></packet>"}, got)
}

func TestRedisChannel_Close(t *testing.T) {
	_, client := setup(t)
	ch, err := redis.New(context.Background(), client, "scene")
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	assert.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.Send([]byte("x")), redis.ErrClosed)
}

func TestNewFromAddr(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	ch, err := redis.NewFromAddr(context.Background(), mr.Addr(), "scene")
	require.NoError(t, err)
	require.NoError(t, ch.Close())
	addr := mr.Addr()

	mr.Close()
	_, err = redis.NewFromAddr(context.Background(), addr, "scene")
	assert.Error(t, err)
}

func TestRedisChannel_BridgesHubs(t *testing.T) {
	_, client := setup(t)
	docA, docB := scene.New(), scene.New()
	hubA, hubB := hub.New(docA), hub.New(docB, hub.WithEchoSuppression(true))
	hubA.Connect(open(t, client, "scene"))
	hubB.Connect(open(t, client, "scene"))

	require.NoError(t, hubA.Mutate(func(ports.Tree) error {
		box := docA.CreateElement("box")
		box.SetAttribute("position", "1 2 3")
		return docA.Scene().AppendChild(box)
	}))
	require.NoError(t, hubA.Flush())

	want := docA.String()
	assert.Eventually(t, func() bool {
		var got string
		hubB.View(func(ports.Tree) { got = docB.String() })
		return got == want
	}, 2*time.Second, 10*time.Millisecond)
}
