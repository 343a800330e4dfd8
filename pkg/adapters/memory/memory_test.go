package memory_test

import (
	"errors"
	"testing"

	"github.com/aretw0/domsync/pkg/adapters/memory"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_Contract(t *testing.T) {
	ports.RunChannelContract(t, func(t *testing.T) (ports.Channel, ports.Channel) {
		a, b := memory.Pipe()
		t.Cleanup(func() { _ = a.Close() })
		return a, b
	})
}

func TestPipe_Close(t *testing.T) {
	a, b := memory.Pipe()
	require.NoError(t, b.Close())

	assert.ErrorIs(t, a.Send([]byte("x")), memory.ErrClosed)
	assert.ErrorIs(t, b.Send([]byte("x")), memory.ErrClosed)
}

func TestPipe_HandlersGetIsolatedCopies(t *testing.T) {
	a, b := memory.Pipe()
	var first, second []byte
	b.Subscribe(func(msg []byte) {
		first = msg
		msg[0] = 'X'
	})
	b.Subscribe(func(msg []byte) { second = msg })

	require.NoError(t, a.Send([]byte("abc")))
	assert.Equal(t, "Xbc", string(first))
	assert.Equal(t, "abc", string(second))
}

func TestRecorder(t *testing.T) {
	r := memory.NewRecorder()

	var inbound []string
	sub := r.Subscribe(func(msg []byte) { inbound = append(inbound, string(msg)) })
	assert.Equal(t, 1, r.Subscribers())

	require.NoError(t, r.Send([]byte("one")))
	require.NoError(t, r.Send([]byte("two")))
	assert.Equal(t, []string{"one", "two"}, r.Pop())
	assert.Empty(t, r.Sent())

	r.Deliver([]byte("in"))
	assert.Equal(t, []string{"in"}, inbound)

	boom := errors.New("boom")
	r.FailWith(boom)
	assert.ErrorIs(t, r.Send([]byte("three")), boom)
	r.FailWith(nil)
	require.NoError(t, r.Send([]byte("four")))
	assert.Equal(t, []string{"four"}, r.Sent())

	r.Unsubscribe(sub)
	r.Deliver([]byte("ignored"))
	assert.Equal(t, []string{"in"}, inbound)
	assert.Equal(t, 0, r.Subscribers())
}
