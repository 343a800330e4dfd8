package memory

import (
	"errors"
	"sync/atomic"

	"github.com/aretw0/domsync/internal/fanout"
	"github.com/aretw0/domsync/pkg/ports"
)

// ErrClosed is returned by Send on a closed endpoint.
var ErrClosed = errors.New("memory: channel closed")

// Endpoint is one side of an in-process duplex pipe.
// Send delivers synchronously to the peer's subscribers on the caller's goroutine.
type Endpoint struct {
	subs   fanout.Registry
	peer   *Endpoint
	closed *atomic.Bool
}

var _ ports.Channel = (*Endpoint)(nil)

// Pipe returns two connected endpoints.
func Pipe() (*Endpoint, *Endpoint) {
	closed := &atomic.Bool{}
	a := &Endpoint{closed: closed}
	b := &Endpoint{closed: closed, peer: a}
	a.peer = b
	return a, b
}

// Send implements ports.Channel.
func (e *Endpoint) Send(msg []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.peer.subs.Deliver(msg)
	return nil
}

// Subscribe implements ports.Channel.
func (e *Endpoint) Subscribe(handler func([]byte)) ports.Subscription {
	return e.subs.Subscribe(handler)
}

// Unsubscribe implements ports.Channel.
func (e *Endpoint) Unsubscribe(sub ports.Subscription) {
	e.subs.Unsubscribe(sub)
}

// Close shuts down both sides of the pipe.
func (e *Endpoint) Close() error {
	e.closed.Store(true)
	return nil
}
