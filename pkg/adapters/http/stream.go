package http

import (
	"errors"

	"github.com/aretw0/domsync/pkg/ports"
)

const streamBuffer = 64

// ErrSlowClient is returned by Stream.Send when the client's buffer is full.
var ErrSlowClient = errors.New("sse: client buffer full")

// Stream is a send-only ports.Channel feeding one SSE client.
// Send never blocks; when the client falls behind the packet is dropped and
// the hub reports the failure for that connection only.
type Stream struct {
	ch chan []byte
}

var _ ports.Channel = (*Stream)(nil)

// NewStream creates a stream buffering up to size packets.
func NewStream(size int) *Stream {
	return &Stream{ch: make(chan []byte, size)}
}

// C returns the packets waiting to be written to the client.
func (s *Stream) C() <-chan []byte { return s.ch }

// Send implements ports.Channel.
func (s *Stream) Send(msg []byte) error {
	select {
	case s.ch <- append([]byte(nil), msg...):
		return nil
	default:
		return ErrSlowClient
	}
}

// Subscribe implements ports.Channel. SSE clients never send packets.
func (s *Stream) Subscribe(func([]byte)) ports.Subscription { return 0 }

// Unsubscribe implements ports.Channel.
func (s *Stream) Unsubscribe(ports.Subscription) {}
