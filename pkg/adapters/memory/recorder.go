package memory

import (
	"sync"

	"github.com/aretw0/domsync/internal/fanout"
	"github.com/aretw0/domsync/pkg/ports"
)

// Recorder is a Channel that keeps every sent message and lets callers inject
// inbound messages. It is meant for tests and for tooling that inspects the
// packets a hub produces.
type Recorder struct {
	subs fanout.Registry

	mu   sync.Mutex
	sent [][]byte
	err  error
}

var _ ports.Channel = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send implements ports.Channel.
func (r *Recorder) Send(msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, append([]byte(nil), msg...))
	return nil
}

// Subscribe implements ports.Channel.
func (r *Recorder) Subscribe(handler func([]byte)) ports.Subscription {
	return r.subs.Subscribe(handler)
}

// Unsubscribe implements ports.Channel.
func (r *Recorder) Unsubscribe(sub ports.Subscription) {
	r.subs.Unsubscribe(sub)
}

// FailWith makes every following Send return err. A nil err restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Deliver feeds msg to the recorder's subscribers as if it came from the remote side.
func (r *Recorder) Deliver(msg []byte) {
	r.subs.Deliver(msg)
}

// Sent returns the messages sent so far.
func (r *Recorder) Sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = string(m)
	}
	return out
}

// Pop returns the messages sent so far and forgets them.
func (r *Recorder) Pop() []string {
	out := r.Sent()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = r.sent[len(out):]
	return out
}

// Subscribers returns the number of registered handlers.
func (r *Recorder) Subscribers() int {
	return r.subs.Len()
}
