// Package fanout implements the subscriber registry shared by channel adapters.
package fanout

import (
	"sort"
	"sync"

	"github.com/aretw0/domsync/pkg/ports"
)

// Registry holds inbound handlers keyed by subscription handle.
// The zero value is ready to use and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	next     ports.Subscription
	handlers map[ports.Subscription]func([]byte)
}

// Subscribe registers handler and returns its handle.
func (r *Registry) Subscribe(handler func([]byte)) ports.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[ports.Subscription]func([]byte))
	}
	r.next++
	r.handlers[r.next] = handler
	return r.next
}

// Unsubscribe removes a handler. Unknown handles are ignored.
func (r *Registry) Unsubscribe(sub ports.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, sub)
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Deliver calls every handler in subscription order, outside the lock.
// Each handler gets its own copy of msg.
func (r *Registry) Deliver(msg []byte) {
	r.mu.RLock()
	subs := make([]ports.Subscription, 0, len(r.handlers))
	for sub := range r.handlers {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i] < subs[j] })
	handlers := make([]func([]byte), 0, len(subs))
	for _, sub := range subs {
		handlers = append(handlers, r.handlers[sub])
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(append([]byte(nil), msg...))
	}
}
