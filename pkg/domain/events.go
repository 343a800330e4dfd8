package domain

import (
	"time"
)

// FaultKind categorizes a reported failure.
type FaultKind string

const (
	FaultParse        FaultKind = "parse"
	FaultProtocol     FaultKind = "protocol"
	FaultSend         FaultKind = "send"
	FaultUnregistered FaultKind = "unregistered"
	FaultApply        FaultKind = "apply"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Handle    uint64    `json:"handle,omitempty"` // zero when not bound to a connection
}

// FlushEvent describes one completed flush cycle.
type FlushEvent struct {
	EventBase
	Dirty       int `json:"dirty"`
	Dead        int `json:"dead"`
	Bytes       int `json:"bytes"`
	Connections int `json:"connections"`
	Failed      int `json:"failed"`
}

// ApplyEvent describes one inbound packet after reconciliation.
type ApplyEvent struct {
	EventBase
	Entries  int `json:"entries"`
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
}

// ConnectionEvent describes a membership change.
type ConnectionEvent struct {
	EventBase
	Connections int `json:"connections"`
}

// FaultEvent is delivered to the fault-observation sink.
type FaultEvent struct {
	EventBase
	Kind FaultKind `json:"kind"`
	Err  error     `json:"-"`
}

// LifecycleHooks defines callbacks for hub observability.
// Hooks run synchronously on the calling goroutine and must not call back into the hub.
type LifecycleHooks struct {
	OnFlush      func(*FlushEvent)
	OnApply      func(*ApplyEvent)
	OnConnect    func(*ConnectionEvent)
	OnDisconnect func(*ConnectionEvent)
	OnFault      func(*FaultEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnFlush:      chain(h.OnFlush, other.OnFlush),
		OnApply:      chain(h.OnApply, other.OnApply),
		OnConnect:    chain(h.OnConnect, other.OnConnect),
		OnDisconnect: chain(h.OnDisconnect, other.OnDisconnect),
		OnFault:      chain(h.OnFault, other.OnFault),
	}
}

func chain[E any](a, b func(E)) func(E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e E) {
		a(e)
		b(e)
	}
}
