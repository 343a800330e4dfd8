package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/domsync/internal/logging"
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/packet"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/aretw0/domsync/pkg/reconcile"
	"go.uber.org/multierr"
)

// Handle identifies a connection. The zero Handle is never issued.
type Handle uint64

type conn struct {
	handle Handle
	ch     ports.Channel
	sub    ports.Subscription
}

// Hub replicates a tree across connected channels.
type Hub struct {
	treeMu sync.Mutex
	tree   ports.Tree

	flushMu sync.Mutex

	memberMu sync.Mutex   // serializes Connect/Disconnect
	connMu   sync.RWMutex // guards conns
	conns    map[Handle]*conn
	next     Handle

	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	suppressEcho bool
}

// New creates a Hub replicating tree.
func New(tree ports.Tree, opts ...Option) *Hub {
	h := &Hub{
		tree:   tree,
		conns:  make(map[Handle]*conn),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers ch and starts applying its inbound messages.
// Nothing is sent on connect; the peer keeps whatever baseline it has.
func (h *Hub) Connect(ch ports.Channel) Handle {
	h.memberMu.Lock()
	defer h.memberMu.Unlock()

	h.connMu.Lock()
	h.next++
	c := &conn{handle: h.next, ch: ch}
	h.conns[c.handle] = c
	count := len(h.conns)
	h.connMu.Unlock()

	handle := c.handle
	c.sub = ch.Subscribe(func(msg []byte) {
		h.OnMessage(handle, msg)
	})

	h.logger.Info("Channel connected", "handle", handle, "connections", count)
	if h.hooks.OnConnect != nil {
		h.hooks.OnConnect(&domain.ConnectionEvent{
			EventBase:   domain.EventBase{Timestamp: time.Now(), Handle: uint64(handle)},
			Connections: count,
		})
	}
	return handle
}

// Disconnect unregisters a connection and unsubscribes its handler.
// It returns false if handle is not currently connected.
func (h *Hub) Disconnect(handle Handle) bool {
	h.memberMu.Lock()
	defer h.memberMu.Unlock()

	h.connMu.Lock()
	c, ok := h.conns[handle]
	delete(h.conns, handle)
	count := len(h.conns)
	h.connMu.Unlock()

	if !ok {
		return false
	}
	c.ch.Unsubscribe(c.sub)

	h.logger.Info("Channel disconnected", "handle", handle, "connections", count)
	if h.hooks.OnDisconnect != nil {
		h.hooks.OnDisconnect(&domain.ConnectionEvent{
			EventBase:   domain.EventBase{Timestamp: time.Now(), Handle: uint64(handle)},
			Connections: count,
		})
	}
	return true
}

// Connections returns the number of connected channels.
func (h *Hub) Connections() int {
	h.connMu.RLock()
	defer h.connMu.RUnlock()
	return len(h.conns)
}

func (h *Hub) registered(handle Handle) bool {
	h.connMu.RLock()
	defer h.connMu.RUnlock()
	_, ok := h.conns[handle]
	return ok
}

// snapshot returns the current connections ordered by handle.
func (h *Hub) snapshot() []*conn {
	h.connMu.RLock()
	defer h.connMu.RUnlock()
	out := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

// Mutate runs fn with exclusive access to the tree.
func (h *Hub) Mutate(fn func(ports.Tree) error) error {
	h.treeMu.Lock()
	defer h.treeMu.Unlock()
	return fn(h.tree)
}

// View runs fn with exclusive access to the tree. fn must not modify it.
func (h *Hub) View(fn func(ports.Tree)) {
	h.treeMu.Lock()
	defer h.treeMu.Unlock()
	fn(h.tree)
}

// Flush drains pending changes and broadcasts them as one packet.
//
// Nothing is sent when there are no changes. A failing channel does not stop
// delivery to the others and drained changes are never re-queued; the returned
// error combines one *domain.ChannelSendFailure per failed channel.
func (h *Hub) Flush() error {
	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	h.treeMu.Lock()
	dirty, dead := h.tree.Drain()
	for _, n := range dirty {
		if bad := packet.InvalidNames(n); len(bad) > 0 && n.Reflects() {
			h.logger.Warn("Skipping names that cannot be encoded", "uuid", n.ID(), "names", bad)
		}
	}
	data, ok := packet.EncodeChanges(dirty, dead)
	h.treeMu.Unlock()

	if !ok {
		return nil
	}

	conns := h.snapshot()
	var errs error
	failed := 0
	for _, c := range conns {
		if err := send(c.ch, data); err != nil {
			failure := &domain.ChannelSendFailure{Handle: uint64(c.handle), Err: err}
			h.fault(domain.FaultSend, c.handle, failure)
			errs = multierr.Append(errs, failure)
			failed++
		}
	}

	h.logger.Debug("Flushed changes",
		"dirty", len(dirty),
		"dead", len(dead),
		"bytes", len(data),
		"connections", len(conns),
		"failed", failed,
	)
	if h.hooks.OnFlush != nil {
		h.hooks.OnFlush(&domain.FlushEvent{
			EventBase:   domain.EventBase{Timestamp: time.Now()},
			Dirty:       len(dirty),
			Dead:        len(dead),
			Bytes:       len(data),
			Connections: len(conns),
			Failed:      failed,
		})
	}
	return errs
}

// send isolates the hub from a channel that panics.
func send(ch ports.Channel, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in send: %v", r)
		}
	}()
	return ch.Send(data)
}

// OnMessage handles one inbound message from a connection.
// Messages on handles that are no longer connected are ignored.
func (h *Hub) OnMessage(handle Handle, msg []byte) {
	if !h.registered(handle) {
		h.fault(domain.FaultUnregistered, handle, fmt.Errorf("message on handle %d: %w", handle, domain.ErrUnregisteredHandle))
		return
	}
	_ = h.ingest(handle, msg)
}

// Ingest decodes and applies a packet that did not arrive on a connection.
// The returned error combines the parse error or every rejected entry.
func (h *Hub) Ingest(msg []byte) error {
	return h.ingest(0, msg)
}

func (h *Hub) ingest(handle Handle, msg []byte) error {
	ds, err := packet.Decode(msg)
	if err != nil {
		h.fault(domain.FaultParse, handle, err)
		return err
	}

	var applied int
	apply := func() { applied, err = reconcile.ApplyAll(h.tree, ds) }

	h.treeMu.Lock()
	if m, ok := h.tree.(ports.Muter); ok && h.suppressEcho {
		m.WithoutTracking(apply)
	} else {
		apply()
	}
	h.treeMu.Unlock()

	rejected := multierr.Errors(err)
	for _, e := range rejected {
		kind := domain.FaultApply
		if errors.Is(e, domain.ErrProtocolViolation) {
			kind = domain.FaultProtocol
		}
		h.fault(kind, handle, e)
	}

	h.logger.Debug("Applied packet", "handle", handle, "entries", len(ds), "applied", applied, "rejected", len(rejected))
	if h.hooks.OnApply != nil {
		h.hooks.OnApply(&domain.ApplyEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Handle: uint64(handle)},
			Entries:   len(ds),
			Applied:   applied,
			Rejected:  len(rejected),
		})
	}
	return err
}

func (h *Hub) fault(kind domain.FaultKind, handle Handle, err error) {
	h.logger.Warn("Replication fault", "kind", kind, "handle", handle, "err", err)
	if h.hooks.OnFault != nil {
		h.hooks.OnFault(&domain.FaultEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Handle: uint64(handle)},
			Kind:      kind,
			Err:       err,
		})
	}
}

// Run flushes every interval until ctx is done, then flushes once more.
// Flush failures are already reported through hooks and the logger.
func (h *Hub) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = h.Flush()
			return ctx.Err()
		case <-ticker.C:
			_ = h.Flush()
		}
	}
}
