package domsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/domsync/internal/logging"
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/hub"
	"github.com/aretw0/domsync/pkg/observability"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/aretw0/domsync/pkg/scene"
	"github.com/prometheus/client_golang/prometheus"
)

// Sync binds a scene document to a replication hub.
// All document access must go through Update or View.
type Sync struct {
	doc     *scene.Document
	hub     *hub.Hub
	metrics *observability.Metrics

	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	registerer   prometheus.Registerer
	withMetrics  bool
	suppressEcho bool
}

// Option defines a functional option for configuring Sync.
type Option func(*Sync)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Multiple calls are combined.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Sync) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithMetrics records Prometheus metrics and registers them with reg.
// A nil reg keeps the collectors unregistered.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Sync) {
		s.withMetrics = true
		s.registerer = reg
	}
}

// WithEchoSuppression keeps changes received from peers out of outbound packets.
func WithEchoSuppression(on bool) Option {
	return func(s *Sync) {
		s.suppressEcho = on
	}
}

// New creates a Sync with an empty scene.
func New(opts ...Option) *Sync {
	s := &Sync{doc: scene.New()}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.withMetrics {
		s.metrics = observability.NewMetrics(s.registerer)
		s.hooks = s.hooks.Merge(s.metrics.Hooks())
	}

	s.hub = hub.New(s.doc,
		hub.WithLogger(s.logger),
		hub.WithHooks(s.hooks),
		hub.WithEchoSuppression(s.suppressEcho),
	)
	return s
}

// Hub returns the underlying hub.
func (s *Sync) Hub() *hub.Hub { return s.hub }

// Metrics returns the collectors, or nil without WithMetrics.
func (s *Sync) Metrics() *observability.Metrics { return s.metrics }

// Update runs fn with exclusive access to the document.
// Changes it makes are sent on the next flush.
func (s *Sync) Update(fn func(doc *scene.Document) error) error {
	return s.hub.Mutate(func(ports.Tree) error { return fn(s.doc) })
}

// View runs fn with exclusive access to the document. fn must not modify it.
func (s *Sync) View(fn func(doc *scene.Document)) {
	s.hub.View(func(ports.Tree) { fn(s.doc) })
}

// String renders the current scene.
func (s *Sync) String() string {
	var out string
	s.View(func(doc *scene.Document) { out = doc.String() })
	return out
}

// Snapshot copies the current scene.
func (s *Sync) Snapshot() scene.Snapshot {
	var out scene.Snapshot
	s.View(func(doc *scene.Document) { out = doc.Snapshot() })
	return out
}

// Connect registers a channel with the hub.
func (s *Sync) Connect(ch ports.Channel) hub.Handle { return s.hub.Connect(ch) }

// Disconnect unregisters a channel. It returns false for unknown handles.
func (s *Sync) Disconnect(h hub.Handle) bool { return s.hub.Disconnect(h) }

// Ingest applies a packet that did not arrive on a connected channel.
func (s *Sync) Ingest(msg []byte) error { return s.hub.Ingest(msg) }

// Flush sends pending changes to every connected channel.
func (s *Sync) Flush() error { return s.hub.Flush() }

// Run flushes every interval until ctx is done.
func (s *Sync) Run(ctx context.Context, interval time.Duration) error {
	return s.hub.Run(ctx, interval)
}
