package hub

import (
	"log/slog"

	"github.com/aretw0/domsync/pkg/domain"
)

// Option configures the Hub.
type Option func(*Hub)

// WithLogger configures a logger for the Hub.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHooks registers observability hooks. Multiple calls are combined.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Hub) {
		h.hooks = h.hooks.Merge(hooks)
	}
}

// WithEchoSuppression applies inbound changes without marking them dirty when
// the tree implements ports.Muter, so they are not broadcast again.
// Leave it off when the hub relays between peers that are not connected to
// each other.
func WithEchoSuppression(on bool) Option {
	return func(h *Hub) {
		h.suppressEcho = on
	}
}
