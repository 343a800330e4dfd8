package cli

import (
	"log/slog"

	"github.com/aretw0/domsync/pkg/domain"
)

// debugHooks logs every hub lifecycle event at debug level.
func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlush: func(e *domain.FlushEvent) {
			logger.Debug("Packet broadcast", "dirty", e.Dirty, "dead", e.Dead, "bytes", e.Bytes, "connections", e.Connections, "failed", e.Failed)
		},
		OnApply: func(e *domain.ApplyEvent) {
			logger.Debug("Packet applied", "handle", e.Handle, "entries", e.Entries, "applied", e.Applied, "rejected", e.Rejected)
		},
		OnConnect: func(e *domain.ConnectionEvent) {
			logger.Debug("Peer joined", "handle", e.Handle, "connections", e.Connections)
		},
		OnDisconnect: func(e *domain.ConnectionEvent) {
			logger.Debug("Peer left", "handle", e.Handle, "connections", e.Connections)
		},
	}
}
