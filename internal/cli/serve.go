package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/domsync"
	"github.com/aretw0/domsync/internal/config"
	httpAdapter "github.com/aretw0/domsync/pkg/adapters/http"
	"github.com/aretw0/domsync/pkg/adapters/redis"
	"github.com/aretw0/domsync/pkg/adapters/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	Config config.Config
	Logger *slog.Logger
	// Ready, if set, is called with the bound address once the server accepts connections.
	Ready func(net.Addr)
}

// Serve runs the replication server until ctx is cancelled, then shuts down
// gracefully and sends whatever changes are still pending.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg := opts.Config
	logger := opts.Logger

	reg := prometheus.NewRegistry()
	syncOpts := []domsync.Option{
		domsync.WithLogger(logger),
		domsync.WithLifecycleHooks(debugHooks(logger)),
		domsync.WithEchoSuppression(cfg.EchoSuppression),
	}
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		syncOpts = append(syncOpts, domsync.WithMetrics(reg))
	}
	s := domsync.New(syncOpts...)

	if cfg.Redis.Enabled {
		bridge, err := redis.NewFromAddr(ctx, cfg.Redis.Addr, cfg.Redis.Topic, redis.WithLogger(logger))
		if err != nil {
			return err
		}
		defer bridge.Close()
		s.Connect(bridge)
		logger.Info("Redis bridge connected", "addr", cfg.Redis.Addr, "topic", cfg.Redis.Topic)
	}

	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithScene(s.String),
		httpAdapter.WithSnapshot(s.Snapshot),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithWebsocketSettings(websocketSettings(cfg.Websocket)),
	}
	if cfg.Metrics.Enabled {
		handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(reg))
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
	}
	srv := &http.Server{
		Handler:           httpAdapter.NewHandler(s.Hub(), handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()
	logger.Info("Replication server listening", "addr", ln.Addr().String(), "flush_interval", cfg.FlushInterval)
	if opts.Ready != nil {
		opts.Ready(ln.Addr())
	}

	flushCtx, stopFlushing := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		_ = s.Run(flushCtx, cfg.FlushInterval)
	}()
	defer func() {
		stopFlushing()
		<-flushDone
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Shutting down")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("killing server: %w", err)
			}
		}
		logger.Info("Replication server stopped")
		return nil
	}
}

func websocketSettings(c config.WebsocketConfig) websocket.Settings {
	settings := websocket.DefaultSettings()
	settings.WriteTimeout = c.WriteTimeout
	settings.ReadTimeout = c.ReadTimeout
	settings.PingInterval = c.PingInterval
	settings.ReadLimit = c.ReadLimit
	return settings
}
