package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is a context cancelled on SIGINT or SIGTERM that remembers
// which signal cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()

	sigCh  chan os.Signal
	once   sync.Once
	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.once.Do(func() { signal.Stop(sc.sigCh) })
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}
