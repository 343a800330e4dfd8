package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/domsync/internal/presentation/tui"
	"github.com/aretw0/domsync/pkg/adapters/websocket"
)

// Tail connects to a replication server and prints every packet it
// broadcasts until ctx is cancelled or the server goes away.
func Tail(ctx context.Context, url string, w io.Writer) error {
	conn, err := websocket.Dial(ctx, url, websocket.DefaultSettings())
	if err != nil {
		return err
	}
	defer conn.Close()

	h := tui.NewHighlighter(w)
	var mu sync.Mutex
	conn.Subscribe(func(msg []byte) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, h.Packet(string(msg)))
	})

	select {
	case <-ctx.Done():
		return nil
	case <-conn.Done():
		if err := conn.Err(); err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		return nil
	}
}
