// Package websocket adapts gorilla/websocket connections to ports.Channel.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/domsync/internal/fanout"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned by Send after the connection has been closed.
var ErrClosed = errors.New("websocket: connection closed")

// Settings tunes deadlines and keepalive.
type Settings struct {
	// WriteTimeout bounds each outbound frame.
	WriteTimeout time.Duration
	// ReadTimeout closes the connection when nothing, pongs included, arrives
	// for this long. Zero disables it.
	ReadTimeout time.Duration
	// PingInterval sends a ping this often. Zero disables pings.
	PingInterval time.Duration
	// ReadLimit caps the size of an inbound message in bytes. Zero means no limit.
	ReadLimit int64
	// CheckOrigin is passed to the upgrader. Nil applies the same-origin check.
	CheckOrigin func(*http.Request) bool
}

// DefaultSettings returns the settings used by the server.
func DefaultSettings() Settings {
	return Settings{
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		ReadLimit:    16 << 20,
	}
}

// Conn is a ports.Channel over one websocket connection.
// Each received text or binary message is one packet.
type Conn struct {
	ws       *websocket.Conn
	settings Settings
	subs     fanout.Registry

	writeMu   sync.Mutex
	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
	err       error
}

var _ ports.Channel = (*Conn)(nil)

// New wraps an established connection and starts reading from it.
func New(ws *websocket.Conn, settings Settings) *Conn {
	c := &Conn{
		ws:       ws,
		settings: settings,
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	if settings.ReadLimit > 0 {
		ws.SetReadLimit(settings.ReadLimit)
	}
	if settings.ReadTimeout > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		})
	}
	go c.readLoop()
	if settings.PingInterval > 0 {
		go c.pingLoop()
	}
	return c
}

// Dial connects to a websocket endpoint.
func Dial(ctx context.Context, url string, settings Settings) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(ws, settings), nil
}

// Upgrade upgrades an HTTP request to a websocket connection.
// On failure the upgrader has already replied to the client.
func Upgrade(w http.ResponseWriter, r *http.Request, settings Settings) (*Conn, error) {
	upgrader := websocket.Upgrader{CheckOrigin: settings.CheckOrigin}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return New(ws, settings), nil
}

// Send implements ports.Channel.
func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.closing:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(c.deadline()); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

// Subscribe implements ports.Channel.
func (c *Conn) Subscribe(handler func([]byte)) ports.Subscription {
	return c.subs.Subscribe(handler)
}

// Unsubscribe implements ports.Channel.
func (c *Conn) Unsubscribe(sub ports.Subscription) {
	c.subs.Unsubscribe(sub)
}

// Done is closed once the read loop has stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the read loop stopped. It is nil until Done is closed and
// after a local Close.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close sends a close frame, closes the connection and waits for the read
// loop to stop. It must not be called from a subscribed handler.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		select {
		case <-c.done:
			return
		default:
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, c.deadline())
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	<-c.done
	return err
}

func (c *Conn) deadline() time.Time {
	if c.settings.WriteTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.settings.WriteTimeout)
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.err = err
				}
				_ = c.ws.Close()
			}
			return
		}
		c.subs.Deliver(msg)
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, c.deadline())
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
