package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/domsync"
	"github.com/aretw0/domsync/internal/logging"
	"github.com/aretw0/domsync/pkg/adapters/websocket"
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/hub"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/aretw0/domsync/pkg/scene"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxPacketBytes bounds POST /packet bodies.
const DefaultMaxPacketBytes = 16 << 20

// Hub defines what the HTTP surface needs from the replication hub.
type Hub interface {
	Connect(ch ports.Channel) hub.Handle
	Disconnect(h hub.Handle) bool
	Ingest(msg []byte) error
	Connections() int
}

// Server serves the hub over HTTP.
type Server struct {
	Hub      Hub
	Scene    func() string
	Snapshot func() scene.Snapshot
	Gatherer prometheus.Gatherer
	Settings websocket.Settings
	MaxBytes int64
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithScene exposes the current scene markup on GET /scene.
func WithScene(render func() string) Option {
	return func(s *Server) { s.Scene = render }
}

// WithSnapshot enables GET /scene?format=json|msgpack.
func WithSnapshot(snapshot func() scene.Snapshot) Option {
	return func(s *Server) { s.Snapshot = snapshot }
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.Gatherer = g }
}

// WithWebsocketSettings configures accepted websocket connections.
func WithWebsocketSettings(settings websocket.Settings) Option {
	return func(s *Server) { s.Settings = settings }
}

// WithLogger configures a logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the hub.
func NewHandler(h Hub, opts ...Option) http.Handler {
	server := &Server{
		Hub:      h,
		Settings: websocket.DefaultSettings(),
		MaxBytes: DefaultMaxPacketBytes,
		Logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/scene", server.GetScene)
	r.Get("/ws", server.Websocket)
	r.Get("/events", server.SubscribeEvents)
	r.Post("/packet", server.PostPacket)
	if server.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(server.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "domsync",
		"version":     strings.TrimSpace(domsync.Version),
		"connections": s.Hub.Connections(),
	})
}

// GetScene handles the GET /scene request.
// The default format is the scene markup; json and msgpack return a snapshot.
func (s *Server) GetScene(w http.ResponseWriter, r *http.Request) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "xml":
	case "json", "msgpack":
		s.writeSnapshot(w, format)
		return
	default:
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}
	if s.Scene == nil {
		http.Error(w, "Scene rendering not configured", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, s.Scene())
}

func (s *Server) writeSnapshot(w http.ResponseWriter, format string) {
	if s.Snapshot == nil {
		http.Error(w, "Scene snapshots not configured", http.StatusNotFound)
		return
	}
	snap := s.Snapshot()
	if format == "json" {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	data, err := scene.EncodeSnapshot(snap)
	if err != nil {
		s.Logger.Error("encode snapshot", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	_, _ = w.Write(data)
}

// PostPacket handles the POST /packet request.
// Entries that were applied stay applied even when others are rejected.
func (s *Server) PostPacket(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.MaxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Packet too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PostPacket: Invalid request body", "error", err)
		return
	}

	if err := s.Hub.Ingest(body); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, domain.ErrParse) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Websocket handles the GET /ws request and keeps the connection registered
// with the hub until it closes.
func (s *Server) Websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Upgrade(w, r, s.Settings)
	if err != nil {
		s.Logger.Warn("Websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	handle := s.Hub.Connect(conn)
	s.Logger.Info("Websocket peer connected", "handle", handle, "remote", r.RemoteAddr)

	<-conn.Done()
	s.Hub.Disconnect(handle)
	_ = conn.Close()
	s.Logger.Info("Websocket peer disconnected", "handle", handle, "err", conn.Err())
}

// SubscribeEvents handles the GET /events request (SSE).
// The stream is send-only: every broadcast packet becomes one "packet" event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream := NewStream(streamBuffer)
	handle := s.Hub.Connect(stream)
	defer s.Hub.Disconnect(handle)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE client disconnected", "handle", handle)
			return
		case msg := <-stream.C():
			writeEvent(w, "packet", msg)
			flusher.Flush()
		}
	}
}

// writeEvent writes msg as one SSE event, one data line per packet line.
func writeEvent(w io.Writer, event string, msg []byte) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(string(msg), "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
