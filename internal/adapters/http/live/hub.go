// Package live serves the calculator form over WebSocket. Each connection
// owns one form; every frame the page sends is applied to it and the new
// state is pushed back.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/zscore/internal/domain/form"
	"github.com/okian/zscore/pkg/logger"
	"github.com/okian/zscore/pkg/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	defaultPingInterval = 54 * time.Second
	defaultReadLimit    = 1024
)

// Event names sent to clients.
const (
	EventForm  = "form"
	EventError = "error"
)

// Dependencies required by the hub.
type Dependencies interface {
	ApplyForm(ctx context.Context, f form.Form, a form.Action) (form.Form, error)
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event   string     `json:"event"`
	Data    *form.View `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Hub manages WebSocket sessions.
type Hub struct {
	deps           Dependencies
	pingInterval   time.Duration
	readLimit      int64
	allowedOrigins []string
	logger         logger.Logger
	upgrader       websocket.Upgrader

	mu      sync.RWMutex
	clients map[*session]struct{}
}

// session is one connected page and the form it is editing. The form is only
// touched by the session's read loop.
type session struct {
	conn *websocket.Conn
	send chan []byte
	form form.Form
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithPingInterval sets how often ping frames are sent. Clients that do not
// answer within a little over one interval are dropped.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithReadLimit caps the size of a single client frame.
func WithReadLimit(n int64) Option {
	return func(h *Hub) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithAllowedOrigins lists cross-origin pages allowed to connect. Same-origin
// pages are always allowed.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		h.allowedOrigins = append([]string(nil), origins...)
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Hub that applies client frames through deps.
func New(deps Dependencies, opts ...Option) *Hub {
	h := &Hub{
		deps:         deps,
		pingInterval: defaultPingInterval,
		readLimit:    defaultReadLimit,
		clients:      make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("live")
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Register attaches the WebSocket endpoint to mux.
func (h *Hub) Register(_ context.Context, mux *http.ServeMux) {
	mux.Handle("/ws", h)
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The empty form is sent immediately on connect. Blocks until the connection
// closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	s := &session{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		form: form.New(),
	}
	h.register(s)
	defer h.unregister(s)

	h.push(s, formMessage(s.form))

	go h.writePump(s)
	h.readPump(r.Context(), s) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.clients[s] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateLiveSessions(n)
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	if _, ok := h.clients[s]; ok {
		delete(h.clients, s)
		close(s.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateLiveSessions(n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for s := range h.clients {
		close(s.send)
		delete(h.clients, s)
	}
	h.mu.Unlock()
	metrics.UpdateLiveSessions(0)
}

// push queues msg for s. A client whose buffer is full is disconnected.
func (h *Hub) push(s *session, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), "encode live message", logger.Error(err))
		data, _ = json.Marshal(Message{Event: EventError, Message: "internal error"})
	}

	h.mu.RLock()
	_, ok := h.clients[s]
	full := false
	if ok {
		select {
		case s.send <- data:
			metrics.RecordLiveMessage("out")
		default:
			full = true
		}
	}
	h.mu.RUnlock()

	if full {
		h.unregister(s)
	}
}

func formMessage(f form.Form) Message {
	v := f.View()
	return Message{Event: EventForm, Data: &v}
}

func (h *Hub) pongWait() time.Duration {
	return h.pingInterval * 10 / 9
}

// writePump drains the session's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames.
func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump applies each client frame to the session's form and pushes the
// result. Blocks until the connection closes.
func (h *Hub) readPump(ctx context.Context, s *session) {
	defer func() { _ = s.conn.Close() }()
	s.conn.SetReadLimit(h.readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrReadLimit) {
				h.logger.Debug(ctx, "live session closed", logger.Error(err))
			}
			return
		}
		metrics.RecordLiveMessage("in")

		var a form.Action
		if err := json.Unmarshal(data, &a); err != nil {
			h.push(s, Message{Event: EventError, Message: "malformed frame: " + err.Error()})
			continue
		}
		next, err := h.deps.ApplyForm(ctx, s.form, a)
		if err != nil {
			h.push(s, Message{Event: EventError, Message: err.Error()})
			continue
		}
		s.form = next
		h.push(s, formMessage(next))
		// Notices are one-shot.
		s.form.Notice = nil
	}
}
