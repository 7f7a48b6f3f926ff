package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/hapticqueue/pkg/logger"
)

var (
	ErrHubClosed  = errors.New("feed hub is closed")
	ErrHubFull    = errors.New("feed hub reached its client limit")
	ErrNotRunning = errors.New("feed hub is not running")
)

const (
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger.
func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCheckOrigin overrides the websocket origin check. By default same-origin
// requests and requests without an Origin header are accepted.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// Hub fans feed events out to websocket clients. One goroutine (Run) owns
// the client set; each client has its own write pump with a bounded buffer,
// and clients that fall behind are disconnected.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	running    atomic.Bool
	count      atomic.Int32
}

// NewHub creates a hub. Call Run to start it.
func NewHub(cfg Config, opts ...HubOption) *Hub {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 200
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}

	h := &Hub{
		cfg:        cfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, cfg.SendBuffer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("feed.hub"))
	return h
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Run returns a function for errgroup that owns the client set until ctx is
// done, then closes every connection.
func (h *Hub) Run(ctx context.Context) func() error {
	return func() error {
		h.running.Store(true)
		defer close(h.done)

		clients := make(map[*client]struct{})
		drop := func(c *client) {
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.count.Store(int32(len(clients)))
			}
		}

		for {
			select {
			case <-ctx.Done():
				for c := range clients {
					drop(c)
				}
				h.logger.Info("feed hub stopped")
				return nil

			case c := <-h.register:
				if len(clients) >= h.cfg.MaxClients {
					close(c.send)
					h.logger.Warn("websocket client rejected", slog.Int("max_clients", h.cfg.MaxClients))
					continue
				}
				clients[c] = struct{}{}
				h.count.Store(int32(len(clients)))
				h.logger.Debug("websocket client registered", slog.String("client_id", c.id), slog.Int("clients", len(clients)))

			case c := <-h.unregister:
				drop(c)

			case msg := <-h.broadcast:
				for c := range clients {
					select {
					case c.send <- msg:
					default:
						h.logger.Warn("websocket client too slow, disconnecting", slog.String("client_id", c.id))
						drop(c)
					}
				}
			}
		}
	}
}

// Publish queues ev for every connected client. It waits only for room in
// the hub's broadcast buffer.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if !h.running.Load() {
		return ErrNotRunning
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client goes away or the hub stops. Inbound messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.running.Load() {
		http.Error(w, ErrNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}
	if h.ClientCount() >= h.cfg.MaxClients {
		http.Error(w, ErrHubFull.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{id: uuid.New().String(), conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
