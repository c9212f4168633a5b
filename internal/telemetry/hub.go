// Package telemetry streams simulation snapshots to WebSocket clients.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/robosim/internal/config"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/manual"
	"github.com/zeusync/robosim/internal/core/observability/log"
)

// ErrHubClosed is returned by Serve and Attach after Close.
var ErrHubClosed = errors.New("telemetry hub is closed")

const writeWait = time.Second

// KeyEvent is a control message sent by a client to drive manual mode.
type KeyEvent struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans snapshots out to every connected client. Each client has its own
// bounded queue; a full queue drops the message for that client only.
type Hub struct {
	upgrader websocket.Upgrader
	buffer   int
	every    int
	log      log.Log
	keys     *manual.KeyState

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	received atomic.Uint64
	dropped  atomic.Uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithKeys lets clients press and release keys on ks.
func WithKeys(ks *manual.KeyState) Option {
	return func(h *Hub) { h.keys = ks }
}

// New builds an idle hub. Frames flow once it is attached to a bus, and
// clients can connect once Serve or ServeHTTP runs.
func New(cfg config.Telemetry, l log.Log, opts ...Option) *Hub {
	if l == nil {
		l = log.Nop()
	}
	buffer, every := cfg.Buffer, cfg.Every
	if buffer < 1 {
		buffer = 1
	}
	if every < 1 {
		every = 1
	}
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		buffer:  buffer,
		every:   every,
		log:     l.With(log.String("component", "telemetry")),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and streams to it until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "closed"))
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("client connected", log.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop applies key events from the client and notices disconnects. Other
// messages are ignored. Keys still held by the client are released when it
// goes away so a dropped operator never leaves the car driving.
func (h *Hub) readLoop(c *client) {
	held := make(map[manual.Key]struct{})
	defer func() {
		for k := range held {
			h.keys.Release(k)
		}
		h.remove(c)
	}()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if h.keys == nil {
			continue
		}
		var ev KeyEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			h.log.Debug("bad control message", log.Error(err))
			continue
		}
		k, err := manual.ParseKey(ev.Key)
		if err != nil {
			h.log.Debug("bad control message", log.Error(err))
			continue
		}
		if ev.Pressed {
			h.keys.Press(k)
			held[k] = struct{}{}
		} else {
			h.keys.Release(k)
			delete(held, k)
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("write failed", log.Error(err))
			h.remove(c)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
		h.log.Info("client disconnected", log.String("remote", c.conn.RemoteAddr().String()))
	}
}

// Broadcast encodes v as JSON and queues it for every client.
func (h *Hub) Broadcast(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Attach broadcasts the payload of every n-th sim.tick event published on b.
func (h *Hub) Attach(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(bus.TypeSimTick, func(e bus.Event) error {
		if n := h.received.Add(1); (n-1)%uint64(h.every) != 0 {
			return nil
		}
		if err := h.Broadcast(e.Data()); err != nil && !errors.Is(err, ErrHubClosed) {
			return err
		}
		return nil
	})
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts messages discarded because a client queue was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every client. Later broadcasts return ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
	return nil
}

// Serve listens on addr and serves the hub at path until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("telemetry listening", log.String("addr", addr), log.String("path", path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.log.Info("telemetry stopping", log.Int("clients", h.Clients()), log.Uint64("dropped", h.Dropped()))
	_ = h.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}
