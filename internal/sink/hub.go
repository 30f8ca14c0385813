package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/llrpd/internal/reading"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrHubClosed = errors.New("sink: websocket hub closed")

// Envelope is the websocket wire shape. Kind is "reading" for tag readings
// and names the event for everything else.
type Envelope struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

type HubConfig struct {
	// Buffer is the per-client queue length. A client whose queue is full
	// is disconnected.
	Buffer       int
	WriteTimeout time.Duration
}

func DefaultHubConfig() HubConfig {
	return HubConfig{Buffer: 64, WriteTimeout: 5 * time.Second}
}

// Hub broadcasts readings and infrastructure events to websocket clients.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultHubConfig().Buffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultHubConfig().WriteTimeout
	}
	return &Hub{
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*hubClient]struct{}),
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

func (h *Hub) Emit(_ context.Context, r reading.Reading) error {
	return h.Publish("reading", r)
}

// Publish broadcasts one envelope to every connected client.
func (h *Hub) Publish(kind string, data any) error {
	payload, err := json.Marshal(Envelope{Kind: kind, At: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	var slow []*hubClient
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("sink.Hub dropping slow client")
		h.remove(c)
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the client until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("sink.Hub upgrade failed")
		return
	}
	c := &hubClient{conn: conn, send: make(chan []byte, h.cfg.Buffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("sink.Hub client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop drains control frames so close and ping are handled.
func (h *Hub) readLoop(c *hubClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = c.conn.Close()
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.once.Do(func() { close(c.send) })
	}
}

// Close disconnects every client and rejects further publishes.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
	}
	return nil
}
