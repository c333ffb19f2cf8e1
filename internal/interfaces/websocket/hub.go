// internal/interfaces/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/events"
)

const (
	maxMessageSize  = 512
	broadcastBuffer = 256
)

// Hub pushes inventory events to connected dashboards. The client set is
// owned by the Run goroutine; everything else talks to it over channels.
type Hub struct {
	config   config.RealtimeConfig
	upgrader websocket.Upgrader
	log      *logrus.Logger

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
}

// NewHub creates a hub. allowedOrigins follows the CORS setting; "*"
// accepts any origin.
func NewHub(cfg config.RealtimeConfig, allowedOrigins []string, log *logrus.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}

	h := &Hub{
		config:     cfg,
		log:        log,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Run owns the client set until ctx is done, then disconnects everyone
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// A client that cannot keep up is cut loose and will reload on reconnect.
					h.log.WithField("remote_addr", c.remoteAddr).Warn("Dropping slow websocket client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Broadcast queues evt for every client. It never blocks; when the queue
// is full the event is dropped.
func (h *Hub) Broadcast(evt events.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Warn("Failed to encode websocket event")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.WithField("type", evt.Type).Warn("Websocket broadcast queue full, dropping event")
	}
}

// Publish implements events.Publisher for single-instance setups without
// Redis
func (h *Hub) Publish(_ context.Context, evts ...events.Event) error {
	for _, evt := range evts {
		h.Broadcast(evt)
	}
	return nil
}

// ServeWS upgrades the request and attaches the connection to the hub
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	cl := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, h.config.SendBuffer),
		remoteAddr: c.ClientIP(),
	}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go cl.writePump()
	go cl.readPump()
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
