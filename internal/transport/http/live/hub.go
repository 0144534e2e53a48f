package livehttp

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/observability"
	"papertrade/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 4
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// marketMessage is the frame pushed to websocket clients.
type marketMessage struct {
	Type        string              `json:"type"`
	Time        time.Time           `json:"time"`
	Instruments []market.Instrument `json:"instruments"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans tick snapshots out to websocket clients. A client that cannot
// keep up is dropped rather than slowing the tick.
type Hub struct {
	snapshot func() []market.Instrument
	metrics  *observability.Metrics

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func NewHub(snapshot func() []market.Instrument, metrics *observability.Metrics) *Hub {
	return &Hub{
		snapshot: snapshot,
		metrics:  metrics,
		clients:  make(map[*wsClient]struct{}),
	}
}

// Publish is registered as a simulation listener.
func (h *Hub) Publish(snap simulation.Snapshot) {
	payload, err := json.Marshal(marketMessage{Type: "market", Time: snap.At, Instruments: snap.Instruments})
	if err != nil {
		logger.Errorf("[ws] encode snapshot failed: %v", err)
		return
	}
	h.broadcast(payload)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			logger.Warnf("[ws] client %s too slow, dropping", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

func (h *Hub) add(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.AddWebsocketClients(1)
	return true
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	h.metrics.AddWebsocketClients(-1)
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// Serve upgrades the request and streams snapshots until the client leaves.
// The current market is sent right after the upgrade.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade failed ip=%s err=%v", c.ClientIP(), err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if h.snapshot != nil {
		if payload, err := json.Marshal(marketMessage{Type: "market", Time: time.Now(), Instruments: h.snapshot()}); err == nil {
			client.send <- payload
		}
	}
	if !h.add(client) {
		_ = conn.Close()
		return
	}
	logger.Debugf("[ws] client connected ip=%s", c.ClientIP())

	go h.writePump(client)
	h.readPump(client)
}

// readPump only drains control frames; it returns when the peer goes away.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)
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

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
