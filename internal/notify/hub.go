// Package notify fans fresh predictions out to dashboard websocket clients and MQTT subscribers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

const (
	channelWebsocket = "websocket"
	channelMQTT      = "mqtt"

	// MessageTypePrediction tags prediction envelopes
	MessageTypePrediction = "prediction"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 8
)

// Publisher receives every freshly computed prediction
type Publisher interface {
	Publish(ctx context.Context, result *models.PredictionResult) error
}

// Message is the envelope written to subscribers
type Message struct {
	Type string                   `json:"type"`
	Data *models.PredictionResult `json:"data"`
}

func encode(result *models.PredictionResult) ([]byte, error) {
	data, err := json.Marshal(Message{Type: MessageTypePrediction, Data: result})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction: %w", err)
	}
	return data, nil
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub broadcasts predictions to connected websocket clients. A client that connects
// receives the most recent prediction immediately.
type Hub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	last     []byte
	closed   bool
	upgrader websocket.Upgrader
	logger   *logrus.Entry
}

// NewHub creates a websocket hub. An empty allowedOrigins accepts any origin.
func NewHub(allowedOrigins []string, logger *logrus.Logger) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger.WithField("component", "websocket_hub"),
	}
}

// Publish implements Publisher. Slow clients whose buffer is full are disconnected.
func (h *Hub) Publish(_ context.Context, result *models.PredictionResult) error {
	data, err := encode(result)
	if err != nil {
		metrics.RecordNotification(channelWebsocket, err)
		return err
	}

	h.mu.Lock()
	h.last = data
	var dropped int
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			c.close()
			dropped++
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	if dropped > 0 {
		h.logger.WithField("dropped", dropped).Warn("Disconnected slow websocket clients")
		metrics.UpdateWebsocketClients(count)
	}
	metrics.RecordNotification(channelWebsocket, nil)
	return nil
}

// ServeHTTP upgrades the request and streams predictions until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}
	if err := h.register(c); err != nil {
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *wsClient) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("hub closed")
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	metrics.UpdateWebsocketClients(len(h.clients))
	return nil
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateWebsocketClients(count)
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(c *wsClient) {
	defer h.unregister(c)

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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.WithError(err).Debug("Websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	metrics.UpdateWebsocketClients(0)
}
