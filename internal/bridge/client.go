package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 128
)

var errClientClosed = errors.New("bridge: client closed")

var errSendQueueFull = errors.New("bridge: send queue full")

type outbound struct {
	text bool
	data []byte
}

// Client is one connected browser.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string

	out  chan outbound
	done chan struct{}
	once sync.Once

	mu         sync.Mutex
	sampleRate int

	metrics *observability.Metrics
	logger  zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	id := observability.NewCorrelationID()
	metrics := observability.NewSessionMetrics(id)
	metrics.RecordSessionStart()

	return &Client{
		hub:     hub,
		conn:    conn,
		id:      id,
		out:     make(chan outbound, sendQueueSize),
		done:    make(chan struct{}),
		metrics: metrics,
		logger:  observability.WithCorrelationID(id).With().Str("component", "bridge").Logger(),
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		c := newClient(h, conn)
		h.register(c)
		go c.writePump()
		c.readPump()
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		c.metrics.RecordSessionEnd()
		_ = c.conn.Close()
	})
}

// readPump handles incoming messages until the connection fails.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
				c.metrics.RecordError("ws_read_error", "bridge")
			}
			return
		}

		if kind == websocket.BinaryMessage {
			c.hub.handleAudio(c, data)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse client message")
			continue
		}
		c.hub.handle(c, msg)
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			kind := websocket.BinaryMessage
			if msg.text {
				kind = websocket.TextMessage
			}
			if err := c.conn.WriteMessage(kind, msg.data); err != nil {
				c.logger.Error().Err(err).Msg("WebSocket write error")
				c.metrics.RecordError("ws_write_error", "bridge")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// send queues msg without blocking.
func (c *Client) send(msg outbound) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.out <- msg:
		return nil
	default:
		c.logger.Warn().Msg("Send queue full, dropping message")
		return errSendQueueFull
	}
}

func (c *Client) sendJSON(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.send(outbound{text: true, data: data})
}

func (c *Client) sendBinary(data []byte) error {
	return c.send(outbound{data: data})
}

func (c *Client) lastSampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

func (c *Client) setSampleRate(rate int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sampleRate = rate
}
