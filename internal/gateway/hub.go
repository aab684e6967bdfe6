package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PriceTick is the live-price payload the hub fans out. It never reaches
// the analysis core — it feeds a last-price cache
// the gateway reads for display and the WS clients watching a ticker.
type PriceTick struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// wsEnvelope is the wire shape every hub message is wrapped in.
type wsEnvelope struct {
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Client is one WebSocket subscriber.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	topics map[string]bool
}

// Hub fans live price ticks out to subscribed WebSocket clients, grouped
// by ticker channel.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	lastPriceMu sync.RWMutex
	lastPrice   map[string]PriceTick

	register   chan *Client
	unregister chan *Client
}

// NewHub returns a hub with no clients; call Run in a goroutine before
// accepting connections.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger.Named("hub"),
		clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		lastPrice:  make(map[string]PriceTick),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes client (un)registration until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				for topic := range c.topics {
					if subs, ok := h.channels[topic]; ok {
						delete(subs, c)
						if len(subs) == 0 {
							delete(h.channels, topic)
						}
					}
				}
			}
			h.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// Subscribe adds c to topic's fan-out set.
func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[topic] == nil {
		h.channels[topic] = make(map[*Client]bool)
	}
	h.channels[topic][c] = true
	c.mu.Lock()
	c.topics[topic] = true
	c.mu.Unlock()
}

// Unsubscribe removes c from topic's fan-out set.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, topic)
		}
	}
	c.mu.Lock()
	delete(c.topics, topic)
	c.mu.Unlock()
}

// PublishPrice updates the last-price cache for tick.Ticker and fans the
// tick out to every client subscribed to "price:<ticker>".
func (h *Hub) PublishPrice(tick PriceTick) {
	h.lastPriceMu.Lock()
	h.lastPrice[tick.Ticker] = tick
	h.lastPriceMu.Unlock()

	data, err := json.Marshal(tick)
	if err != nil {
		h.logger.Error("marshal price tick", zap.Error(err))
		return
	}
	h.publish("price:"+tick.Ticker, data)
}

// LastPrice returns the most recent tick seen for ticker, if any.
func (h *Hub) LastPrice(ticker string) (PriceTick, bool) {
	h.lastPriceMu.RLock()
	defer h.lastPriceMu.RUnlock()
	tick, ok := h.lastPrice[ticker]
	return tick, ok
}

func (h *Hub) publish(channel string, data json.RawMessage) {
	env := wsEnvelope{Channel: channel, Data: data, Timestamp: time.Now().UnixMilli()}
	msg, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal envelope", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channel] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// NewClient wraps conn in a Client registered with hub.
func NewClient(hub *Hub, id string, conn *websocket.Conn) *Client {
	return &Client{id: id, hub: hub, conn: conn, send: make(chan []byte, 256), topics: make(map[string]bool)}
}

// Register hands the client to the hub's registration loop and starts its
// read/write pumps.
func (c *Client) Register() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

type clientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(32 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("read error", zap.Error(err))
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			c.hub.Subscribe(c, msg.Topic)
		case "unsubscribe":
			c.hub.Unsubscribe(c, msg.Topic)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
