// Package stream broadcasts live quotes to websocket subscribers. A single
// hub goroutine owns the client registry; a polling goroutine fetches quotes
// for the union of subscribed symbols and feeds them into the broadcast
// channel.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"stockwatch/models"
	"stockwatch/services/quotes"
)

// Constants for hub configuration
const (
	MaxClients          = 100
	WriteTimeout        = 10 * time.Second
	PongTimeout         = 60 * time.Second
	PingInterval        = 30 * time.Second
	DefaultPollInterval = 5 * time.Second
	sendBufferSize      = 16
)

// Message is one frame pushed to subscribers
type Message struct {
	Type string         `json:"type"`
	Data []models.Quote `json:"data"`
	Time string         `json:"time"`
}

// Client represents one websocket subscriber
type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	subscribed map[string]bool
	mu         sync.RWMutex
}

// wantsAny reports whether the client subscribed to any of the quoted symbols
func (c *Client) wantsAny(fetched []models.Quote) []models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.subscribed) == 0 {
		return fetched
	}
	matched := make([]models.Quote, 0, len(fetched))
	for _, q := range fetched {
		if c.subscribed[q.Symbol] {
			matched = append(matched, q)
		}
	}
	return matched
}

// Hub manages websocket clients and quote polling
type Hub struct {
	quotes     *quotes.Client
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []models.Quote
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	interval   time.Duration
}

// NewHub creates a hub polling quotes at the given interval.
// A zero interval selects the default.
func NewHub(client *quotes.Client, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Hub{
		quotes:     client,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []models.Quote, 64),
		stop:       make(chan struct{}),
		interval:   interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run starts the hub and polling loops. It returns immediately.
func (h *Hub) Run() {
	go h.runHub()
	go h.runPoller()
}

// Stop shuts the hub down and disconnects all clients
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// runHub owns the client registry and fans quotes out to subscribers
func (h *Hub) runHub() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("Websocket client connected (%d total)", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case fetched := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				matched := client.wantsAny(fetched)
				if len(matched) == 0 {
					continue
				}
				payload, err := json.Marshal(Message{
					Type: "quotes",
					Data: matched,
					Time: time.Now().UTC().Format(time.RFC3339),
				})
				if err != nil {
					continue
				}
				select {
				case client.send <- payload:
				default:
					// Slow consumer, drop the frame
				}
			}
			h.mu.RUnlock()

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// runPoller fetches quotes for the union of subscribed symbols
func (h *Hub) runPoller() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			symbols := h.subscribedSymbols()
			if len(symbols) == 0 {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), h.interval)
			fetched := h.quotes.Quotes(ctx, symbols)
			cancel()

			if len(fetched) > 0 {
				select {
				case h.broadcast <- fetched:
				case <-h.stop:
					return
				}
			}

		case <-h.stop:
			return
		}
	}
}

// subscribedSymbols returns the distinct symbols across all clients
func (h *Hub) subscribedSymbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	var symbols []string
	for client := range h.clients {
		client.mu.RLock()
		for symbol := range client.subscribed {
			if !seen[symbol] {
				seen[symbol] = true
				symbols = append(symbols, symbol)
			}
		}
		client.mu.RUnlock()
	}
	return symbols
}

// ServeWS upgrades the connection and registers the subscriber.
// Symbols come from the comma-separated "symbols" query parameter.
// GET /ws/prices?symbols=AAPL,MSFT
func (h *Hub) ServeWS(c *gin.Context) {
	h.mu.RLock()
	count := len(h.clients)
	h.mu.RUnlock()
	if count >= MaxClients {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many connections"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	subscribed := make(map[string]bool)
	for _, symbol := range strings.Split(c.Query("symbols"), ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol != "" {
			subscribed[symbol] = true
		}
	}

	client := &Client{
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		subscribed: subscribed,
	}

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// writePump forwards frames to the socket and keeps the connection alive
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames so pongs are processed, and handles
// subscription updates of the form {"subscribe": ["AAPL"]}
func (h *Hub) readPump(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stop:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(1024)
	client.conn.SetReadDeadline(time.Now().Add(PongTimeout))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(PongTimeout))
		return nil
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var request struct {
			Subscribe []string `json:"subscribe"`
		}
		if err := json.Unmarshal(payload, &request); err != nil || len(request.Subscribe) == 0 {
			continue
		}

		client.mu.Lock()
		for _, symbol := range request.Subscribe {
			symbol = strings.ToUpper(strings.TrimSpace(symbol))
			if symbol != "" {
				client.subscribed[symbol] = true
			}
		}
		client.mu.Unlock()
	}
}
