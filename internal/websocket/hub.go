package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Chat frames waiting for the pipeline, per connection.
	pendingRequests = 8
)

var upgrader = websocket.Upgrader{
	// Same policy as the CORS middleware on the HTTP routes
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ChatResponder answers one user message
type ChatResponder interface {
	Chat(ctx context.Context, message string) (*domain.ResponseEnvelope, error)
}

// Hub maintains the set of active clients and serves their chat frames.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	mu sync.RWMutex

	chat    ChatResponder
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub; metrics may be nil
func NewHub(chat ChatResponder, metrics *observability.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		chat:       chat,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run starts the hub's main loop and closes every client once ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.ActiveWSConnection.Inc()
			}
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.cancel()
				if h.metrics != nil {
					h.metrics.ActiveWSConnection.Dec()
				}
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.cancel()
				client.conn.Close()
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	// Chat frames in arrival order.
	requests chan InboundMessage

	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 16),
		requests: make(chan InboundMessage, pendingRequests),
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		logger:   hub.logger.With(zap.String("clientID", id)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		cancel()
		conn.Close()
		hub.logger.Warn("Rejected WebSocket client, hub stopped")
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.chatPump()
	go client.readPump()

	return nil
}

// readPump pumps frames from the websocket connection to the chat pump.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unsupported frame type", zap.Int("type", messageType))
			continue
		}

		msg, err := ParseInboundMessage(data)
		if err != nil {
			c.logger.Warn("Rejected frame", zap.Error(err))
			frame := NewChatResponse("", http.StatusBadRequest, nil)
			frame.Error = err.Error()
			c.enqueue(frame)
			c.observe(observability.OutcomeBadRequest, 0)
			continue
		}

		if msg.Type == MessageTypePing {
			c.enqueue(PongMessage{Type: MessageTypePong, ID: msg.ID})
			continue
		}

		select {
		case c.requests <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// chatPump answers chat frames one at a time so replies keep request order.
func (c *Client) chatPump() {
	for {
		select {
		case msg := <-c.requests:
			c.enqueue(c.answer(msg))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) answer(msg InboundMessage) ChatResponseMessage {
	started := time.Now()

	envelope, err := c.hub.chat.Chat(c.ctx, msg.Message)
	if err != nil {
		c.logger.Error("Failed to answer chat message", zap.String("id", msg.ID), zap.Error(err))
		c.observe(observability.OutcomeError, time.Since(started))
		return NewChatResponse(msg.ID, http.StatusInternalServerError, domain.FallbackEnvelope())
	}

	c.observe(observability.OutcomeOK, time.Since(started))
	return NewChatResponse(msg.ID, http.StatusOK, envelope)
}

func (c *Client) observe(outcome string, d time.Duration) {
	if c.hub.metrics != nil {
		c.hub.metrics.ObserveChat(observability.TransportWebSocket, outcome, d)
	}
}

func (c *Client) enqueue(frame interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("Failed to encode frame", zap.Error(err))
		return
	}
	select {
	case c.send <- payload:
	case <-c.ctx.Done():
	}
}

// writePump pumps frames to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
