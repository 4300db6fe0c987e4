// Package websocket streams accepted HL7 messages to WebSocket clients.
// Clients subscribe to topics: a message code such as "ADT", a code and
// trigger such as "ADT^A01", or "*" for everything.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/auth"
	"github.com/ehr/hl7engine/internal/platform/forward"
)

// AllTopics subscribes to every message.
const AllTopics = "*"

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Notice is what a client receives for each message. Raw is included only
// when the client asked for it on connect.
type Notice struct {
	Topic string        `json:"topic"`
	Event forward.Event `json:"event"`
}

// ClientMessage is an inbound subscribe or unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one WebSocket connection.
type Client struct {
	ID      string
	Subject string
	send    chan []byte
	withRaw bool

	// guarded by Hub.mu
	topics map[string]struct{}
}

func newClient(subject string, withRaw bool, topics []string) *Client {
	c := &Client{
		ID:      uuid.NewString(),
		Subject: subject,
		send:    make(chan []byte, sendBuffer),
		withRaw: withRaw,
		topics:  make(map[string]struct{}),
	}
	for _, t := range topics {
		if t != "" {
			c.topics[t] = struct{}{}
		}
	}
	return c
}

// Hub tracks clients and their subscriptions. It implements
// forward.Publisher so accepted messages fan out to subscribers.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> clients
	all     map[*Client]struct{}
	closed  bool
	logger  zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "hl7-live-feed").Logger(),
	}
}

// Register adds a client with its initial topics. It returns false once
// the hub is closed.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.all[c] = struct{}{}
	for t := range c.topics {
		h.addLocked(c, t)
	}
	return true
}

// Unregister removes c and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	for t := range c.topics {
		h.removeLocked(c, t)
	}
	delete(h.all, c)
	close(c.send)
}

// Subscribe adds topics to a registered client.
func (h *Hub) Subscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	for _, t := range topics {
		if t == "" {
			continue
		}
		c.topics[t] = struct{}{}
		h.addLocked(c, t)
	}
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		if _, ok := c.topics[t]; !ok {
			continue
		}
		delete(c.topics, t)
		h.removeLocked(c, t)
	}
}

func (h *Hub) addLocked(c *Client, topic string) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][c] = struct{}{}
}

func (h *Hub) removeLocked(c *Client, topic string) {
	if subs, ok := h.clients[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.clients, topic)
		}
	}
}

// ProcessMessage applies a client request.
func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

// Topics returns the topics an event is delivered on, most specific first.
func Topics(e forward.Event) []string {
	out := make([]string, 0, 3)
	if e.MessageType != "" {
		if e.TriggerEvent != "" {
			out = append(out, e.MessageType+"^"+e.TriggerEvent)
		}
		out = append(out, e.MessageType)
	}
	return append(out, AllTopics)
}

// Publish delivers e to every client subscribed to one of its topics. A
// client whose buffer is full misses the notice rather than stalling the
// pipeline.
func (h *Hub) Publish(_ context.Context, e forward.Event) error {
	topics := Topics(e)
	full, err := json.Marshal(Notice{Topic: topics[0], Event: e})
	if err != nil {
		return err
	}
	trimmed := e
	trimmed.Raw = ""
	summary, err := json.Marshal(Notice{Topic: topics[0], Event: trimmed})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := make(map[*Client]struct{})
	for _, t := range topics {
		for c := range h.clients[t] {
			if _, done := delivered[c]; done {
				continue
			}
			delivered[c] = struct{}{}
			data := summary
			if c.withRaw {
				data = full
			}
			select {
			case c.send <- data:
			default:
				h.logger.Warn().Str("client", c.ID).Str("control_id", e.ControlID).Msg("client too slow, notice dropped")
			}
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.all {
		close(c.send)
	}
	h.all = make(map[*Client]struct{})
	h.clients = make(map[string]map[*Client]struct{})
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades HTTP requests to WebSocket connections on the hub.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler creates a handler. Browser connections are accepted only from
// origins; requests without an Origin header are always accepted.
func NewHandler(hub *Hub, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// RegisterRoutes registers GET /messages/stream for viewers.
//
//	?topic=ADT&topic=ORU^R01  initial subscriptions (default "*")
//	?raw=true                 include the ER7 text in each notice
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleViewer, auth.RoleIntegration))
	read.GET("/messages/stream", h.Connect)
}

// Connect upgrades the connection and starts its pumps.
func (h *Handler) Connect(c echo.Context) error {
	topics := c.QueryParams()["topic"]
	if len(topics) == 0 {
		topics = []string{AllTopics}
	}
	withRaw := c.QueryParam("raw") == "true"

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		return nil
	}
	client := newClient(auth.UserIDFromContext(c.Request().Context()), withRaw, topics)
	if !h.hub.Register(client) {
		ws.WriteControl(gorillawebsocket.CloseMessage,
			gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		ws.Close()
		return nil
	}
	h.hub.logger.Debug().Str("client", client.ID).Str("subject", client.Subject).Strs("topics", topics).Msg("live feed client connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(c *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(c)
		ws.Close()
	}()
	ws.SetReadLimit(4096)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		h.hub.ProcessMessage(c, msg)
	}
}

func (h *Handler) writePump(c *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
