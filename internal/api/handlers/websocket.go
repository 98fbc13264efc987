package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/nward/askbox/internal/api/middleware"
	"github.com/nward/askbox/internal/realtime"
	"github.com/nward/askbox/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WebSocketHandler bridges live subscriptions to browser clients. One socket
// carries any number of logical subscriptions, keyed by a client-chosen id.
type WebSocketHandler struct {
	manager  *realtime.Manager
	sessions *session.Store
}

func NewWebSocketHandler(manager *realtime.Manager, sessions *session.Store) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		sessions: sessions,
	}
}

type wsMessage struct {
	Type    string   `json:"type"`
	ID      string   `json:"id,omitempty"`
	Kind    string   `json:"kind,omitempty"` // "document" | "collection"
	Path    string   `json:"path,omitempty"`
	Equals  []string `json:"equals,omitempty"`  // [field, value]
	OrderBy []string `json:"orderBy,omitempty"` // [field, "asc"|"desc"]
	Data    any      `json:"data,omitempty"`
	Loading *bool    `json:"loading,omitempty"`
	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Anonymous sockets are allowed: public profile pages subscribe too.
	var userID uuid.UUID
	if principal, ok := h.sessions.Authenticate(r.Context(), r); ok {
		userID = principal.UserID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR [handlers.WebSocket] upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn:    conn,
		manager: h.manager,
		userID:  userID,
		send:    make(chan []byte, 256),
		subs:    make(map[string]*activeSub),
	}

	go client.writePump()
	client.readPump()
}

type activeSub struct {
	key  string // path + kind + serialized query; structural identity
	sub  *realtime.Subscription
	done chan struct{} // forwarder exited
}

type wsClient struct {
	conn    *ws.Conn
	manager *realtime.Manager
	userID  uuid.UUID
	send    chan []byte

	mu   sync.Mutex
	subs map[string]*activeSub
}

func (c *wsClient) readPump() {
	defer func() {
		c.stopAll()
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseAbnormalClosure) {
				log.Printf("ERROR [handlers.WebSocket] read: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("", "INVALID_MESSAGE", "Malformed message")
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.handleSubscribe(&msg)
		case "unsubscribe":
			c.handleUnsubscribe(msg.ID)
		default:
			c.sendError(msg.ID, "UNKNOWN_TYPE", "Unknown message type")
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(ws.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleSubscribe(msg *wsMessage) {
	if msg.ID == "" {
		c.sendError("", "INVALID_SUBSCRIPTION", "Subscription id is required")
		return
	}

	query, err := parseQuery(msg)
	if err != nil {
		c.sendError(msg.ID, "INVALID_SUBSCRIPTION", err.Error())
		return
	}

	if !c.authorized(msg.Path) {
		c.sendError(msg.ID, "FORBIDDEN", "Path requires an authenticated owner")
		return
	}

	key := msg.Kind + "|" + msg.Path + "|" + query.Key()

	c.mu.Lock()
	if existing, ok := c.subs[msg.ID]; ok {
		if existing.key == key {
			// structurally identical resubscribe; nothing to do
			c.mu.Unlock()
			return
		}
		// replace: the old listener must be fully torn down before the new
		// one attaches
		delete(c.subs, msg.ID)
		c.mu.Unlock()
		existing.stop()
		c.mu.Lock()
	}

	var sub *realtime.Subscription
	switch msg.Kind {
	case "collection":
		sub = c.manager.SubscribeCollection(c.viewerCtx(), msg.Path, query)
	default:
		sub = c.manager.SubscribeDocument(c.viewerCtx(), msg.Path)
	}

	active := &activeSub{key: key, sub: sub, done: make(chan struct{})}
	c.subs[msg.ID] = active
	c.mu.Unlock()

	middleware.SubscriptionOpened()
	c.sendLoading(msg.ID)
	go c.forward(msg.ID, active)
}

func (c *wsClient) handleUnsubscribe(id string) {
	c.mu.Lock()
	active, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
	}
	c.mu.Unlock()

	if ok {
		active.stop()
	}
}

func (c *wsClient) stopAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*activeSub)
	c.mu.Unlock()

	for _, active := range subs {
		active.stop()
	}
}

// stop tears the subscription down and waits for its forwarder, so no
// snapshot for this id is written after stop returns.
func (a *activeSub) stop() {
	a.sub.Stop()
	<-a.done
	middleware.SubscriptionClosed()
}

func (c *wsClient) forward(id string, active *activeSub) {
	defer close(active.done)

	for snap := range active.sub.Snapshots() {
		loading := snap.Loading
		out := wsMessage{
			Type:    "snapshot",
			ID:      id,
			Data:    snap.Data,
			Loading: &loading,
		}
		if snap.Err != nil {
			out.Error = publicError(snap.Err)
			log.Printf("ERROR [handlers.WebSocket] subscription %s: %v", id, snap.Err)
		}
		c.enqueue(out)
	}
}

func (c *wsClient) sendLoading(id string) {
	loading := true
	c.enqueue(wsMessage{Type: "snapshot", ID: id, Loading: &loading})
}

func (c *wsClient) sendError(id, code, message string) {
	c.enqueue(wsMessage{Type: "error", ID: id, Code: code, Message: message})
}

func (c *wsClient) enqueue(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ERROR [handlers.WebSocket] marshal: %v", err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("WARN [handlers.WebSocket] dropping frame for slow client")
	}
}

// viewerCtx is the base context every subscription fetch runs under. It is
// never cancelled (Stop ends subscriptions) and carries who is reading, so
// the backend can hide unanswered questions and notes from non-owners.
func (c *wsClient) viewerCtx() context.Context {
	ctx := context.Background()
	if c.userID != uuid.Nil {
		ctx = realtime.WithViewer(ctx, c.userID)
	}
	return ctx
}

// authorized gates private paths: notes are only visible to their owner.
// User documents are public (codecs keep emails out); question visibility
// is per-record, so the backend decides it from the viewer identity.
func (c *wsClient) authorized(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts) >= 3 && parts[0] == "users" && parts[2] == "notes" {
		return c.userID != uuid.Nil && parts[1] == c.userID.String()
	}
	return true
}

var (
	errInvalidFilter = errors.New("equals must be [field, value]")
	errInvalidOrder  = errors.New("orderBy must be [field, asc|desc]")
)

func parseQuery(msg *wsMessage) (realtime.Query, error) {
	var query realtime.Query

	if len(msg.Equals) == 2 {
		query.Equals = &realtime.EqualityFilter{Field: msg.Equals[0], Value: msg.Equals[1]}
	} else if len(msg.Equals) != 0 {
		return query, errInvalidFilter
	}

	if len(msg.OrderBy) == 2 {
		query.OrderBy = &realtime.SortOrder{
			Field:      msg.OrderBy[0],
			Descending: msg.OrderBy[1] == "desc",
		}
	} else if len(msg.OrderBy) != 0 {
		return query, errInvalidOrder
	}

	return query, nil
}

// publicError maps backend failures to the generic message users see; the
// full error has already been logged server-side.
func publicError(err error) string {
	var rtErr *realtime.Error
	if errors.As(err, &rtErr) {
		return "Subscription failed for " + rtErr.Path
	}
	return "Subscription failed"
}
