// Package realtime pushes order status changes to connected browsers over websockets.
// Delivery is best-effort: nothing is queued for offline clients, and a client that
// reconnects re-fetches order state over REST.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/romana/rlog"
)

// AdminRoom receives new-order alerts for staff
const AdminRoom = "admin-orders"

const (
	EventOrderUpdated = "order-updated"
	EventNewOrder     = "new-order"
	EventJoined       = "joined"
	EventLeft         = "left"
	EventError        = "error"
)

func OrderRoom(orderID uint) string { return fmt.Sprintf("order-%d", orderID) }

func UserRoom(userID uint) string { return fmt.Sprintf("user-%d", userID) }

// Message is the JSON frame sent to clients
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type subscription struct {
	client *Client
	room   string
}

type envelope struct {
	room    string
	payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub owns room membership. All membership changes go through Run.
type Hub struct {
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	broadcast   chan envelope
	direct      chan directMessage
	done        chan struct{}

	mu        sync.RWMutex
	authorize Authorizer
}

func NewHub(authorize Authorizer) *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		clients:     make(map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		broadcast:   make(chan envelope, 256),
		direct:      make(chan directMessage),
		done:        make(chan struct{}),
		authorize:   authorize,
	}
}

// SetAuthorizer replaces the order-room check. Call it before serving connections.
func (h *Hub) SetAuthorizer(authorize Authorizer) {
	h.authorize = authorize
}

// Run serves membership changes and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = map[*Client]struct{}{}
			h.rooms = map[string]map[*Client]struct{}{}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			for _, room := range c.initialRooms {
				h.join(c, room)
			}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				for room := range h.rooms {
					h.leave(c, room)
				}
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[sub.client]; ok {
				h.join(sub.client, sub.room)
			}
			h.mu.Unlock()

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			h.leave(sub.client, sub.room)
			h.mu.Unlock()

		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				select {
				case msg.client.send <- msg.payload:
				default:
				}
			}

		case env := <-h.broadcast:
			for c := range h.rooms[env.room] {
				select {
				case c.send <- env.payload:
				default:
					rlog.Debugf("ws client %s is slow, dropping message for %s", c.ID, env.room)
				}
			}
		}
	}
}

// join and leave must be called with mu held
func (h *Hub) join(c *Client, room string) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Publish queues an event for every client in room. It never blocks: when the hub is
// backed up or stopped the event is dropped.
func (h *Hub) Publish(room, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		rlog.Errorf("ws marshal %s: %v", event, err)
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- envelope{room: room, payload: payload}:
	default:
		rlog.Warnf("ws broadcast queue full, dropping %s for %s", event, room)
	}
}

// RoomSize reports how many connections are in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnectedClients reports the number of open connections
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// send helpers for the client goroutines; they give up once Run has exited
func (h *Hub) enqueue(ch chan<- *Client, c *Client) {
	select {
	case ch <- c:
	case <-h.done:
	}
}

func (h *Hub) enqueueDirect(msg directMessage) {
	select {
	case h.direct <- msg:
	case <-h.done:
	}
}

func (h *Hub) enqueueSub(ch chan<- subscription, sub subscription) {
	select {
	case ch <- sub:
	case <-h.done:
	}
}
