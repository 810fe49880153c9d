package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"restaurant-api/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/romana/rlog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 32
)

// Authorizer decides whether a user may follow an order's room
type Authorizer func(userID uint, role models.UserRole, orderID uint) bool

// Command is what a client sends, e.g. {"action":"join-order","order_id":12}
type Command struct {
	Action  string `json:"action"`
	OrderID uint   `json:"order_id"`
}

// Client is one websocket connection of an authenticated user
type Client struct {
	ID     string
	UserID uint
	Role   models.UserRole

	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	initialRooms []string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades the request and attaches the connection to the hub. The user's own room is
// joined automatically; admins also join the staff room.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint, role models.UserRole) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		ID:           uuid.NewString(),
		UserID:       userID,
		Role:         role,
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		initialRooms: []string{UserRoom(userID)},
	}
	if role == models.RoleAdmin {
		c.initialRooms = append(c.initialRooms, AdminRoom)
	}

	h.enqueue(h.register, c)
	rlog.Debugf("ws client %s connected for user %d", c.ID, userID)

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.enqueue(c.hub.unregister, c)
		c.conn.Close()
		rlog.Debugf("ws client %s disconnected", c.ID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				rlog.Warnf("ws read error: %v", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(EventError, map[string]string{"error": "invalid message"})
			continue
		}
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd Command) {
	switch cmd.Action {
	case "join-order":
		if cmd.OrderID == 0 || c.hub.authorize == nil || !c.hub.authorize(c.UserID, c.Role, cmd.OrderID) {
			c.reply(EventError, map[string]interface{}{"error": "cannot follow this order", "order_id": cmd.OrderID})
			return
		}
		room := OrderRoom(cmd.OrderID)
		c.hub.enqueueSub(c.hub.subscribe, subscription{client: c, room: room})
		c.reply(EventJoined, map[string]string{"room": room})
	case "leave-order":
		room := OrderRoom(cmd.OrderID)
		c.hub.enqueueSub(c.hub.unsubscribe, subscription{client: c, room: room})
		c.reply(EventLeft, map[string]string{"room": room})
	default:
		c.reply(EventError, map[string]string{"error": "unknown action " + cmd.Action})
	}
}

// reply sends directly to this client without going through a room
func (c *Client) reply(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	c.hub.enqueueDirect(directMessage{client: c, payload: payload})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
