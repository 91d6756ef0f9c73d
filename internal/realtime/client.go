package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type inboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Client is one WebSocket connection owned by an authenticated user
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	done   chan struct{}
	once   sync.Once
	log    *logrus.Entry
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, buffer int, log *logrus.Entry) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan Event, buffer),
		done:   make(chan struct{}),
		log:    log.WithFields(logrus.Fields{"conn": id, "user_id": userID}),
	}
}

// ID returns the connection's unique id
func (c *Client) ID() string {
	return c.id
}

// Send queues ev without blocking. It returns false if the buffer is full or the connection closed.
func (c *Client) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Disconnect(c)
		c.conn.Close()
	})
}

// readPump handles join/leave events until the connection fails
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in inboundEvent
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("WebSocket read failed")
			}
			return
		}
		c.handle(in)
	}
}

func (c *Client) handle(in inboundEvent) {
	var userID string
	if err := json.Unmarshal(in.Data, &userID); err != nil || userID == "" {
		c.Send(errorEvent("payload must be a user id string"))
		return
	}

	switch in.Name {
	case EventJoin:
		if userID != c.userID {
			c.log.WithField("room", userID).Warn("Refused join to another user's room")
			c.Send(errorEvent("cannot join another user's room"))
			return
		}
		c.hub.Join(userID, c)
		c.Send(Event{Name: EventJoined, Data: userID})
	case EventLeave:
		c.hub.Leave(userID, c)
		c.Send(Event{Name: EventLeft, Data: userID})
	default:
		c.Send(errorEvent("unknown event " + in.Name))
	}
}

// writePump drains the send buffer and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.WithError(err).Warn("WebSocket write failed")
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

func errorEvent(msg string) Event {
	return Event{Name: EventError, Data: map[string]string{"message": msg}}
}
