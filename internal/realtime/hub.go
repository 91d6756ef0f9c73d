// Package realtime tracks live WebSocket connections grouped into per-user rooms
// and fans events out to them on a best-effort basis.
package realtime

import (
	"context"
	"sync"

	"github.com/devvault/backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Event names on the wire
const (
	EventJoin         = "join"
	EventLeave        = "leave"
	EventJoined       = "joined"
	EventLeft         = "left"
	EventError        = "error"
	EventNotification = "notification"
)

// Event is one message sent to a connection
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Subscriber is a live connection that can be placed in a room.
// Send must not block; it returns false when the event was dropped.
type Subscriber interface {
	ID() string
	Send(ev Event) bool
}

// Hub is the room membership table. A subscriber is in at most one room at a time,
// while a room may hold any number of subscribers.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]Subscriber
	memberOf map[string]string
	log      *logrus.Entry
}

// NewHub creates an empty Hub
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		rooms:    make(map[string]map[string]Subscriber),
		memberOf: make(map[string]string),
		log:      log,
	}
}

// Join places s in userID's room, leaving whatever room it was in before
func (h *Hub) Join(userID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.memberOf[s.ID()]; ok {
		if prev == userID {
			return
		}
		h.removeLocked(prev, s.ID())
	}

	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[string]Subscriber)
		h.rooms[userID] = room
	}
	room[s.ID()] = s
	h.memberOf[s.ID()] = userID

	h.log.WithFields(logrus.Fields{"room": userID, "conn": s.ID()}).Debug("Connection joined room")
}

// Leave removes s from userID's room. It reports whether s was a member.
func (h *Hub) Leave(userID string, s Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.memberOf[s.ID()] != userID {
		return false
	}
	h.removeLocked(userID, s.ID())
	h.log.WithFields(logrus.Fields{"room": userID, "conn": s.ID()}).Debug("Connection left room")
	return true
}

// Disconnect drops s from every room it belongs to
func (h *Hub) Disconnect(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.memberOf[s.ID()]; ok {
		h.removeLocked(room, s.ID())
	}
}

func (h *Hub) removeLocked(userID, subID string) {
	delete(h.memberOf, subID)
	room := h.rooms[userID]
	delete(room, subID)
	if len(room) == 0 {
		delete(h.rooms, userID)
	}
}

// Publish sends ev to every connection currently in userID's room and returns
// how many accepted it. A missing room is not an error.
func (h *Hub) Publish(userID string, ev Event) int {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.rooms[userID]))
	for _, s := range h.rooms[userID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if s.Send(ev) {
			delivered++
			metrics.PushDelivered.Inc()
			continue
		}
		metrics.PushDropped.Inc()
		h.log.WithFields(logrus.Fields{"room": userID, "conn": s.ID(), "event": ev.Name}).
			Warn("Dropped event for slow connection")
	}
	return delivered
}

// Push publishes a notification payload to the recipient's room
func (h *Hub) Push(_ context.Context, recipient string, payload any) error {
	h.Publish(recipient, Event{Name: EventNotification, Data: payload})
	return nil
}

// RoomSize returns the number of connections in userID's room
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// RoomOf returns the room s is in, if any
func (h *Hub) RoomOf(s Subscriber) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.memberOf[s.ID()]
	return room, ok
}
