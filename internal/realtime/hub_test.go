package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	id  string
	cap int
	mu  sync.Mutex
	got []Event
}

func newFakeSubscriber(id string, capacity int) *fakeSubscriber {
	return &fakeSubscriber{id: id, cap: capacity}
}

func (s *fakeSubscriber) ID() string { return s.id }

func (s *fakeSubscriber) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) >= s.cap {
		return false
	}
	s.got = append(s.got, ev)
	return true
}

func (s *fakeSubscriber) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.got...)
}

func newTestHub(t *testing.T) (*Hub, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	return NewHub(logrus.NewEntry(log)), hook
}

func TestHub_JoinAndPublish(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	phone := newFakeSubscriber("phone", 10)
	laptop := newFakeSubscriber("laptop", 10)
	other := newFakeSubscriber("other", 10)

	hub.Join("u1", phone)
	hub.Join("u1", laptop)
	hub.Join("u2", other)
	assert.Equal(t, 2, hub.RoomSize("u1"))

	delivered := hub.Publish("u1", Event{Name: EventNotification, Data: "hello"})
	assert.Equal(t, 2, delivered)
	assert.Len(t, phone.Events(), 1)
	assert.Len(t, laptop.Events(), 1)
	assert.Empty(t, other.Events())
}

func TestHub_JoinReplacesPreviousRoom(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	s := newFakeSubscriber("conn", 10)

	hub.Join("u1", s)
	hub.Join("u1", s)
	assert.Equal(t, 1, hub.RoomSize("u1"))

	hub.Join("u2", s)
	assert.Zero(t, hub.RoomSize("u1"))
	assert.Equal(t, 1, hub.RoomSize("u2"))

	room, ok := hub.RoomOf(s)
	require.True(t, ok)
	assert.Equal(t, "u2", room)
}

func TestHub_Leave(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	s := newFakeSubscriber("conn", 10)
	hub.Join("u1", s)

	assert.False(t, hub.Leave("u2", s), "leaving a room it is not in")
	assert.True(t, hub.Leave("u1", s))
	assert.False(t, hub.Leave("u1", s))

	assert.Zero(t, hub.Publish("u1", Event{Name: EventNotification}))
	_, ok := hub.RoomOf(s)
	assert.False(t, ok)
}

func TestHub_Disconnect(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	s := newFakeSubscriber("conn", 10)
	hub.Join("u1", s)

	hub.Disconnect(s)
	hub.Disconnect(s)
	assert.Zero(t, hub.RoomSize("u1"))
}

func TestHub_PublishToEmptyRoom(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)

	assert.Zero(t, hub.Publish("nobody", Event{Name: EventNotification}))
	assert.NoError(t, hub.Push(context.Background(), "nobody", map[string]string{"title": "x"}))
}

func TestHub_SlowSubscriberDropsWithoutBlockingOthers(t *testing.T) {
	t.Parallel()
	hub, hook := newTestHub(t)
	slow := newFakeSubscriber("slow", 0)
	fast := newFakeSubscriber("fast", 10)
	hub.Join("u1", slow)
	hub.Join("u1", fast)

	delivered := hub.Publish("u1", Event{Name: EventNotification})
	assert.Equal(t, 1, delivered)
	assert.Len(t, fast.Events(), 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestHub_PushWrapsNotificationEvent(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	s := newFakeSubscriber("conn", 10)
	hub.Join("u1", s)

	payload := map[string]string{"title": "Resource Approved"}
	require.NoError(t, hub.Push(context.Background(), "u1", payload))

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventNotification, events[0].Name)
	assert.Equal(t, payload, events[0].Data)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSubscriber(fmt.Sprintf("conn-%d", i), 100)
			hub.Join("u1", s)
			hub.Publish("u1", Event{Name: EventNotification})
			hub.Disconnect(s)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, hub.RoomSize("u1"))
}
