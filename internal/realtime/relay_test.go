package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRelay_Deliver(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	relay := NewRedisRelay(nil, "notifications", hub, hub.log)

	s := newFakeSubscriber("conn", 10)
	hub.Join("u1", s)

	msg, err := encodeRelayMessage("u1", EventNotification, map[string]string{"title": "Resource Approved"})
	require.NoError(t, err)

	delivered, err := relay.deliver(msg)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventNotification, events[0].Name)

	raw, err := json.Marshal(events[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notification","data":{"title":"Resource Approved"}}`, string(raw))
}

func TestRedisRelay_DeliverToAbsentRoom(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	relay := NewRedisRelay(nil, "notifications", hub, hub.log)

	msg, err := encodeRelayMessage("nobody", EventNotification, "x")
	require.NoError(t, err)

	delivered, err := relay.deliver(msg)
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestRedisRelay_DeliverRejectsMalformed(t *testing.T) {
	t.Parallel()
	hub, _ := newTestHub(t)
	relay := NewRedisRelay(nil, "notifications", hub, hub.log)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "nope"},
		{name: "missing recipient", payload: `{"event":"notification","data":{}}`},
		{name: "missing event", payload: `{"recipient":"u1","data":{}}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := relay.deliver([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}
