package websocket

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(h *Hub, userID uint64) *Client {
	c := NewClient(h, nil, userID, nil)
	h.Attach(c)
	return c
}

func TestRegisterAndLookup(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestClient(h, 1)

	assert.Equal(t, StateOpen, c.State())
	assert.Empty(t, h.FindConnectionsForUser(1))

	displaced := h.Register(c, 1, "alice")
	assert.Nil(t, displaced)
	assert.Equal(t, StateAuthenticated, c.State())
	assert.Equal(t, []*Client{c}, h.FindConnectionsForUser(1))

	id, ok := h.Identity(c)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: 1, Username: "alice"}, id)
	assert.Equal(t, []uint64{1}, h.OnlineUsers())
}

func TestRegisterLastWins(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	first := newTestClient(h, 1)
	second := newTestClient(h, 1)

	h.Register(first, 1, "alice")
	displaced := h.Register(second, 1, "alice")

	assert.Same(t, first, displaced)
	assert.Equal(t, StateOpen, first.State())
	assert.Equal(t, []*Client{second}, h.FindConnectionsForUser(1))

	_, ok := h.Identity(first)
	assert.False(t, ok)

	// closing the displaced socket must not evict the live one
	h.Unregister(first)
	assert.Equal(t, []*Client{second}, h.FindConnectionsForUser(1))
	assert.Equal(t, 1, h.Count())
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestClient(h, 2)
	h.Register(c, 2, "bob")

	h.Unregister(c)
	h.Unregister(c)

	assert.Equal(t, StateClosed, c.State())
	assert.Empty(t, h.FindConnectionsForUser(2))
	assert.Zero(t, h.Count())
	assert.ErrorIs(t, c.SendMessage(TypeTyping, nil), ErrConnectionClosed)

	// a closed connection cannot come back through a late auth
	assert.Nil(t, h.Register(c, 2, "bob"))
	assert.Empty(t, h.FindConnectionsForUser(2))
}

func TestUnregisterUnauthenticated(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestClient(h, 3)

	assert.Equal(t, 1, h.Count())
	h.Unregister(c)
	assert.Zero(t, h.Count())
	assert.Empty(t, h.Connections())
}

func TestSendMessageEnvelope(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := newTestClient(h, 1)

	require.NoError(t, c.SendMessage(TypeAuthSuccess, map[string]any{"user_id": 1}))

	var msg Message
	require.NoError(t, json.Unmarshal(<-c.Outbound(), &msg))
	assert.Equal(t, TypeAuthSuccess, msg.Type)
	assert.JSONEq(t, `{"user_id":1}`, string(msg.Data))
	assert.False(t, msg.Timestamp.IsZero())
}

func TestSendMessageQueueFull(t *testing.T) {
	c := NewClient(nil, nil, 1, nil)
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, c.SendMessage(TypePing, nil))
	}
	assert.ErrorIs(t, c.SendMessage(TypePing, nil), ErrClientQueueFull)
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			c := newTestClient(h, userID)
			h.Register(c, userID, "user")
			_ = h.Connections()
			for _, peer := range h.FindConnectionsForUser(userID % 5) {
				_ = peer.SendMessage(TypeTyping, nil)
			}
			h.Unregister(c)
		}(uint64(i % 5))
	}
	wg.Wait()

	assert.Zero(t, h.Count())
	assert.Empty(t, h.OnlineUsers())
}

func TestStopClosesEveryone(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	a := newTestClient(h, 1)
	b := newTestClient(h, 2)
	h.Register(a, 1, "alice")

	h.Stop()

	for _, c := range []*Client{a, b} {
		assert.Equal(t, StateClosed, c.State())
		_, open := <-c.Outbound()
		assert.False(t, open)
	}
	assert.Zero(t, h.Count())
}
