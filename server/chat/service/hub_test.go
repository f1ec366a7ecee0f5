package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memConn struct {
	mu     sync.Mutex
	frames []string
	fail   bool
	closed bool
}

func (c *memConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.frames = append(c.frames, string(b))
	return nil
}

func (c *memConn) SetWriteDeadline(time.Time) error { return nil }

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a, b := &memConn{}, &memConn{}
	broken := &memConn{fail: true}
	hub.Register(&WSClient{ID: "a", Conn: a})
	hub.Register(&WSClient{ID: "b", Conn: b})
	hub.Register(&WSClient{ID: "broken", Conn: broken})
	require.Equal(t, 3, hub.ClientCount())

	hub.Broadcast(EventChatResponse, map[string]string{"response": "hi"})

	for _, conn := range []*memConn{a, b} {
		require.Len(t, conn.frames, 1)
		assert.JSONEq(t, `{"event":"chat_response","data":{"response":"hi"}}`, conn.frames[0])
	}
	assert.Empty(t, broken.frames)
}

func TestHubUnregisterClosesConnection(t *testing.T) {
	hub := NewHub()
	conn := &memConn{}
	client := &WSClient{ID: "a", Conn: conn}
	hub.Register(client)
	hub.Unregister(client)

	assert.Equal(t, 0, hub.ClientCount())
	assert.True(t, conn.closed)

	hub.Broadcast(EventChatResponse, "ignored")
	assert.Empty(t, conn.frames)
}

func TestHubStartRedisSubscriberRequiresClient(t *testing.T) {
	assert.Error(t, NewHub().StartRedisSubscriber(t.Context()))
}
