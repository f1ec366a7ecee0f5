package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	commonlog "chatbot_server/server/common/log"
)

const (
	EventChatResponse = "chat_response"
	EventError        = "error"

	hubEventsChannel = "chatbot:events"
	wsWriteTimeout   = 5 * time.Second
)

// Frame is the envelope of every socket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type frameOut struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JSONWriter is the part of a socket connection the hub writes to.
type JSONWriter interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type WSClient struct {
	ID   string
	Conn JSONWriter
	mu   sync.Mutex
}

var _ JSONWriter = (*websocket.Conn)(nil)

// Send writes one frame to this client only.
func (c *WSClient) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.Conn.WriteJSON(frameOut{Event: event, Data: payload})
}

// Hub fans frames out to every connected socket client. With Redis attached
// broadcasts travel through a pub/sub channel so all instances deliver them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*WSClient
	redis     *redis.Client
	redisSub  *redis.PubSub
	subCancel context.CancelFunc
}

func NewHub() *Hub {
	return &Hub{clients: map[string]*WSClient{}}
}

func (h *Hub) UseRedis(client *redis.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redis = client
}

func (h *Hub) StartRedisSubscriber(ctx context.Context) error {
	h.mu.Lock()
	if h.redis == nil {
		h.mu.Unlock()
		return errors.New("redis client is nil")
	}
	if h.redisSub != nil {
		h.mu.Unlock()
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := h.redis.Subscribe(subCtx, hubEventsChannel)
	h.redisSub = sub
	h.subCancel = cancel
	h.mu.Unlock()

	go h.consumeEvents(subCtx, sub)
	return nil
}

func (h *Hub) StopRedisSubscriber() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subCancel != nil {
		h.subCancel()
		h.subCancel = nil
	}
	if h.redisSub != nil {
		_ = h.redisSub.Close()
		h.redisSub = nil
	}
}

func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	_ = client.Conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event string, payload any) {
	if h.publishBroadcast(event, payload) {
		return
	}
	fanoutCount := h.broadcastLocal(event, payload)
	commonlog.Debugf("event=chat_hub action=local_dispatch kind=%s fanout_count=%d", event, fanoutCount)
}

func (h *Hub) broadcastLocal(event string, payload any) int {
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	count := 0
	for _, client := range clients {
		if err := client.Send(event, payload); err != nil {
			commonlog.Warnf("event=chat_hub action=write status=failed client_id=%s error=%v", client.ID, err)
			continue
		}
		count++
	}
	return count
}

func (h *Hub) publishBroadcast(event string, payload any) bool {
	h.mu.RLock()
	redisClient := h.redis
	subscribed := h.redisSub != nil
	h.mu.RUnlock()
	if redisClient == nil || !subscribed {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	b, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return false
	}
	if err := redisClient.Publish(context.Background(), hubEventsChannel, b).Err(); err != nil {
		commonlog.Warnf("event=chat_hub action=publish status=failed kind=%s error=%v", event, err)
		return false
	}
	return true
}

func (h *Hub) consumeEvents(ctx context.Context, sub *redis.PubSub) {
	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil || frame.Event == "" {
			continue
		}
		fanoutCount := h.broadcastLocal(frame.Event, frame.Data)
		commonlog.Debugf("event=chat_hub action=consume status=ok kind=%s fanout_count=%d", frame.Event, fanoutCount)
	}
}
