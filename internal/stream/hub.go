package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "reports:"
	channelSuffix  = ":created"
	channelPattern = channelPrefix + "*" + channelSuffix

	publishTimeout = 250 * time.Millisecond
)

// Hub fans report events out to the websocket clients of each user. With
// redis attached, events are relayed to every instance sharing the server.
type Hub struct {
	id      string
	redis   *redis.Client
	logger  *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	ready   chan struct{}
}

type Client struct {
	Key  string
	Send chan []byte
}

type envelope struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

func NewHub(ctx context.Context, redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
		ready:   make(chan struct{}),
	}

	if redisClient != nil {
		go h.subscribeRedis(ctx)
	} else {
		close(h.ready)
	}
	return h
}

func (h *Hub) Register(key string) *Client {
	client := &Client{
		Key:  key,
		Send: make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[key] == nil {
		h.clients[key] = map[*Client]struct{}{}
	}
	h.clients[key][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.Key]; ok {
		if _, registered := clients[client]; !registered {
			return
		}
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.Key)
		}
		close(client.Send)
	}
}

// Broadcast delivers payload to the local clients of key and publishes it
// for the other instances. Slow clients drop messages instead of blocking,
// and the publish gives up after publishTimeout.
func (h *Hub) Broadcast(ctx context.Context, key string, payload []byte) {
	h.deliver(key, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
	if err != nil {
		h.logger.Error("stream: encode envelope", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := h.redis.Publish(ctx, redisChannel(key), msg).Err(); err != nil {
		h.logger.Warn("stream: redis publish failed", "channel", redisChannel(key), "error", err)
	}
}

// Ready is closed once the redis subscription is live.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

func (h *Hub) deliver(key string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[key] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()
	go func() {
		<-ctx.Done()
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn("stream: redis subscribe failed", "error", err)
		close(h.ready)
		return
	}
	close(h.ready)

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.logger.Warn("stream: malformed message", "channel", msg.Channel, "error", err)
			continue
		}
		if env.Origin == h.id {
			continue
		}
		h.deliver(keyFromChannel(msg.Channel), env.Payload)
	}
}

func redisChannel(key string) string {
	return channelPrefix + key + channelSuffix
}

func keyFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
