package events

import (
	"context"
	"drift-spot-service/internal/domain"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "spots:events"

// Hub delivers spot events to local subscribers and, when Redis is configured,
// to the hubs of other instances through a pub/sub channel.
type Hub struct {
	id      string
	redis   *redis.Client
	channel string

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

type Subscriber struct {
	Events chan []byte
}

// envelope tags messages with the publishing hub so it can skip its own echoes.
type envelope struct {
	Origin string                  `json:"origin"`
	Event  domain.SpotCreatedEvent `json:"event"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		channel: DefaultChannel,
		subs:    map[*Subscriber]struct{}{},
		done:    make(chan struct{}),
	}

	if redisClient == nil {
		close(h.done)
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	pubsub := redisClient.Subscribe(ctx, h.channel)
	// Wait for the subscription to be confirmed so no event published after
	// NewHub returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("redis subscribe channel=%s error: %v", h.channel, err)
	}

	go h.subscribeRedis(ctx, pubsub)
	return h
}

func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{Events: make(chan []byte, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.Events)
}

// Publish implements ports.EventPublisher. Local delivery never fails; the
// returned error only reports a failed Redis publish.
func (h *Hub) Publish(ctx context.Context, event domain.SpotCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish event: encode: %w", err)
	}

	h.broadcast(payload)

	if h.redis == nil {
		return nil
	}

	msg, err := json.Marshal(envelope{Origin: h.id, Event: event})
	if err != nil {
		return fmt.Errorf("publish event: encode envelope: %w", err)
	}
	if err := h.redis.Publish(ctx, h.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish event: redis: %w", err)
	}

	return nil
}

// Close stops the Redis subscription loop. Subscribers stay registered.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
}

// Slow subscribers drop events rather than block publishers.
func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		select {
		case s.Events <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg = m
		}

		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("redis event decode error: %v", err)
			continue
		}
		if env.Origin == h.id {
			continue
		}

		payload, err := json.Marshal(env.Event)
		if err != nil {
			continue
		}
		h.broadcast(payload)
	}
}
