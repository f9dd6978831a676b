package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifiq:"

// RedisHub relays signals over Redis pub/sub so every API instance sees
// writes made by any other.
type RedisHub struct {
	client *redis.Client
}

func NewRedisHub(client *redis.Client) *RedisHub {
	return &RedisHub{client: client}
}

func (h *RedisHub) Publish(ctx context.Context, topic string) error {
	if err := h.client.Publish(ctx, channelPrefix+topic, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

func (h *RedisHub) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := h.client.Subscribe(ctx, channelPrefix+topic)

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go sub.forward(pubsub.Channel())
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	err    error
}

func (s *redisSubscription) forward(msgs <-chan *redis.Message) {
	defer close(s.done)
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
			notify(s.ch)
		case <-s.stop:
			return
		}
	}
}

func (s *redisSubscription) C() <-chan struct{} {
	return s.ch
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		s.err = s.pubsub.Close()
	})
	return s.err
}
