package realtime

import (
	"context"
	"sync"
)

// MemoryHub is an in-process Hub used when Redis is not configured and in tests.
type MemoryHub struct {
	mu     sync.Mutex
	topics map[string]map[*memorySubscription]struct{}
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{topics: make(map[string]map[*memorySubscription]struct{})}
}

func (h *MemoryHub) Publish(_ context.Context, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.topics[topic] {
		notify(sub.ch)
	}
	return nil
}

func (h *MemoryHub) Subscribe(_ context.Context, topic string) (Subscription, error) {
	sub := &memorySubscription{hub: h, topic: topic, ch: make(chan struct{}, 1)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*memorySubscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	return sub, nil
}

// Subscribers reports the number of open subscriptions on topic.
func (h *MemoryHub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

type memorySubscription struct {
	hub   *MemoryHub
	topic string
	ch    chan struct{}
	once  sync.Once
}

func (s *memorySubscription) C() <-chan struct{} {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()

		delete(s.hub.topics[s.topic], s)
		if len(s.hub.topics[s.topic]) == 0 {
			delete(s.hub.topics, s.topic)
		}
	})
	return nil
}
