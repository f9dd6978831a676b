package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WatermarkStore keeps the per-viewer "last read" time.
type WatermarkStore interface {
	Get(ctx context.Context, viewerID uuid.UUID) (time.Time, bool, error)
	Set(ctx context.Context, viewerID uuid.UUID, at time.Time) error
}

func watermarkKey(viewerID uuid.UUID) string {
	return fmt.Sprintf("digest:last_read:%s", viewerID)
}

type redisWatermarkStore struct {
	rdb *redis.Client
}

// NewRedisWatermarkStore stores watermarks as unix microseconds.
func NewRedisWatermarkStore(rdb *redis.Client) WatermarkStore {
	return &redisWatermarkStore{rdb: rdb}
}

func (s *redisWatermarkStore) Get(ctx context.Context, viewerID uuid.UUID) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, watermarkKey(viewerID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt watermark for %s: %w", viewerID, err)
	}
	return time.UnixMicro(micros), true, nil
}

func (s *redisWatermarkStore) Set(ctx context.Context, viewerID uuid.UUID, at time.Time) error {
	return s.rdb.Set(ctx, watermarkKey(viewerID), at.UnixMicro(), 0).Err()
}

type memoryWatermarkStore struct {
	mu    sync.RWMutex
	marks map[uuid.UUID]time.Time
}

// NewMemoryWatermarkStore is used when Redis is not configured. Watermarks
// do not survive a restart.
func NewMemoryWatermarkStore() WatermarkStore {
	return &memoryWatermarkStore{marks: make(map[uuid.UUID]time.Time)}
}

func (s *memoryWatermarkStore) Get(_ context.Context, viewerID uuid.UUID) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.marks[viewerID]
	return at, ok, nil
}

func (s *memoryWatermarkStore) Set(_ context.Context, viewerID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[viewerID] = time.UnixMicro(at.UnixMicro())
	return nil
}
