package memory

import (
	"context"
	"sync"
	"time"

	"qcm-service/internal/domain"
)

// StatisticsCache keeps computed quiz statistics in process for a TTL.
type StatisticsCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[int64]cachedStats
}

type cachedStats struct {
	stats     domain.Statistics
	expiresAt time.Time
}

func NewStatisticsCache(ttl time.Duration) *StatisticsCache {
	return &StatisticsCache{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[int64]cachedStats),
	}
}

func (c *StatisticsCache) Get(_ context.Context, quizID int64) (domain.Statistics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Statistics{}, false
	}
	return entry.stats, true
}

func (c *StatisticsCache) Set(_ context.Context, quizID int64, stats domain.Statistics) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[quizID] = cachedStats{stats: stats, expiresAt: c.clock().Add(c.ttl)}
}

func (c *StatisticsCache) Invalidate(_ context.Context, quizID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, quizID)
}
