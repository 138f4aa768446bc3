package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"qcm-service/internal/domain"
)

// StatisticsCache shares computed quiz statistics between instances.
type StatisticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatisticsCache(client *redis.Client, ttl time.Duration) *StatisticsCache {
	return &StatisticsCache{client: client, ttl: ttl}
}

func (c *StatisticsCache) Get(ctx context.Context, quizID int64) (domain.Statistics, bool) {
	raw, err := c.client.Get(ctx, statsKey(quizID)).Bytes()
	if err != nil {
		return domain.Statistics{}, false
	}
	var stats domain.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.Statistics{}, false
	}
	return stats, true
}

func (c *StatisticsCache) Set(ctx context.Context, quizID int64, stats domain.Statistics) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, statsKey(quizID), raw, c.ttl).Err()
}

func (c *StatisticsCache) Invalidate(ctx context.Context, quizID int64) {
	_ = c.client.Del(ctx, statsKey(quizID)).Err()
}

func statsKey(quizID int64) string {
	return "qcm:stats:" + strconv.FormatInt(quizID, 10)
}
