package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
)

// ReportCache stores reports as JSON strings with a TTL.
type ReportCache struct {
	client *redis.Client
}

func NewReportCache(client *redis.Client) *ReportCache {
	return &ReportCache{client: client}
}

func (r *ReportCache) Get(ctx context.Context, key string) (core.HealthReport, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.HealthReport{}, false, nil
	}
	if err != nil {
		return core.HealthReport{}, false, err
	}
	var report core.HealthReport
	if err := json.Unmarshal(val, &report); err != nil {
		return core.HealthReport{}, false, err
	}
	return report, true, nil
}

func (r *ReportCache) Set(ctx context.Context, key string, report core.HealthReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *ReportCache) Close() error { return r.client.Close() }
