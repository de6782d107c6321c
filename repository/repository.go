package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/repository/inmemory"
	"github.com/mohammad-safakhou/remedy/repository/redis_repository"
)

const (
	KeyPrefix      = "remedy:research:"
	DefaultTTL     = 7 * 24 * time.Hour
	maxKeyQuestion = 200
)

// ErrNotCacheable is returned by Store for degraded reports.
var ErrNotCacheable = errors.New("report is not cacheable")

// ReportCache stores completed reports keyed by CacheKey.
type ReportCache interface {
	Get(ctx context.Context, key string) (core.HealthReport, bool, error)
	Set(ctx context.Context, key string, report core.HealthReport, ttl time.Duration) error
}

type Backend string

const (
	BackendNone   Backend = "none"
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Options select and configure the cache backend.
type Options struct {
	Backend       Backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DialTimeout   time.Duration
	Logger        *zap.Logger
}

// NewReportCache returns nil with no error for BackendNone.
func NewReportCache(ctx context.Context, opts Options) (ReportCache, error) {
	switch opts.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return inmemory.NewReportCache(time.Now), nil
	case BackendRedis:
		c, err := redis_repository.Conn(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.DialTimeout, opts.Logger)
		if err != nil {
			return nil, err
		}
		return redis_repository.NewReportCache(c), nil
	}
	return nil, fmt.Errorf("invalid cache backend: %s", opts.Backend)
}

// CacheKey derives the cache key of a question: trimmed, lowercased and cut
// to 200 characters, then folded with a 32-bit rolling hash rendered in
// base 36.
func CacheKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	if r := []rune(normalized); len(r) > maxKeyQuestion {
		normalized = string(r[:maxKeyQuestion])
	}
	var h int32
	for _, u := range utf16.Encode([]rune(normalized)) {
		h = (h << 5) - h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return KeyPrefix + strconv.FormatInt(v, 36)
}

// Cacheable reports whether a report may be stored. Degraded reports are
// always recomputed.
func Cacheable(r core.HealthReport) bool {
	return !r.CreditsUnavailable
}

// Store writes r under the question's key when it is cacheable.
func Store(ctx context.Context, c ReportCache, question string, r core.HealthReport, ttl time.Duration) error {
	if !Cacheable(r) {
		return ErrNotCacheable
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return c.Set(ctx, CacheKey(question), r, ttl)
}

// Lookup reads the report cached for question.
func Lookup(ctx context.Context, c ReportCache, question string) (core.HealthReport, bool, error) {
	return c.Get(ctx, CacheKey(question))
}
