// Package store 定义新闻板核心依赖的键值/有序集合存储能力。
//
// 三种实现：MemoryStore（测试与本地开发）、RedisStore（go-redis）、
// GormStore（PostgreSQL 表模拟 Redis 语义）。
// 读取不存在的 key 一律返回"缺失"而不是错误。
package store

import (
	"context"
	"time"
)

// Member 有序集合中的成员及其分值
type Member struct {
	Member string
	Score  float64
}

// Store is the capability contract the board core is written against.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets key only when absent (or expired). Returns true if the value was written.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// TTL returns the remaining time to live; 0 when the key is missing or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfEquals deletes key only while it still holds value. Returns true if it was deleted.
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)

	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZAddExclusive adds member to key only if it is absent from key and from
	// every set in exclusive. The check and the insert are a single atomic step.
	ZAddExclusive(ctx context.Context, key string, exclusive []string, member string, score float64) (bool, error)
	ZScore(ctx context.Context, key, member string) (float64, bool, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Member, error)
}

// rangeBounds converts Redis-style inclusive indexes (negative counts from
// the end) into a half-open [lo, hi) window over a set of size n.
func rangeBounds(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return 0, 0, false
	}
	return start, stop + 1, true
}
