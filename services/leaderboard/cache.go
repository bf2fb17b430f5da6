package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"campaign-rewards/pkg/metrics"
	"campaign-rewards/pkg/period"
	"campaign-rewards/pkg/rediskey"

	"github.com/redis/go-redis/v9"
)

// Cache keeps computed leaderboards in redis as JSON. A nil client disables it.
//
// Every period has a version counter that activity writes bump. An entry is
// stored with the version read before its computation started and is only
// served while that version is still current, so a board computed before a
// write and stored after it is never returned.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

type cacheEntry struct {
	Version int64        `json:"version"`
	Board   *Leaderboard `json:"board"`
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Version returns the current version of the period. Missing counters read as 0.
func (c *Cache) Version(ctx context.Context, w period.Window) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}

	v, err := c.rdb.Get(ctx, versionKey(w)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *Cache) Get(ctx context.Context, w period.Window) (*Leaderboard, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}

	vals, err := c.rdb.MGet(ctx, key(w), versionKey(w)).Result()
	if err != nil {
		return nil, false, err
	}

	raw, ok := vals[0].(string)
	if !ok {
		metrics.LeaderboardCacheMiss.Inc()
		return nil, false, nil
	}

	var current int64
	if s, ok := vals[1].(string); ok {
		if current, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, false, err
		}
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		metrics.LeaderboardCacheMiss.Inc()
		return nil, false, err
	}

	if entry.Board == nil || entry.Version != current {
		metrics.LeaderboardCacheMiss.Inc()
		return nil, false, nil
	}

	metrics.LeaderboardCacheHits.Inc()
	return entry.Board, true, nil
}

// Set stores lb as computed at version.
func (c *Cache) Set(ctx context.Context, lb *Leaderboard, version int64) error {
	if !c.enabled() {
		return nil
	}

	b, err := json.Marshal(cacheEntry{Version: version, Board: lb})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(lb.Window), b, c.ttl).Err()
}

// Invalidate bumps the version of w and drops its cached board.
func (c *Cache) Invalidate(ctx context.Context, w period.Window) error {
	if !c.enabled() {
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(w))
		pipe.Expire(ctx, versionKey(w), rediskey.LeaderboardVersionTTL)
		pipe.Del(ctx, key(w))
		return nil
	})
	return err
}

func key(w period.Window) string {
	return rediskey.BuildLeaderboardKey(string(w.Type), w.Start)
}

func versionKey(w period.Window) string {
	return rediskey.BuildLeaderboardVersionKey(string(w.Type), w.Start)
}
