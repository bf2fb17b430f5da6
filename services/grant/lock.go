package grant

import (
	"context"
	"time"

	"campaign-rewards/pkg/period"
	"campaign-rewards/pkg/rediskey"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// periodLock fences concurrent closers of the same period across processes.
// The database unique index stays the source of truth; the lock only keeps
// losers from doing the ranking work.
type periodLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func (l *periodLock) acquire(ctx context.Context, w period.Window, token string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	return l.rdb.SetNX(ctx, rediskey.BuildPeriodLockKey(string(w.Type), w.Start), token, l.ttl).Result()
}

func (l *periodLock) release(ctx context.Context, w period.Window, token string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.rdb, []string{rediskey.BuildPeriodLockKey(string(w.Type), w.Start)}, token).Err()
}
