package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// reserveScript increments the counter only while it is below the limit.
// ARGV[1] is the limit (negative = unlimited), ARGV[2] the TTL in
// milliseconds, applied only while the key has none. Returns the new count,
// or -1 when denied.
var reserveScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if limit >= 0 and used >= limit then
  return -1
end
used = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return used
`)

type redisGate struct {
	rdb    redis.Scripter
	limits LimitResolver
	now    Clock
}

// NewRedisGate keeps one counter per account and month in Redis. The key
// expires a day after the period ends so rollover needs no job.
func NewRedisGate(rdb redis.Scripter, limits LimitResolver, now Clock) Gate {
	return &redisGate{rdb: rdb, limits: limits, now: now}
}

func usageKey(userID string, period string) string {
	return fmt.Sprintf("usage:%s:%s", userID, period)
}

// keyTTL runs from now until a day after the period ends. It is relative so
// the expiry does not depend on Redis and the app agreeing on the time.
func keyTTL(now time.Time) time.Duration {
	return model.PeriodEnd(now).Sub(now) + 24*time.Hour
}

func (g *redisGate) CheckAndReserve(ctx context.Context, userID string) (Reservation, error) {
	limit, err := g.limits.MonthlyLimit(ctx, userID)
	if err != nil {
		return Reservation{}, err
	}

	now := g.now()
	key := usageKey(userID, model.PeriodStart(now).Format("2006-01"))
	ttl := keyTTL(now)

	used, err := reserveScript.Run(ctx, g.rdb, []string{key}, limit, ttl.Milliseconds()).Int()
	if err != nil {
		return Reservation{}, fmt.Errorf("redis reserve: %w", err)
	}
	if used < 0 {
		log.Info().Str("userID", userID).Int("limit", limit).Str("key", key).Msg("Quota denied")
		return Reservation{Remaining: 0}, ErrQuotaExceeded
	}
	return reservation(used, limit), nil
}
