package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fixedWindowScript consumes one unit if the window has quota left. The
// first hit of a window sets its expiry. It returns the count after the
// call, the remaining TTL in milliseconds and 1 if the call was allowed.
var fixedWindowScript = goredis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
local allowed = 0
if n < tonumber(ARGV[2]) then
  n = redis.call('INCR', KEYS[1])
  allowed = 1
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl, allowed}
`)

// Redis is a Limiter shared across server replicas. The script runs
// atomically inside Redis. If Redis is unreachable the limiter fails open
// and logs a warning.
type Redis struct {
	rdb    goredis.Scripter
	cfg    Config
	prefix string
	log    zerolog.Logger
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter. Keys are namespaced by prefix.
func NewRedis(rdb goredis.Scripter, cfg Config, prefix string, log zerolog.Logger) *Redis {
	if prefix == "" {
		prefix = "coursecraft:ratelimit:"
	}
	return &Redis{rdb: rdb, cfg: cfg, prefix: prefix, log: log, now: time.Now}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Check(ctx context.Context, clientID, operation string) Decision {
	q := r.cfg.QuotaFor(operation)
	now := r.now()

	res, err := fixedWindowScript.Run(ctx, r.rdb, []string{r.prefix + key(clientID, operation)}, q.Window.Milliseconds(), q.Limit).Int64Slice()
	if err != nil || len(res) != 3 {
		r.log.Warn().Err(err).
			Str("client_id", clientID).
			Str("operation", operation).
			Msg("rate limiter unavailable, allowing request")
		return Decision{Allowed: true, Limit: q.Limit, Remaining: q.Limit, ResetAt: now.Add(q.Window)}
	}

	count := int(res[0])
	ttl := time.Duration(res[1]) * time.Millisecond
	resetAt := now.Add(ttl)

	if res[2] == 0 {
		return Decision{
			Allowed:    false,
			Limit:      q.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: ttl,
		}
	}
	return Decision{
		Allowed:   true,
		Limit:     q.Limit,
		Remaining: q.Limit - count,
		ResetAt:   resetAt,
	}
}
