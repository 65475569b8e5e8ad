package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopbook/backend/internal/auth"
)

// Counter increments key inside a fixed window and returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type RedisCounter struct {
	rdb redis.Scripter
}

func NewRedisCounter(rdb redis.Scripter) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = int64(time.Minute / time.Millisecond)
	}
	res, err := redisFixedWindowScript.Run(ctx, c.rdb, []string{key}, ms).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

type RateLimitConfig struct {
	Limit    int
	Window   time.Duration
	Prefix   string
	FailOpen bool
	// Methods restricts limiting to these full method names. Empty means all.
	Methods  []string
}

// RateLimitInterceptor throttles calls per caller. It must run after
// AuthInterceptor; anonymous calls are keyed as "anonymous".
func RateLimitInterceptor(counter Counter, cfg RateLimitConfig, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "rl"
	}
	methods := make(map[string]struct{}, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if cfg.Limit <= 0 {
			return handler(ctx, req)
		}
		if len(methods) > 0 {
			if _, ok := methods[info.FullMethod]; !ok {
				return handler(ctx, req)
			}
		}

		subject := "anonymous"
		if caller, ok := auth.CallerFromContext(ctx); ok {
			subject = caller.ID
		}
		key := prefix + ":" + info.FullMethod + ":" + subject

		count, err := counter.Incr(ctx, key, cfg.Window)
		if err != nil {
			log.Warn("rate limiter error", slog.Any("err", err), slog.String("method", info.FullMethod))
			if cfg.FailOpen {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unavailable, "rate limiter unavailable")
		}
		if count > int64(cfg.Limit) {
			log.Info(
				"rate limit exceeded",
				slog.String("method", info.FullMethod),
				slog.String("user_id", subject),
				slog.Int64("count", count),
			)
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
