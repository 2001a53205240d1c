package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decide se mais uma requisição cabe na janela da chave.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter é uma janela fixa compartilhada entre instâncias:
// INCR na chave da janela atual + EXPIRE na primeira batida.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit redis: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// NewRedisClient abre o client a partir de REDIS_URL e testa com PING.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL inválida: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis não respondeu: %w", err)
	}
	return client, nil
}

// MemoryLimiter é o fallback por processo quando não há Redis (dev, instância única).
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewMemoryLimiter(ctx context.Context, limit int, window time.Duration) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}
	go rl.cleanup(ctx)
	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[key]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[key] = &visitor{count: 1, lastReset: now}
		return true, nil
	}

	v.count++
	return v.count <= rl.limit, nil
}

func (rl *MemoryLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, v := range rl.visitors {
				if now.Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
