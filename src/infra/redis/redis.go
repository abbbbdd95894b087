package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client            redis.UniversalClient
	defaultTTLSeconds time.Duration
	prefix            string
}

// NewRedisClient conecta em um nó único ou, com vários endereços, no cluster.
func NewRedisClient(addrs string, poolSize int, defaultTTLSeconds time.Duration) *RedisClient {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),

		// Pool settings para alta concorrência
		PoolSize:     poolSize,
		MinIdleConns: 10,

		// Cluster específico
		MaxRedirects: 3,

		// Timeouts otimizados para cache
		DialTimeout:  5 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,

		// Retry e circuit breaker
		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	return &RedisClient{
		client:            client,
		defaultTTLSeconds: defaultTTLSeconds,
	}
}

// WithPrefix returns a client that namespaces every key, used by tests.
func (rc *RedisClient) WithPrefix(prefix string) *RedisClient {
	return &RedisClient{
		client:            rc.client,
		defaultTTLSeconds: rc.defaultTTLSeconds,
		prefix:            prefix,
	}
}

func (rc *RedisClient) key(key string) string {
	return rc.prefix + key
}

func (rc *RedisClient) SetWithRegistry(ctx context.Context, cacheKey string, cacheValue string, registryKeys []string) error {
	pipe := rc.client.Pipeline()

	// 1. Set do cache principal
	fields := map[string]interface{}{
		"data":      cacheValue,
		"cached_at": time.Now().Unix(),
	}
	pipe.HSet(ctx, rc.key(cacheKey), fields)
	pipe.Expire(ctx, rc.key(cacheKey), rc.defaultTTLSeconds)

	// 2. Cada registry aponta para as chaves de cache que dependem dele
	for _, registryKey := range registryKeys {
		pipe.SAdd(ctx, rc.key(registryKey), cacheKey)
		pipe.Expire(ctx, rc.key(registryKey), rc.defaultTTLSeconds)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (rc *RedisClient) GetKey(ctx context.Context, key string) (string, bool, error) {
	result := rc.client.HGet(ctx, rc.key(key), "data")

	// Cache miss
	if result.Err() == redis.Nil {
		return "", false, nil
	}
	if result.Err() != nil {
		return "", false, result.Err()
	}

	return result.Val(), true, nil
}

// GetCounter lê um contador criado por IncrCounter; ausente vale 0.
func (rc *RedisClient) GetCounter(ctx context.Context, key string) (int64, error) {
	value, err := rc.client.Get(ctx, rc.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return value, err
}

// IncrCounter não expira: o contador precisa sobreviver às chaves de cache.
func (rc *RedisClient) IncrCounter(ctx context.Context, key string) error {
	return rc.client.Incr(ctx, rc.key(key)).Err()
}

// GetMultipleSetMembers reads several registry sets in one round trip.
func (rc *RedisClient) GetMultipleSetMembers(ctx context.Context, keys []string) (map[string][]string, error) {
	pipe := rc.client.Pipeline()

	commands := make(map[string]*redis.StringSliceCmd, len(keys))
	for _, key := range keys {
		commands[key] = pipe.SMembers(ctx, rc.key(key))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	result := make(map[string][]string, len(keys))
	for key, cmd := range commands {
		members, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		result[key] = members
	}

	return result, nil
}

// Invalidação em cluster requer cuidado especial: um DEL por chave
// para não cruzar slots.
func (rc *RedisClient) DeleteKeys(ctx context.Context, keys []string) error {
	var errors []string

	for _, key := range keys {
		if err := rc.client.Del(ctx, rc.key(key)).Err(); err != nil {
			errors = append(errors, fmt.Sprintf("key %s: %v", key, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalidation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// FlushByPrefix removes every key under the client prefix.
func (rc *RedisClient) FlushByPrefix(ctx context.Context) error {
	if rc.prefix == "" {
		return fmt.Errorf("refusing to flush without a prefix")
	}

	iter := rc.client.Scan(ctx, 0, rc.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}

	return iter.Err()
}

// Health check para o cluster
func (rc *RedisClient) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}
