package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a SET NX PX lock shared by every process using the same Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	prefix string
}

// NewRedisLocker builds a Redis lock. ttl bounds how long a crashed holder
// can keep the key; acquisition gives up after ttl as well unless ctx ends
// first.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, wait: ttl, poll: 20 * time.Millisecond, prefix: "lock:"}
}

// Lock polls SET NX until it owns the key.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	redisKey := l.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err == nil && ok {
			return l.release(redisKey, token), nil
		}
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ErrBusy
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) Unlock {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrLost
		}
		return nil
	}
}
