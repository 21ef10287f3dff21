package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vida-vod/internal/lease"
	"vida-vod/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 只有持有相同 token 的一方才能续期或释放
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker 基于 SET NX PX 的分布式租约，持有期间后台按 ttl/3 续期
type Locker struct {
	client redis.UniversalClient
}

var _ lease.Locker = (*Locker)(nil)

func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (lease.Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, lease.ErrHeld
	}

	rl := &redisLease{
		client: l.client,
		key:    key,
		token:  token,
		ttl:    ttl,
		stop:   make(chan struct{}),
	}
	go rl.keepAlive()
	return rl, nil
}

func (l *Locker) Held(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check lease %s: %w", key, err)
	}
	return n > 0, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
	ttl    time.Duration
	stop   chan struct{}
	once   sync.Once
}

func (rl *redisLease) keepAlive() {
	interval := rl.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := refreshScript.Run(ctx, rl.client, []string{rl.key}, rl.token, rl.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				logger.Warn("Failed to refresh lease", zap.String("key", rl.key), zap.Error(err))
				continue
			}
			if n == 0 {
				logger.Warn("Lease lost before release", zap.String("key", rl.key))
				return
			}
		}
	}
}

func (rl *redisLease) Release(ctx context.Context) error {
	var err error
	rl.once.Do(func() {
		close(rl.stop)
		err = releaseScript.Run(ctx, rl.client, []string{rl.key}, rl.token).Err()
		if errors.Is(err, redis.Nil) {
			err = nil
		}
	})
	return err
}
