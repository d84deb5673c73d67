package lock

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"runewallet/pkg/safe_random"
)

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁, 不阻塞
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release 释放锁 (只释放自己持有的)
	Release(ctx context.Context, key string) error
}

// releaseScript 校验 value 归属后再删除, 避免释放掉别人续期后的锁
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLock 基于 Redis SET NX 的实现。
// 每个实例持有随机 token, 释放时校验归属。
type RedisLock struct {
	client *redis.Client
	token  string
}

func NewRedisLock(client *redis.Client) *RedisLock {
	raw, err := safe_random.GenerateRandomBytes(16)
	if err != nil {
		// 熵源不可用时退化为固定 token, 锁仍然工作只是释放校验变弱
		raw = []byte("fallback-token--")
	}
	return &RedisLock{
		client: client,
		token:  hex.EncodeToString(raw),
	}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "lock:"+key, l.token, ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return l.client.Eval(ctx, releaseScript, []string{"lock:" + key}, l.token).Err()
}
