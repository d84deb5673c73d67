package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"runewallet/pkg/errno"
)

const sessionKeyPrefix = "runewallet:session:"

// SessionStore 解锁会话存储。token 只证明该钱包最近通过了密码校验,
// 不携带任何密钥材料; 到期后客户端重新解锁, 命中不续期。
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{rdb: rdb, ttl: ttl}
}

// Save 签发会话 token
func (s *SessionStore) Save(ctx context.Context, walletID string) (string, time.Duration, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionKeyPrefix+token, walletID, s.ttl).Err(); err != nil {
		return "", 0, err
	}
	return token, s.ttl, nil
}

// Load 按 token 取回钱包 ID
func (s *SessionStore) Load(ctx context.Context, token string) (string, error) {
	walletID, err := s.rdb.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", errno.ErrSessionExpired
	}
	if err != nil {
		return "", err
	}
	return walletID, nil
}

// Delete 主动登出
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+token).Err()
}
