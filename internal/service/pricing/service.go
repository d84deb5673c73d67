package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"runewallet/internal/service"
	"runewallet/pkg/asset"
	"runewallet/pkg/logger"
)

const (
	priceKeyPrefix = "runewallet:price:usd:"
	defaultTTL     = 5 * time.Minute
)

// Service 资产美元价格服务。
// 价格来源是链上流动性池, redis 做跨进程缓存, 内存兜底 redis 不可用的情况。
type Service struct {
	backend service.ChainBackend
	rdb     *redis.Client // 可为 nil (纯内存模式)
	ttl     time.Duration

	mu        sync.RWMutex
	memory    map[string]decimal.Decimal
	fetchedAt time.Time
}

func NewService(backend service.ChainBackend, rdb *redis.Client) *Service {
	return &Service{
		backend: backend,
		rdb:     rdb,
		ttl:     defaultTTL,
		memory:  make(map[string]decimal.Decimal),
	}
}

// AssetPriceUSD 返回资产的美元价格。
// 顺序: redis 缓存 → 内存快照 (未过期) → 链上池子刷新。
func (s *Service) AssetPriceUSD(ctx context.Context, a asset.Asset) (decimal.Decimal, error) {
	key := priceKeyPrefix + a.String()

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
			if p, perr := decimal.NewFromString(val); perr == nil {
				return p, nil
			}
		}
	}

	s.mu.RLock()
	p, ok := s.memory[a.String()]
	fresh := time.Since(s.fetchedAt) < s.ttl
	s.mu.RUnlock()
	if ok && fresh {
		return p, nil
	}

	if err := s.Refresh(ctx); err != nil {
		// 刷新失败时退回过期的内存快照, 好过直接失败
		if ok {
			logger.Warn("价格刷新失败, 使用过期快照",
				zap.String("asset", a.String()), zap.Error(err))
			return p, nil
		}
		return decimal.Zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok = s.memory[a.String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("资产 %s 没有可用池子价格", a)
	}
	return p, nil
}

// Refresh 从链上池子全量拉取价格, 写入内存和 redis。
// 只收录 Available 状态且价格为正的池子。
func (s *Service) Refresh(ctx context.Context) error {
	pools, err := s.backend.Pools(ctx)
	if err != nil {
		return fmt.Errorf("拉取池子失败: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(pools))
	for _, pool := range pools {
		if pool.Status != "" && pool.Status != "Available" {
			continue
		}
		if pool.AssetPriceUSD.LessThanOrEqual(decimal.Zero) {
			continue
		}
		prices[pool.Asset.String()] = pool.AssetPriceUSD
	}

	s.mu.Lock()
	for k, v := range prices {
		s.memory[k] = v
	}
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	if s.rdb != nil {
		pipe := s.rdb.Pipeline()
		for k, v := range prices {
			pipe.Set(ctx, priceKeyPrefix+k, v.String(), s.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("价格写入 redis 失败", zap.Error(err))
		}
	}

	logger.Debug("价格快照已刷新", zap.Int("assets", len(prices)))
	return nil
}
