package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"runewallet/pkg/logger"
	"runewallet/pkg/utils/lock"
)

// PriceRefresher 价格快照刷新入口 (由 pricing 服务实现)
type PriceRefresher interface {
	Refresh(ctx context.Context) error
}

// CronService 周期任务调度。
// 多实例部署时用 redis 锁保证同一任务只有一个实例执行。
type CronService struct {
	cron   *cron.Cron
	redis  *redis.Client
	prices PriceRefresher
}

func NewCronService(rdb *redis.Client, prices PriceRefresher) *CronService {
	return &CronService{
		cron:   cron.New(),
		redis:  rdb,
		prices: prices,
	}
}

func (s *CronService) Start() {
	_, _ = s.cron.AddFunc("@every 1m", s.SyncPrices)

	s.cron.Start()
	logger.Info("定时任务调度已启动")
}

func (s *CronService) Stop() {
	s.cron.Stop()
	logger.Info("定时任务调度已停止")
}

// SyncPrices 刷新资产美元价格快照
func (s *CronService) SyncPrices() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lockKey := "cron:sync_prices"
	locker := lock.NewRedisLock(s.redis)
	locked, err := locker.Acquire(ctx, lockKey, 50*time.Second)
	if err != nil || !locked {
		logger.Debug("价格同步: 其他实例持有锁, 跳过本轮")
		return
	}
	defer locker.Release(ctx, lockKey)

	if err := s.prices.Refresh(ctx); err != nil {
		logger.Error("价格同步失败", zap.Error(err))
		return
	}
	logger.Debug("价格同步完成")
}
