package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"runewallet/internal/model"
	"runewallet/internal/service/mq"
	"runewallet/pkg/logger"
)

// RelayService 把 outbox 表里的待发消息投递到 MQ。
// 与业务事务解耦: 事务只负责落库, 投递由这里异步完成 (At-least-once, 消费端幂等)。
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("outbox 中继服务已启动")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox 中继服务已停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *RelayService) processPendingMessages(ctx context.Context) {
	// 每轮最多 50 条, 控制内存
	var messages []model.OutboxMessage
	if err := s.db.WithContext(ctx).
		Where("status = ?", "PENDING").
		Order("id").
		Limit(50).
		Find(&messages).Error; err != nil {
		logger.Error("outbox 查询失败", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Error("outbox 投递失败",
				zap.Uint64("id", msg.ID), zap.String("topic", msg.Topic), zap.Error(err))
			continue
		}

		// 先投递后更新: 更新失败会重发, 消费端必须幂等
		if err := s.db.WithContext(ctx).Model(&msg).Update("status", "SENT").Error; err != nil {
			logger.Error("outbox 状态更新失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		logger.Debug("outbox 消息已投递",
			zap.Uint64("id", msg.ID), zap.String("topic", msg.Topic))
	}
}
