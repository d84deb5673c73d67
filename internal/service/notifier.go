package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"runewallet/internal/event"
	"runewallet/internal/service/mq"
	"runewallet/pkg/logger"
)

// Notifier 订阅广播事件, 回查链上确认进度并写审计日志。
// 消费是尽力而为的: 回查失败只记日志, 不重投。
type Notifier struct {
	consumer mq.Consumer
	backend  ChainBackend
}

func NewNotifier(consumer mq.Consumer, backend ChainBackend) *Notifier {
	return &Notifier{consumer: consumer, backend: backend}
}

// Start 阻塞消费, ctx 取消后返回
func (n *Notifier) Start(ctx context.Context) error {
	defer n.consumer.Close()
	return n.consumer.Subscribe(ctx, event.TopicBroadcast, n.handleBroadcast)
}

func (n *Notifier) handleBroadcast(msg *mq.Message) error {
	var ev event.TransactionBroadcastEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		// 毒消息直接确认丢弃, 不能卡住消费组
		logger.Warn("广播事件解析失败", zap.String("msg_id", msg.ID), zap.Error(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := n.backend.TrackTransaction(ctx, ev.TxHash)
	if err != nil {
		logger.Warn("交易确认回查失败",
			zap.String("tx", ev.TxHash),
			zap.Error(err))
		return nil
	}

	logger.Info("交易确认进度",
		zap.String("wallet", ev.WalletID),
		zap.String("tx", ev.TxHash),
		zap.String("asset", ev.Asset),
		zap.Int64("height", status.Height),
		zap.Bool("confirmed", status.Confirmed))
	return nil
}
