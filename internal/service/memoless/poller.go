package memoless

import (
	"context"
	"time"

	"go.uber.org/zap"

	"runewallet/pkg/logger"
	"runewallet/pkg/monitor"
)

// pollTask 可取消的后台校验任务句柄。
// 显式持有 cancel, 让 "销毁即停止" 成为结构保证而不是约定。
type pollTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startPollingLocked 启动 15 秒周期的 reference 状态刷新。
// 先取消已有任务, 保证同一会话不会出现并发轮询。
// 调用方必须持有 s.mu。
func (s *Session) startPollingLocked() {
	s.stopPollingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	task := &pollTask{cancel: cancel, done: make(chan struct{})}
	s.poll = task

	go s.pollLoop(ctx, task, s.referenceID, s.pollInterval)
}

// stopPollingLocked 同步取消任务。调用方必须持有 s.mu。
// 不等待 done: pollLoop 写状态前会校验自己仍是当前任务, 过期写入被丢弃。
func (s *Session) stopPollingLocked() {
	if s.poll != nil {
		s.poll.cancel()
		s.poll = nil
	}
}

// pollLoop 只刷新 usage/expiry 展示数据, 从不重新推导 validAmount。
// 瞬时失败静默记录并保留上次成功的数据。
func (s *Session) pollLoop(ctx context.Context, task *pollTask, referenceID string, interval time.Duration) {
	defer close(task.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		status, err := s.backend.ReferenceStatus(callCtx, referenceID)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if monitor.Business != nil {
				monitor.Business.MemolessPollFailures.Inc()
			}
			logger.Debug("memoless 后台校验失败, 保留上次数据",
				zap.String("session", s.id),
				zap.Error(err))
			continue
		}

		s.mu.Lock()
		if s.poll == task && !s.closed {
			s.validation = status
		}
		s.mu.Unlock()
	}
}
