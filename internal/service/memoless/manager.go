package memoless

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"runewallet/internal/event"
	"runewallet/internal/service"
	"runewallet/internal/service/mq"
	"runewallet/internal/service/txwizard"
	"runewallet/pkg/asset"
	"runewallet/pkg/logger"
	"runewallet/pkg/monitor"
)

// Manager 管理活跃的 memoless 会话 (内存态, 不持久化)
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	backend  service.ChainBackend
	prices   PriceSource
	signer   txwizard.Signer
	producer mq.Producer // 可为 nil
}

func NewManager(backend service.ChainBackend, prices PriceSource, signer txwizard.Signer, producer mq.Producer) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		backend:  backend,
		prices:   prices,
		signer:   signer,
		producer: producer,
	}
}

// Create 新建会话 (对应 tab 激活)
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.backend, m.prices, m.signer)
	if m.producer != nil {
		s.onRegistered = func(a asset.Asset, txHash, memo string) {
			m.publishRegistered(s.ID(), a, txHash, memo)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	if monitor.Business != nil {
		monitor.Business.MemolessActiveSessions.Inc()
	}
	return s
}

// publishRegistered 注册交易上链后广播领域事件, 发送失败只记日志
func (m *Manager) publishRegistered(sessionID string, a asset.Asset, txHash, memo string) {
	payload, err := json.Marshal(event.MemolessRegisteredEvent{
		SessionID: sessionID,
		Asset:     a.String(),
		TxHash:    txHash,
		Memo:      memo,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.producer.Publish(ctx, event.TopicMemoless, sessionID, payload); err != nil {
		logger.Warn("memoless 注册事件发送失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close 销毁会话 (对应 tab 关闭), 同步停掉会话内的定时器
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
		if monitor.Business != nil {
			monitor.Business.MemolessActiveSessions.Dec()
		}
	}
}
