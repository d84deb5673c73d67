package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"runewallet/pkg/asset"
)

// Pool 流动性池信息 (资产定价来源)
type Pool struct {
	Asset         asset.Asset
	AssetPriceUSD decimal.Decimal
	Status        string
}

// NetworkInfo 链网络概要
type NetworkInfo struct {
	BlockHeight int64
	ChainID     string
}

// InboundAddress 各链的入金地址与 dust 阈值
type InboundAddress struct {
	Chain         string
	Address       string
	DustThreshold decimal.Decimal // 资产单位
	Halted        bool
}

// TxStatus 交易追踪结果
type TxStatus struct {
	TxHash    string
	Height    int64
	Confirmed bool
	Memo      string
}

// AccountInfo 链上账户序号信息 (签名需要)
type AccountInfo struct {
	AccountNumber uint64
	Sequence      uint64
}

// SignedTx 已签名的交易, 对后端是不透明的广播载荷
type SignedTx struct {
	Body      []byte `json:"body"`      // 规范化的交易体
	Signature string `json:"signature"` // base64
	PubKey    string `json:"pub_key"`   // hex 压缩公钥
}

// ReferenceRecord 链上注册记录 (get-reference-by-tx 的返回)
type ReferenceRecord struct {
	ReferenceID string
	TxID        string
	Asset       asset.Asset
	Memo        string // 注册的完整业务 memo
	Height      int64
}

// ReferenceStatus 引用的使用/过期状态
type ReferenceStatus struct {
	UsageCount int64
	MaxUse     int64
	ExpiresAt  time.Time
}

// Exhausted 引用是否已不可用
func (s *ReferenceStatus) Exhausted(now time.Time) bool {
	if s.MaxUse > 0 && s.UsageCount >= s.MaxUse {
		return true
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ChainBackend 是链节点的抽象契约。
// 所有方法都是可能失败的远程调用；金额编码算法对调用方保持不透明。
type ChainBackend interface {
	// 链查询
	Pools(ctx context.Context) ([]Pool, error)
	NetworkInfo(ctx context.Context) (*NetworkInfo, error)
	InboundAddresses(ctx context.Context) ([]InboundAddress, error)
	Mimir(ctx context.Context) (map[string]int64, error)
	TrackTransaction(ctx context.Context, txHash string) (*TxStatus, error)
	AccountInfo(ctx context.Context, address string) (*AccountInfo, error)
	Balances(ctx context.Context, address string) (map[string]decimal.Decimal, error)

	// 交易广播
	Broadcast(ctx context.Context, tx *SignedTx) (string, error)

	// Memoless 协议
	ReferenceByTx(ctx context.Context, txHash string) (*ReferenceRecord, error)
	ReferenceByID(ctx context.Context, referenceID string) (*ReferenceRecord, error)
	FormatAmountWithReference(ctx context.Context, a asset.Asset, amount decimal.Decimal, referenceID string) (decimal.Decimal, error)
	ValidateAmountForDeposit(ctx context.Context, a asset.Asset, amount decimal.Decimal, memo, referenceID string) error
	ReferenceStatus(ctx context.Context, referenceID string) (*ReferenceStatus, error)
}
