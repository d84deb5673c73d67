package memoless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"runewallet/internal/service"
	"runewallet/internal/service/txwizard"
	"runewallet/pkg/asset"
	"runewallet/pkg/errno"
	"runewallet/pkg/logger"
	"runewallet/pkg/monitor"
)

// Step memoless 流程的四个步骤。只能顺序前进，Back 每次只退一步。
type Step int

const (
	StepSetup     Step = 1 // 收集 memo 和资产
	StepRegister  Step = 2 // 零值 deposit 注册
	StepReference Step = 3 // 获取 reference id
	StepDeposit   Step = 4 // 金额编码与入金指引
)

// RegistrationMemoPrefix 注册 memo 的固定前缀
const RegistrationMemoPrefix = "REFERENCE"

// AmountUnit 用户输入金额的单位
type AmountUnit string

const (
	UnitAsset AmountUnit = "asset"
	UnitUSD   AmountUnit = "usd"
)

// MinUSDAmount 调用编码器之前强制执行的美元下限
var MinUSDAmount = decimal.RequireFromString("0.01")

// ErrSuperseded 表示该次 Calculate 的响应已被更新的请求取代
var ErrSuperseded = errors.New("calculation superseded by a newer request")

// PriceSource 资产美元价格来源
type PriceSource interface {
	AssetPriceUSD(ctx context.Context, a asset.Asset) (decimal.Decimal, error)
}

// DepositInstructions 第 4 步全量揭示的入金指引。
// 编码与独立校验都通过之前不会产生该对象。
type DepositInstructions struct {
	Asset   asset.Asset     `json:"asset"`
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	URI     string          `json:"uri"`
	HasURI  bool            `json:"has_uri"` // false: 未知链, URI 字段为裸金额
}

// Session 是 memoless 流程的单次会话状态。
// 每次 tab 激活新建, Reset 清空, 关闭丢弃, 从不持久化。
type Session struct {
	mu      sync.Mutex
	id      string
	backend service.ChainBackend
	prices  PriceSource
	signer  txwizard.Signer

	pollInterval time.Duration

	step             Step
	memoToRegister   string
	selectedAsset    asset.Asset
	registrationTxID string
	referenceID      string
	registration     *service.ReferenceRecord
	inbound          *service.InboundAddress
	validAmount      decimal.Decimal
	validation       *service.ReferenceStatus

	calcSeq uint64 // 单调递增, 丢弃过期的 Calculate 响应
	gen     uint64 // 会话代际, Reset/Back 递增, 在途的续体据此作废
	poll    *pollTask
	closed  bool

	// 注册交易广播成功后的通知 (Manager 用来发领域事件)
	onRegistered func(a asset.Asset, txHash, memo string)
}

func NewSession(id string, backend service.ChainBackend, prices PriceSource, signer txwizard.Signer) *Session {
	return &Session{
		id:           id,
		backend:      backend,
		prices:       prices,
		signer:       signer,
		pollInterval: 15 * time.Second,
		step:         StepSetup,
	}
}

func (s *Session) ID() string {
	return s.id
}

// SetPollInterval 调整后台校验周期 (测试用)
func (s *Session) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollInterval = d
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Setup 第 1 步: 登记要执行的业务 memo 和入金资产。
// 资产必须是白名单链的原生 Gas 资产。
func (s *Session) Setup(memo string, a asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.step != StepSetup {
		return errno.ErrStepOrder
	}
	if memo == "" {
		return errno.ErrMemoRequired
	}
	if !a.IsGasAsset() {
		if a.Chain != "" && !asset.ChainSupported(a.Chain) {
			return errno.ErrChainNotSupported
		}
		return errno.ErrNotGasAsset
	}

	s.memoToRegister = memo
	s.selectedAsset = a
	s.step = StepRegister
	return nil
}

// RegistrationMemo 构造固定形式的注册 memo: REFERENCE:{asset}:{memo}
func RegistrationMemo(a asset.Asset, memo string) string {
	return fmt.Sprintf("%s:%s:%s", RegistrationMemoPrefix, a.String(), memo)
}

// Register 第 2 步: 通过交易向导 (跳过表单, 直达确认) 广播零值注册 deposit。
// 失败停留在本步骤, 可重试。
func (s *Session) Register(ctx context.Context, walletID string, password []byte) (string, error) {
	s.mu.Lock()
	if s.closed || s.step != StepRegister {
		s.mu.Unlock()
		return "", errno.ErrStepOrder
	}
	memo := RegistrationMemo(s.selectedAsset, s.memoToRegister)
	signer := s.signer
	gen := s.gen
	s.mu.Unlock()

	// 注册交易是 THORChain 上的零值 deposit, 由向导负责密码门控
	w := txwizard.New(signer)
	w.Initialize(walletID, nil, &txwizard.PrePopulated{
		Params: txwizard.Params{
			Asset:   asset.RUNE,
			Amount:  decimal.Zero,
			Memo:    memo,
			Deposit: true,
		},
		SkipToConfirmation: true,
	})
	defer w.Close()

	if err := w.EnterPassword(password); err != nil {
		return "", err
	}
	txHash, err := w.Confirm(ctx)
	if err != nil {
		return "", fmt.Errorf("注册交易广播失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 广播期间发生过 Reset/Back 时, 本次续体作废, 不得回写状态
	if s.closed || s.gen != gen || s.step != StepRegister {
		return "", errno.ErrStepOrder
	}
	s.registrationTxID = txHash
	s.step = StepReference
	notify := s.onRegistered
	a := s.selectedAsset
	registered := s.memoToRegister

	if monitor.Business != nil {
		monitor.Business.MemolessRegistrations.Inc()
	}
	if notify != nil {
		go notify(a, txHash, registered)
	}
	logger.Info("memoless 注册交易已广播",
		zap.String("session", s.id),
		zap.String("tx", txHash),
		zap.String("asset", s.selectedAsset.String()))
	return txHash, nil
}

// FetchReference 第 3 步: 根据注册交易查询 reference id。
// 全自动; 失败时调用方提供重试或手动输入兜底。
func (s *Session) FetchReference(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.step != StepReference || s.registrationTxID == "" {
		s.mu.Unlock()
		return errno.ErrStepOrder
	}
	txID := s.registrationTxID
	s.mu.Unlock()

	rec, err := s.backend.ReferenceByTx(ctx, txID)
	if err != nil {
		return fmt.Errorf("查询 reference 失败: %w", err)
	}
	return s.completeReference(ctx, rec)
}

// SetReferenceManually 第 3 步的降级路径: 操作者手动输入 reference id。
// 这是有意保留的信任边界, 记录 warning 而不是静默纠正。
func (s *Session) SetReferenceManually(ctx context.Context, referenceID string) error {
	s.mu.Lock()
	if s.closed || s.step != StepReference {
		s.mu.Unlock()
		return errno.ErrStepOrder
	}
	s.mu.Unlock()

	logger.Warn("memoless 使用手动输入的 reference id (降级路径)",
		zap.String("session", s.id),
		zap.String("reference", referenceID))

	rec, err := s.backend.ReferenceByID(ctx, referenceID)
	if err != nil {
		return fmt.Errorf("查询 reference 失败: %w", err)
	}
	return s.completeReference(ctx, rec)
}

// completeReference 落定注册记录并拉取入金地址, 进入第 4 步并启动后台校验
func (s *Session) completeReference(ctx context.Context, rec *service.ReferenceRecord) error {
	if rec.ReferenceID == "" {
		return errno.ErrReferenceNotFound
	}

	s.mu.Lock()
	selected := s.selectedAsset
	gen := s.gen
	s.mu.Unlock()

	if rec.Asset != selected {
		return fmt.Errorf("注册记录的资产 %s 与会话选择的 %s 不一致", rec.Asset, selected)
	}

	inbounds, err := s.backend.InboundAddresses(ctx)
	if err != nil {
		return fmt.Errorf("获取入金地址失败: %w", err)
	}
	var inbound *service.InboundAddress
	for i := range inbounds {
		if inbounds[i].Chain == selected.Chain {
			inbound = &inbounds[i]
			break
		}
	}
	if inbound == nil {
		return fmt.Errorf("链 %s 暂无入金地址", selected.Chain)
	}
	if inbound.Halted {
		return fmt.Errorf("链 %s 的入金已暂停", selected.Chain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen || s.step != StepReference {
		return errno.ErrStepOrder
	}
	s.referenceID = rec.ReferenceID
	s.registration = rec
	s.inbound = inbound
	s.step = StepDeposit
	s.startPollingLocked()

	logger.Info("memoless reference 已确认",
		zap.String("session", s.id),
		zap.String("reference", rec.ReferenceID),
		zap.String("inbound", inbound.Address))
	return nil
}

// Calculate 第 4 步: 编码最终入金金额并独立校验。
// 全有或全无: 编码和校验任一失败都不揭示地址与金额。
func (s *Session) Calculate(ctx context.Context, amountStr string, unit AmountUnit) (*DepositInstructions, error) {
	s.mu.Lock()
	if s.closed || s.step != StepDeposit || s.registration == nil || s.inbound == nil {
		s.mu.Unlock()
		return nil, errno.ErrStepOrder
	}
	if s.validation != nil && s.validation.Exhausted(time.Now()) {
		s.mu.Unlock()
		return nil, errno.ErrReferenceExpired
	}
	a := s.selectedAsset
	refID := s.referenceID
	regMemo := s.registration.Memo
	inbound := *s.inbound
	s.calcSeq++
	seq := s.calcSeq
	s.mu.Unlock()

	amount, err := s.resolveAmount(ctx, a, amountStr, unit)
	if err != nil {
		return nil, err
	}

	// dust 阈值在编码之前检查
	if amount.LessThan(inbound.DustThreshold) {
		return nil, errno.ErrAmountBelowDust
	}

	// 编码: 链端将 reference 嵌入金额低位精度
	encoded, err := s.backend.FormatAmountWithReference(ctx, a, amount, refID)
	if err != nil {
		return nil, fmt.Errorf("金额编码失败: %w", err)
	}

	// 独立校验: 编码结果必须能还原出注册时的 memo。
	// 这一步和编码是分离的, 两者一致才揭示入金指引。
	if err := s.backend.ValidateAmountForDeposit(ctx, a, encoded, regMemo, refID); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrEncodeVerifyMismatch, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.step != StepDeposit {
		return nil, errno.ErrStepOrder
	}
	// 有更新的 Calculate 在途时, 旧响应作废, 不覆盖状态
	if seq != s.calcSeq {
		return nil, ErrSuperseded
	}
	s.validAmount = encoded

	uri, hasURI := DepositURI(a.Chain, inbound.Address, encoded)
	if monitor.Business != nil {
		monitor.Business.MemolessDepositsRevealed.WithLabelValues(a.Chain).Inc()
	}

	return &DepositInstructions{
		Asset:   a,
		Address: inbound.Address,
		Amount:  encoded,
		URI:     uri,
		HasURI:  hasURI,
	}, nil
}

// resolveAmount 把用户输入换算为资产单位金额。
// USD 输入低于 $0.01 时直接拒绝, 不触发任何后端调用。
func (s *Session) resolveAmount(ctx context.Context, a asset.Asset, amountStr string, unit AmountUnit) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, errno.ErrInvalidAmount
	}

	switch unit {
	case UnitUSD:
		if amount.LessThan(MinUSDAmount) {
			return decimal.Zero, errno.ErrAmountBelowMinimum
		}
		price, err := s.prices.AssetPriceUSD(ctx, a)
		if err != nil {
			return decimal.Zero, fmt.Errorf("获取 %s 价格失败: %w", a, err)
		}
		if price.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("资产 %s 无有效价格", a)
		}
		amount = amount.DivRound(price, a.Decimals())
	case UnitAsset:
		// 原样使用
	default:
		return decimal.Zero, fmt.Errorf("未知的金额单位 %q", unit)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errno.ErrInvalidAmount
	}
	return amount, nil
}

// Back 回退一步并重新渲染; 离开第 4 步时停止后台校验
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.step <= StepSetup {
		return errno.ErrStepOrder
	}
	if s.step == StepDeposit {
		s.stopPollingLocked()
	}
	s.step--
	s.gen++
	return nil
}

// Reset 清空会话回到第 1 步, 同步停止后台校验
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopPollingLocked()
	s.step = StepSetup
	s.memoToRegister = ""
	s.selectedAsset = asset.Asset{}
	s.registrationTxID = ""
	s.referenceID = ""
	s.registration = nil
	s.inbound = nil
	s.validAmount = decimal.Zero
	s.validation = nil
	s.calcSeq++
	s.gen++
}

// Close 会话销毁。停止所有定时器, 之后任何操作都被拒绝。
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopPollingLocked()
	s.closed = true
}

// State 当前会话状态快照 (渲染用)
type State struct {
	ID               string     `json:"id"`
	Step             Step       `json:"step"`
	Memo             string     `json:"memo,omitempty"`
	Asset            string     `json:"asset,omitempty"`
	RegistrationTxID string     `json:"registration_tx_id,omitempty"`
	ReferenceID      string     `json:"reference_id,omitempty"`
	InboundAddress   string     `json:"inbound_address,omitempty"`
	DustThreshold    string     `json:"dust_threshold,omitempty"`
	ValidAmount      string     `json:"valid_amount,omitempty"`
	UsageCount       int64      `json:"usage_count,omitempty"`
	MaxUse           int64      `json:"max_use,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:               s.id,
		Step:             s.step,
		Memo:             s.memoToRegister,
		RegistrationTxID: s.registrationTxID,
		ReferenceID:      s.referenceID,
	}
	if !s.selectedAsset.IsZero() {
		st.Asset = s.selectedAsset.String()
	}
	if s.inbound != nil {
		st.InboundAddress = s.inbound.Address
		st.DustThreshold = s.inbound.DustThreshold.String()
	}
	if !s.validAmount.IsZero() {
		st.ValidAmount = s.validAmount.String()
	}
	if s.validation != nil {
		st.UsageCount = s.validation.UsageCount
		st.MaxUse = s.validation.MaxUse
		if !s.validation.ExpiresAt.IsZero() {
			t := s.validation.ExpiresAt
			st.ExpiresAt = &t
		}
	}
	return st
}
