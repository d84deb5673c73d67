package memoless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"runewallet/internal/service"
	"runewallet/internal/service/txwizard"
	"runewallet/pkg/asset"
	"runewallet/pkg/errno"
)

// fakeBackend 实现一对自洽的 encode/verify:
// 把 reference id 的数字部分嵌入金额的最低位精度。
// "R7" → 数字 7, 宽度 1: 0.01 BTC (1000000 基础单位) → 1000007 → 0.01000007
type fakeBackend struct {
	mu sync.Mutex

	refsByTx map[string]*service.ReferenceRecord
	refsByID map[string]*service.ReferenceRecord
	inbounds []service.InboundAddress
	statuses map[string]*service.ReferenceStatus

	refByTxErr error

	formatCalls   int
	validateCalls int
	statusCalls   int

	// 非 nil 时, 第一次 Format 调用会阻塞直到该通道关闭
	formatGate chan struct{}
	gateUsed   bool

	// 非空时, Format 返回该值 (模拟被篡改的编码结果)
	tamperAmount string
}

func refDigits(referenceID string) (int64, int64) {
	var digits strings.Builder
	for _, r := range referenceID {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	var n int64
	fmt.Sscanf(digits.String(), "%d", &n)
	mod := int64(1)
	for i := 0; i < digits.Len(); i++ {
		mod *= 10
	}
	return n, mod
}

func (f *fakeBackend) FormatAmountWithReference(ctx context.Context, a asset.Asset, amount decimal.Decimal, referenceID string) (decimal.Decimal, error) {
	f.mu.Lock()
	f.formatCalls++
	gate := f.formatGate
	first := !f.gateUsed
	f.gateUsed = true
	tamper := f.tamperAmount
	f.mu.Unlock()

	if gate != nil && first {
		<-gate
	}
	if tamper != "" {
		return decimal.RequireFromString(tamper), nil
	}

	n, mod := refDigits(referenceID)
	base := amount.Shift(a.Decimals()).Truncate(0)
	baseInt := base.IntPart()
	encoded := baseInt - baseInt%mod + n
	return decimal.NewFromInt(encoded).Shift(-a.Decimals()), nil
}

func (f *fakeBackend) ValidateAmountForDeposit(ctx context.Context, a asset.Asset, amount decimal.Decimal, memo, referenceID string) error {
	f.mu.Lock()
	f.validateCalls++
	rec := f.refsByID[referenceID]
	f.mu.Unlock()

	if rec == nil {
		return errors.New("unknown reference")
	}
	if rec.Memo != memo {
		return errors.New("memo mismatch")
	}
	if rec.Asset != a {
		return errors.New("asset mismatch")
	}

	n, mod := refDigits(referenceID)
	baseInt := amount.Shift(a.Decimals()).Truncate(0).IntPart()
	if baseInt%mod != n {
		return errors.New("amount does not decode to reference")
	}
	return nil
}

func (f *fakeBackend) ReferenceByTx(ctx context.Context, txHash string) (*service.ReferenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refByTxErr != nil {
		return nil, f.refByTxErr
	}
	rec, ok := f.refsByTx[txHash]
	if !ok {
		return nil, errors.New("tx not found")
	}
	return rec, nil
}

func (f *fakeBackend) ReferenceByID(ctx context.Context, referenceID string) (*service.ReferenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.refsByID[referenceID]
	if !ok {
		return nil, errors.New("reference not found")
	}
	return rec, nil
}

func (f *fakeBackend) ReferenceStatus(ctx context.Context, referenceID string) (*service.ReferenceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	st, ok := f.statuses[referenceID]
	if !ok {
		return &service.ReferenceStatus{UsageCount: 0, MaxUse: 10}, nil
	}
	return st, nil
}

func (f *fakeBackend) InboundAddresses(ctx context.Context) ([]service.InboundAddress, error) {
	return f.inbounds, nil
}

func (f *fakeBackend) Pools(ctx context.Context) ([]service.Pool, error)             { return nil, nil }
func (f *fakeBackend) NetworkInfo(ctx context.Context) (*service.NetworkInfo, error) { return nil, nil }
func (f *fakeBackend) Mimir(ctx context.Context) (map[string]int64, error)           { return nil, nil }
func (f *fakeBackend) TrackTransaction(ctx context.Context, txHash string) (*service.TxStatus, error) {
	return nil, nil
}
func (f *fakeBackend) AccountInfo(ctx context.Context, address string) (*service.AccountInfo, error) {
	return nil, nil
}
func (f *fakeBackend) Balances(ctx context.Context, address string) (map[string]decimal.Decimal, error) {
	return nil, nil
}
func (f *fakeBackend) Broadcast(ctx context.Context, tx *service.SignedTx) (string, error) {
	return "", nil
}

type fakeSigner struct {
	txHash   string
	failWith error
	calls    int
}

func (f *fakeSigner) SignAndBroadcast(ctx context.Context, walletID string, password []byte, p *txwizard.Params) (string, error) {
	f.calls++
	if f.failWith != nil {
		return "", f.failWith
	}
	return f.txHash, nil
}

// gatedSigner 在广播途中阻塞, 用于模拟广播在途时的会话操作
type gatedSigner struct {
	txHash  string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSigner) SignAndBroadcast(ctx context.Context, walletID string, password []byte, p *txwizard.Params) (string, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.txHash, nil
}

type fakePrices struct {
	prices map[string]decimal.Decimal
}

func (f *fakePrices) AssetPriceUSD(ctx context.Context, a asset.Asset) (decimal.Decimal, error) {
	p, ok := f.prices[a.String()]
	if !ok {
		return decimal.Zero, errors.New("no price")
	}
	return p, nil
}

func btcAsset(t *testing.T) asset.Asset {
	t.Helper()
	a, err := asset.Parse("BTC.BTC")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// newTestBackend 预置 BTC.BTC 的注册记录 H1 → R7 和入金地址
func newTestBackend(t *testing.T) *fakeBackend {
	t.Helper()
	rec := &service.ReferenceRecord{
		ReferenceID: "R7",
		TxID:        "H1",
		Asset:       btcAsset(t),
		Memo:        "SWAP:ETH.ETH:0xabc",
		Height:      1000,
	}
	return &fakeBackend{
		refsByTx: map[string]*service.ReferenceRecord{"H1": rec},
		refsByID: map[string]*service.ReferenceRecord{"R7": rec},
		inbounds: []service.InboundAddress{
			{Chain: "BTC", Address: "bc1qinbound", DustThreshold: decimal.RequireFromString("0.00001")},
			{Chain: "ETH", Address: "0xinbound", DustThreshold: decimal.RequireFromString("0")},
		},
		statuses: map[string]*service.ReferenceStatus{
			"R7": {UsageCount: 1, MaxUse: 10, ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
}

func newTestSession(t *testing.T, backend *fakeBackend) *Session {
	t.Helper()
	prices := &fakePrices{prices: map[string]decimal.Decimal{
		"BTC.BTC": decimal.RequireFromString("50000"),
	}}
	s := NewSession("sess-1", backend, prices, &fakeSigner{txHash: "H1"})
	t.Cleanup(s.Close)
	return s
}

// advanceToDeposit 走完 1-3 步
func advanceToDeposit(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()

	if err := s.Setup("SWAP:ETH.ETH:0xabc", btcAsset(t)); err != nil {
		t.Fatalf("Setup 失败: %v", err)
	}
	if _, err := s.Register(ctx, "wallet-1", []byte("pw")); err != nil {
		t.Fatalf("Register 失败: %v", err)
	}
	if err := s.FetchReference(ctx); err != nil {
		t.Fatalf("FetchReference 失败: %v", err)
	}
	if s.Step() != StepDeposit {
		t.Fatalf("应处于第 4 步, 实际 %d", s.Step())
	}
}

func TestEndToEndFlow(t *testing.T) {
	backend := newTestBackend(t)
	s := newTestSession(t, backend)
	advanceToDeposit(t, s)

	st := s.State()
	if st.RegistrationTxID != "H1" {
		t.Errorf("registrationTxID = %s, want H1", st.RegistrationTxID)
	}
	if st.ReferenceID != "R7" {
		t.Errorf("referenceID = %s, want R7", st.ReferenceID)
	}

	// 0.01 BTC → reference 嵌入低位 → 0.01000007
	instr, err := s.Calculate(context.Background(), "0.01", UnitAsset)
	if err != nil {
		t.Fatalf("Calculate 失败: %v", err)
	}
	if instr.Amount.String() != "0.01000007" {
		t.Errorf("编码金额 = %s, want 0.01000007", instr.Amount)
	}
	if instr.Address != "bc1qinbound" {
		t.Errorf("入金地址 = %s", instr.Address)
	}
	if !instr.HasURI || instr.URI != "bitcoin:bc1qinbound?amount=0.01000007" {
		t.Errorf("URI = %q (hasURI=%v)", instr.URI, instr.HasURI)
	}
	if backend.validateCalls != 1 {
		t.Errorf("独立校验应恰好执行一次, 实际 %d", backend.validateCalls)
	}
	if got := s.State().ValidAmount; got != "0.01000007" {
		t.Errorf("State.ValidAmount = %s", got)
	}
}

func TestTamperedAmountNotRevealed(t *testing.T) {
	backend := newTestBackend(t)
	// 编码器返回被篡改的金额 (末位数字不对应 reference)
	backend.tamperAmount = "0.01000008"
	s := newTestSession(t, backend)
	advanceToDeposit(t, s)

	_, err := s.Calculate(context.Background(), "0.01", UnitAsset)
	if err == nil {
		t.Fatal("篡改的编码结果应触发校验错误")
	}
	// 全有或全无: 不得留下部分揭示
	if got := s.State().ValidAmount; got != "" {
		t.Errorf("校验失败后 ValidAmount 应为空, 实际 %s", got)
	}
}

func TestUSDConversion(t *testing.T) {
	backend := newTestBackend(t)
	s := newTestSession(t, backend)
	advanceToDeposit(t, s)

	// $500 / $50000 = 0.01 BTC
	instr, err := s.Calculate(context.Background(), "500", UnitUSD)
	if err != nil {
		t.Fatalf("USD Calculate 失败: %v", err)
	}
	if instr.Amount.String() != "0.01000007" {
		t.Errorf("编码金额 = %s, want 0.01000007", instr.Amount)
	}
}

func TestUSDMinimumRejectedBeforeEncoding(t *testing.T) {
	backend := newTestBackend(t)
	s := newTestSession(t, backend)
	advanceToDeposit(t, s)

	_, err := s.Calculate(context.Background(), "0.009", UnitUSD)
	if !errors.Is(err, errno.ErrAmountBelowMinimum) {
		t.Fatalf("期望 ErrAmountBelowMinimum, 实际 %v", err)
	}
	if backend.formatCalls != 0 {
		t.Errorf("低于下限不应触发编码调用, 实际 %d 次", backend.formatCalls)
	}
}

func TestDustThresholdRejectedBeforeEncoding(t *testing.T) {
	backend := newTestBackend(t)
	backend.inbounds[0].DustThreshold = decimal.RequireFromString("0.5")
	s := newTestSession(t, backend)
	advanceToDeposit(t, s)

	_, err := s.Calculate(context.Background(), "0.01", UnitAsset)
	if !errors.Is(err, errno.ErrAmountBelowDust) {
		t.Fatalf("期望 ErrAmountBelowDust, 实际 %v", err)
	}
	if backend.formatCalls != 0 {
		t.Errorf("低于 dust 阈值不应触发编码调用, 实际 %d 次", backend.formatCalls)
	}
}

func TestSetupGasAssetFilter(t *testing.T) {
	s := newTestSession(t, newTestBackend(t))

	// 合约代币被拒绝
	usdc, _ := asset.Parse("ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48")
	if err := s.Setup("SWAP:x", usdc); !errors.Is(err, errno.ErrNotGasAsset) {
		t.Errorf("期望 ErrNotGasAsset, 实际 %v", err)
	}

	// 白名单外的链被拒绝
	sol, _ := asset.Parse("SOL.SOL")
	if err := s.Setup("SWAP:x", sol); !errors.Is(err, errno.ErrChainNotSupported) {
		t.Errorf("期望 ErrChainNotSupported, 实际 %v", err)
	}

	// memo 必填
	if err := s.Setup("", btcAsset(t)); !errors.Is(err, errno.ErrMemoRequired) {
		t.Errorf("期望 ErrMemoRequired, 实际 %v", err)
	}

	// 合法输入进入第 2 步
	if err := s.Setup("SWAP:ETH.ETH:0xabc", btcAsset(t)); err != nil {
		t.Fatalf("Setup 失败: %v", err)
	}
	if s.Step() != StepRegister {
		t.Errorf("Setup 后应处于第 2 步, 实际 %d", s.Step())
	}
}

func TestRegistrationMemoFormat(t *testing.T) {
	got := RegistrationMemo(btcAsset(t), "SWAP:ETH.ETH:0xabc")
	want := "REFERENCE:BTC.BTC:SWAP:ETH.ETH:0xabc"
	if got != want {
		t.Errorf("注册 memo = %q, want %q", got, want)
	}
}

func TestRegisterFailureIsRetryable(t *testing.T) {
	backend := newTestBackend(t)
	prices := &fakePrices{prices: map[string]decimal.Decimal{}}
	signer := &fakeSigner{failWith: errors.New("broadcast failed")}
	s := NewSession("sess-2", backend, prices, signer)
	defer s.Close()

	if err := s.Setup("SWAP:ETH.ETH:0xabc", btcAsset(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(context.Background(), "wallet-1", []byte("pw")); err == nil {
		t.Fatal("期望注册失败")
	}
	// 失败停留在第 2 步, 可重试
	if s.Step() != StepRegister {
		t.Errorf("失败后应停留在第 2 步, 实际 %d", s.Step())
	}

	signer.failWith = nil
	signer.txHash = "H1"
	if _, err := s.Register(context.Background(), "wallet-1", []byte("pw")); err != nil {
		t.Fatalf("重试应成功: %v", err)
	}
	if s.Step() != StepReference {
		t.Errorf("成功后应进入第 3 步, 实际 %d", s.Step())
	}
}

func TestResetDiscardsInFlightRegistration(t *testing.T) {
	backend := newTestBackend(t)
	prices := &fakePrices{prices: map[string]decimal.Decimal{}}
	signer := &gatedSigner{
		txHash:  "H1",
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := NewSession("sess-3", backend, prices, signer)
	defer s.Close()

	if err := s.Setup("SWAP:ETH.ETH:0xabc", btcAsset(t)); err != nil {
		t.Fatal(err)
	}

	regErr := make(chan error, 1)
	go func() {
		_, err := s.Register(context.Background(), "wallet-1", []byte("pw"))
		regErr <- err
	}()
	<-signer.entered

	// 广播还在途时重置会话, 并重新走到第 2 步。
	// 仅凭步骤判断无法区分新旧两轮, 在途的续体必须整体作废。
	s.Reset()
	if err := s.Setup("SWAP:BTC.BTC:0xdef", btcAsset(t)); err != nil {
		t.Fatal(err)
	}

	close(signer.release)
	if err := <-regErr; !errors.Is(err, errno.ErrStepOrder) {
		t.Errorf("在途注册应被作废, 实际 %v", err)
	}

	st := s.State()
	if st.Step != StepRegister || st.RegistrationTxID != "" {
		t.Errorf("过期的注册续体污染了会话: step=%d txid=%q", st.Step, st.RegistrationTxID)
	}
	if st.Memo != "SWAP:BTC.BTC:0xdef" {
		t.Errorf("Reset 后的新 memo 被覆盖: %q", st.Memo)
	}
}

func TestManualReferenceFallback(t *testing.T) {
	backend := newTestBackend(t)
	backend.refByTxErr = errors.New("node unavailable")
	s := newTestSession(t, backend)

	ctx := context.Background()
	_ = s.Setup("SWAP:ETH.ETH:0xabc", btcAsset(t))
	_, _ = s.Register(ctx, "wallet-1", []byte("pw"))

	// 自动获取失败
	if err := s.FetchReference(ctx); err == nil {
		t.Fatal("期望自动获取失败")
	}
	if s.Step() != StepReference {
		t.Errorf("失败后应停留在第 3 步, 实际 %d", s.Step())
	}

	// 手动输入兜底
	if err := s.SetReferenceManually(ctx, "R7"); err != nil {
		t.Fatalf("手动输入失败: %v", err)
	}
	if s.Step() != StepDeposit {
		t.Errorf("手动输入成功后应进入第 4 步, 实际 %d", s.Step())
	}
	if s.State().ReferenceID != "R7" {
		t.Errorf("referenceID = %s", s.State().ReferenceID)
	}
}

func TestResetStopsPolling(t *testing.T) {
	backend := newTestBackend(t)
	s := newTestSession(t, backend)
	s.SetPollInterval(10 * time.Millisecond)
	advanceToDeposit(t, s)

	// 等待至少一次后台轮询
	deadline := time.Now().Add(time.Second)
	for {
		backend.mu.Lock()
		n := backend.statusCalls
		backend.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("后台轮询未启动")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Reset()

	st := s.State()
	if st.Step != StepSetup || st.RegistrationTxID != "" || st.ReferenceID != "" {
		t.Errorf("Reset 后状态未清空: %+v", st)
	}

	// Reset 后不应再有轮询
	backend.mu.Lock()
	after := backend.statusCalls
	backend.mu.Unlock()
	time.Sleep(60 * time.Millisecond)
	backend.mu.Lock()
	final := backend.statusCalls
	backend.mu.Unlock()
	if final != after {
		t.Errorf("Reset 后仍在轮询: %d → %d", after, final)
	}
}

func TestBackDecrementsOneStep(t *testing.T) {
	s := newTestSession(t, newTestBackend(t))
	advanceToDeposit(t, s)

	for _, want := range []Step{StepReference, StepRegister, StepSetup} {
		if err := s.Back(); err != nil {
			t.Fatalf("Back 失败: %v", err)
		}
		if s.Step() != want {
			t.Errorf("Back 后应处于 %d, 实际 %d", want, s.Step())
		}
	}

	// 第 1 步不能再退
	if err := s.Back(); !errors.Is(err, errno.ErrStepOrder) {
		t.Errorf("第 1 步 Back 应被拒绝, 实际 %v", err)
	}
}

func TestExhaustedReferenceRejected(t *testing.T) {
	s := newTestSession(t, newTestBackend(t))
	advanceToDeposit(t, s)

	// 用量耗尽
	s.mu.Lock()
	s.validation = &service.ReferenceStatus{UsageCount: 10, MaxUse: 10}
	s.mu.Unlock()

	if _, err := s.Calculate(context.Background(), "0.01", UnitAsset); !errors.Is(err, errno.ErrReferenceExpired) {
		t.Errorf("期望 ErrReferenceExpired, 实际 %v", err)
	}
}

func TestStaleCalculationDiscarded(t *testing.T) {
	backend := newTestBackend(t)
	backend.formatGate = make(chan struct{})
	s := newTestSession(t, backend)
	advanceToDeposit(t, s)

	// 第一次 Calculate 阻塞在编码调用上
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Calculate(context.Background(), "0.01", UnitAsset)
		firstErr <- err
	}()

	// 等第一次调用进入编码
	deadline := time.Now().Add(time.Second)
	for {
		backend.mu.Lock()
		n := backend.formatCalls
		backend.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("第一次 Calculate 未到达编码调用")
		}
		time.Sleep(2 * time.Millisecond)
	}

	// 第二次 Calculate 正常完成
	instr, err := s.Calculate(context.Background(), "0.02", UnitAsset)
	if err != nil {
		t.Fatalf("第二次 Calculate 失败: %v", err)
	}
	if instr.Amount.String() != "0.02000007" {
		t.Errorf("第二次编码金额 = %s", instr.Amount)
	}

	// 放行第一次调用: 其响应必须被丢弃, 不得覆盖更新的结果
	close(backend.formatGate)
	if err := <-firstErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("过期的 Calculate 应返回 ErrSuperseded, 实际 %v", err)
	}
	if got := s.State().ValidAmount; got != "0.02000007" {
		t.Errorf("过期响应覆盖了最新结果: %s", got)
	}
}
