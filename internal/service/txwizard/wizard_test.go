package txwizard

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"runewallet/pkg/asset"
	"runewallet/pkg/errno"
)

// fakeSigner 记录调用并可注入失败
type fakeSigner struct {
	calls    int
	lastPwd  string
	lastP    Params
	txHash   string
	failWith error
}

func (f *fakeSigner) SignAndBroadcast(ctx context.Context, walletID string, password []byte, p *Params) (string, error) {
	f.calls++
	f.lastPwd = string(password)
	f.lastP = *p
	if f.failWith != nil {
		return "", f.failWith
	}
	return f.txHash, nil
}

func mustAsset(t *testing.T, s string) asset.Asset {
	t.Helper()
	a, err := asset.Parse(s)
	if err != nil {
		t.Fatalf("解析资产失败: %v", err)
	}
	return a
}

func TestFormValidation(t *testing.T) {
	w := New(&fakeSigner{txHash: "H1"})
	w.Initialize("wallet-1", nil, nil)

	// 缺少资产
	if err := w.SubmitForm(Params{Amount: decimal.NewFromInt(1)}); err != errno.ErrMissingAsset {
		t.Errorf("期望 ErrMissingAsset, 实际 %v", err)
	}

	// 金额非正
	if err := w.SubmitForm(Params{Asset: mustAsset(t, "THOR.RUNE")}); err != errno.ErrInvalidAmount {
		t.Errorf("期望 ErrInvalidAmount, 实际 %v", err)
	}

	// 转账缺少收款地址
	p := Params{Asset: mustAsset(t, "THOR.RUNE"), Amount: decimal.NewFromInt(1)}
	if err := w.SubmitForm(p); err != errno.ErrMissingRecipient {
		t.Errorf("期望 ErrMissingRecipient, 实际 %v", err)
	}

	// deposit 消息不需要收款地址
	p.Deposit = true
	if err := w.SubmitForm(p); err != nil {
		t.Errorf("deposit 表单应通过校验, 实际 %v", err)
	}
	if w.Phase() != PhaseConfirmation {
		t.Errorf("提交表单后应进入确认阶段, 实际 %v", w.Phase())
	}
}

func TestNoProgressBeforeConfirmation(t *testing.T) {
	signer := &fakeSigner{txHash: "H1"}
	w := New(signer)
	w.Initialize("wallet-1", nil, nil)

	// form 阶段不能确认
	if _, err := w.Confirm(context.Background()); err != errno.ErrWizardPhase {
		t.Errorf("form 阶段确认应被拒绝, 实际 %v", err)
	}

	p := Params{Asset: mustAsset(t, "BTC.BTC"), Amount: decimal.NewFromInt(1), Destination: "bc1qxyz"}
	if err := w.SubmitForm(p); err != nil {
		t.Fatalf("提交表单失败: %v", err)
	}

	// 未输入密码不能确认
	if _, err := w.Confirm(context.Background()); err != errno.ErrPasswordRequired {
		t.Errorf("未输入密码应被拒绝, 实际 %v", err)
	}
	if w.Phase() == PhaseProgress {
		t.Fatal("未经密码提交不应进入 progress")
	}

	if err := w.EnterPassword([]byte("pw123")); err != nil {
		t.Fatalf("输入密码失败: %v", err)
	}
	hash, err := w.Confirm(context.Background())
	if err != nil {
		t.Fatalf("确认失败: %v", err)
	}
	if hash != "H1" {
		t.Errorf("期望 txhash H1, 实际 %s", hash)
	}
	if w.Phase() != PhaseProgress {
		t.Errorf("确认成功后应进入 progress, 实际 %v", w.Phase())
	}
	if !w.Confirmed() {
		t.Error("Confirmed() 应为 true")
	}

	// progress 阶段不可回退
	if err := w.Back(); err != errno.ErrWizardPhase {
		t.Errorf("progress 阶段 Back 应被拒绝, 实际 %v", err)
	}
}

func TestConfirmFailureStaysInConfirmation(t *testing.T) {
	boom := errors.New("insufficient funds")
	signer := &fakeSigner{failWith: boom}
	w := New(signer)
	w.Initialize("wallet-1", nil, nil)

	p := Params{Asset: mustAsset(t, "BTC.BTC"), Amount: decimal.NewFromInt(1), Destination: "bc1qxyz"}
	_ = w.SubmitForm(p)
	_ = w.EnterPassword([]byte("pw"))

	if _, err := w.Confirm(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("期望签名错误透传, 实际 %v", err)
	}
	if w.Phase() != PhaseConfirmation {
		t.Errorf("失败后应停留在确认阶段, 实际 %v", w.Phase())
	}
	if w.LastError() == nil {
		t.Error("LastError 应记录失败原因")
	}

	// 不自动重试
	if signer.calls != 1 {
		t.Errorf("期望恰好 1 次签名调用, 实际 %d", signer.calls)
	}

	// 失败后密码已清零, 需重新输入
	if _, err := w.Confirm(context.Background()); err != errno.ErrPasswordRequired {
		t.Errorf("失败后的重试应要求重新输入密码, 实际 %v", err)
	}
}

func TestCloseClearsPassword(t *testing.T) {
	w := New(&fakeSigner{txHash: "H1"})
	w.Initialize("wallet-1", nil, nil)

	p := Params{Asset: mustAsset(t, "BTC.BTC"), Amount: decimal.NewFromInt(1), Destination: "bc1qxyz"}
	_ = w.SubmitForm(p)
	_ = w.EnterPassword([]byte("secret"))

	// 场景: 打开对话框, 输入密码, Escape 关闭
	w.Close()

	if got := w.Password(); len(got) != 0 {
		t.Errorf("关闭后密码应为空, 实际 %q", got)
	}

	// 关闭后任何操作都被拒绝
	if err := w.EnterPassword([]byte("again")); err != errno.ErrWizardPhase {
		t.Errorf("关闭后输入密码应被拒绝, 实际 %v", err)
	}
	if _, err := w.Confirm(context.Background()); err != errno.ErrWizardPhase {
		t.Errorf("关闭后确认应被拒绝, 实际 %v", err)
	}
}

func TestSkipToConfirmation(t *testing.T) {
	signer := &fakeSigner{txHash: "REG1"}
	w := New(signer)

	// memoless 注册: 预填零值 deposit, 跳过表单
	pre := &PrePopulated{
		Params: Params{
			Asset:   mustAsset(t, "THOR.RUNE"),
			Amount:  decimal.Zero,
			Memo:    "REFERENCE:BTC.BTC:SWAP:ETH.ETH:0xabc",
			Deposit: true,
		},
		SkipToConfirmation: true,
	}

	done := make(chan string, 1)
	w.Initialize("wallet-1", func(hash string) { done <- hash }, pre)

	if w.Phase() != PhaseConfirmation {
		t.Fatalf("应直接进入确认阶段, 实际 %v", w.Phase())
	}

	_ = w.EnterPassword([]byte("pw"))
	hash, err := w.Confirm(context.Background())
	if err != nil {
		t.Fatalf("确认失败: %v", err)
	}
	if hash != "REG1" {
		t.Errorf("期望 REG1, 实际 %s", hash)
	}
	if signer.lastP.Memo != pre.Params.Memo {
		t.Errorf("注册 memo 未透传: %s", signer.lastP.Memo)
	}
	if !signer.lastP.Amount.IsZero() {
		t.Errorf("注册交易金额应为零, 实际 %s", signer.lastP.Amount)
	}

	// 回调是异步的
	if got := <-done; got != "REG1" {
		t.Errorf("onComplete 收到 %s", got)
	}
}
