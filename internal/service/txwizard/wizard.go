package txwizard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"runewallet/pkg/crypto_util"
	"runewallet/pkg/errno"
	"runewallet/pkg/logger"
	"runewallet/pkg/monitor"
)

// Phase 向导阶段。只允许 form → confirmation → progress 顺序推进，
// progress 之后不允许回退。
type Phase int

const (
	PhaseForm Phase = iota
	PhaseConfirmation
	PhaseProgress
)

func (p Phase) String() string {
	switch p {
	case PhaseForm:
		return "form"
	case PhaseConfirmation:
		return "confirmation"
	case PhaseProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Signer 执行密码门控的签名广播。
// 实现方必须即时解密密钥、用后即焚，绝不缓存解密材料。
type Signer interface {
	SignAndBroadcast(ctx context.Context, walletID string, password []byte, p *Params) (string, error)
}

// Wizard 三阶段交易向导。
// 密码只在确认阶段持有，Close 时无条件清零。
type Wizard struct {
	mu     sync.Mutex
	signer Signer

	walletID   string
	phase      Phase
	params     *Params
	password   []byte
	confirmed  bool // 是否发生过确认阶段的密码提交
	lastErr    error
	txHash     string
	closed     bool
	onComplete func(txHash string)
}

func New(signer Signer) *Wizard {
	return &Wizard{signer: signer}
}

// Initialize 重置向导到表单阶段并绑定钱包。
// pre 非空时预填参数；pre.SkipToConfirmation 为 true 时直接进入确认阶段
// (bonding 和 memoless 注册流程使用)。
func (w *Wizard) Initialize(walletID string, onComplete func(string), pre *PrePopulated) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.zeroPasswordLocked()
	w.walletID = walletID
	w.onComplete = onComplete
	w.phase = PhaseForm
	w.params = nil
	w.confirmed = false
	w.lastErr = nil
	w.txHash = ""
	w.closed = false

	if pre != nil {
		p := pre.Params
		w.params = &p
		if pre.SkipToConfirmation {
			w.phase = PhaseConfirmation
		}
	}
}

func (w *Wizard) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// SubmitForm 校验表单并进入确认阶段
func (w *Wizard) SubmitForm(p Params) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.phase != PhaseForm {
		return errno.ErrWizardPhase
	}
	if err := p.Validate(); err != nil {
		return err
	}

	w.params = &p
	w.phase = PhaseConfirmation
	return nil
}

// Back 从确认阶段回到表单。progress 阶段不可回退。
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.phase != PhaseConfirmation {
		return errno.ErrWizardPhase
	}
	w.zeroPasswordLocked()
	w.phase = PhaseForm
	return nil
}

// EnterPassword 记录用户在确认对话框输入的密码 (复制一份)
func (w *Wizard) EnterPassword(password []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.phase != PhaseConfirmation {
		return errno.ErrWizardPhase
	}
	w.zeroPasswordLocked()
	w.password = append([]byte(nil), password...)
	return nil
}

// Password 返回当前持有的密码副本。Close 后返回空。
func (w *Wizard) Password() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.password...)
}

// Confirm 用已输入的密码执行签名广播。
// 失败时停留在确认阶段并记录错误，不自动重试；
// 成功进入 progress 并回调 onComplete。
// 无论成败，密码在本次调用结束时清零。
func (w *Wizard) Confirm(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.phase != PhaseConfirmation {
		return "", errno.ErrWizardPhase
	}
	if w.params == nil {
		return "", errno.ErrWizardPhase
	}
	if len(w.password) == 0 {
		return "", errno.ErrPasswordRequired
	}

	// 签名完成后立即清零，不保留到下一次调用
	defer w.zeroPasswordLocked()

	txHash, err := w.signer.SignAndBroadcast(ctx, w.walletID, w.password, w.params)
	if err != nil {
		w.lastErr = err
		if monitor.Business != nil {
			monitor.Business.BroadcastTotal.WithLabelValues("failure").Inc()
		}
		logger.Warn("交易广播失败, 停留在确认阶段", zap.Error(err))
		return "", err
	}

	w.confirmed = true
	w.lastErr = nil
	w.txHash = txHash
	w.phase = PhaseProgress
	if monitor.Business != nil {
		monitor.Business.BroadcastTotal.WithLabelValues("success").Inc()
	}

	if w.onComplete != nil {
		// 回调在锁外执行会更稳妥, 但回调方仅读取 txHash, 这里保持同步语义
		go w.onComplete(txHash)
	}
	return txHash, nil
}

// TxHash 返回广播结果。只有 progress 阶段才有值。
func (w *Wizard) TxHash() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase != PhaseProgress {
		return "", false
	}
	return w.txHash, true
}

func (w *Wizard) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Confirmed 是否发生过密码提交 (进入 progress 的前置条件)
func (w *Wizard) Confirmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.confirmed
}

// Close 在任意阶段关闭对话框，清理内存中的敏感数据
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.zeroPasswordLocked()
	w.closed = true
}

func (w *Wizard) zeroPasswordLocked() {
	if len(w.password) > 0 {
		crypto_util.Zero(w.password)
		w.password = nil
	}
}
