package txwizard

import (
	"github.com/shopspring/decimal"

	"runewallet/pkg/asset"
	"runewallet/pkg/errno"
)

// Params 一次交易向导运行的参数。
// 进入确认阶段后不可再变更。
type Params struct {
	Asset       asset.Asset
	Amount      decimal.Decimal
	Destination string // 仅转账需要
	Memo        string
	Deposit     bool // true: deposit 消息 (无收款地址); false: 直接转账
}

// Validate 表单阶段的字段校验。
// 跳过表单直达确认阶段的预填参数 (bonding / memoless 注册) 不经过这里。
func (p *Params) Validate() error {
	if p.Asset.IsZero() {
		return errno.ErrMissingAsset
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return errno.ErrInvalidAmount
	}
	// 收款地址只有直接转账才是必填；deposit 消息没有收款方
	if !p.Deposit && p.Destination == "" {
		return errno.ErrMissingRecipient
	}
	return nil
}

// PrePopulated 由调用方注入的预填数据
type PrePopulated struct {
	Params             Params
	SkipToConfirmation bool
}
