package request

// MemolessSetupRequest 第 1 步: 登记 memo 和资产
type MemolessSetupRequest struct {
	Memo  string `json:"memo" binding:"required"`
	Asset string `json:"asset" binding:"required"` // CHAIN.SYMBOL
}

// MemolessRegisterRequest 第 2 步: 广播注册交易
type MemolessRegisterRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MemolessManualReferenceRequest 第 3 步的手动输入兜底
type MemolessManualReferenceRequest struct {
	ReferenceID string `json:"reference_id" binding:"required"`
}

// MemolessCalculateRequest 第 4 步: 金额编码
type MemolessCalculateRequest struct {
	Amount string `json:"amount" binding:"required"`               // Decimal string
	Unit   string `json:"unit" binding:"required,oneof=asset usd"` // 输入单位
}
