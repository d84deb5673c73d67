package request

// CreateWizardRequest 打开发送向导
type CreateWizardRequest struct {
	WalletID string `json:"wallet_id" binding:"required"`
}

// SendFormRequest 发送向导的表单提交
type SendFormRequest struct {
	Asset       string `json:"asset" binding:"required"`
	Amount      string `json:"amount" binding:"required"` // Decimal string
	Destination string `json:"destination"`               // MsgDeposit 不需要
	Memo        string `json:"memo"`
	Deposit     bool   `json:"deposit"`
}

// ConfirmRequest 确认阶段的密码提交
type ConfirmRequest struct {
	Password string `json:"password" binding:"required"`
}
