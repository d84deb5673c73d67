package request

// CreateWalletRequest 新建钱包
type CreateWalletRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=64"`
	Password string `json:"password" binding:"required,min=8"`
}

// ImportWalletRequest 从助记词恢复钱包
type ImportWalletRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=64"`
	Mnemonic string `json:"mnemonic" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// PasswordRequest 密码门控操作 (删除、校验)
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
