package handler

import (
	"github.com/gin-gonic/gin"

	"runewallet/internal/handler/request"
	"runewallet/internal/handler/response"
	"runewallet/internal/service/wallet"
	"runewallet/pkg/crypto_util"
	"runewallet/pkg/errno"
	"runewallet/pkg/validator"
)

// WalletHandler 钱包生命周期接口
type WalletHandler struct {
	wallets  *wallet.Service
	sessions *wallet.SessionStore
}

func NewWalletHandler(wallets *wallet.Service, sessions *wallet.SessionStore) *WalletHandler {
	return &WalletHandler{wallets: wallets, sessions: sessions}
}

// Create godoc
// @Summary 新建钱包
// @Description 生成助记词并用密码加密落库。助记词只在本次响应返回一次。
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body request.CreateWalletRequest true "创建参数"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets [post]
func (h *WalletHandler) Create(c *gin.Context) {
	var req request.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	password := []byte(req.Password)
	defer crypto_util.Zero(password)

	w, mnemonic, err := h.wallets.Create(c.Request.Context(), req.Name, password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"wallet":   w,
		"mnemonic": mnemonic, // 仅此一次, 客户端负责引导备份
	})
}

// Import godoc
// @Summary 从助记词恢复钱包
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body request.ImportWalletRequest true "恢复参数"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/import [post]
func (h *WalletHandler) Import(c *gin.Context) {
	var req request.ImportWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	password := []byte(req.Password)
	defer crypto_util.Zero(password)

	w, err := h.wallets.Import(c.Request.Context(), req.Name, req.Mnemonic, password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, w)
}

// List godoc
// @Summary 钱包列表
// @Tags wallet
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/wallets [get]
func (h *WalletHandler) List(c *gin.Context) {
	ws, err := h.wallets.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws)
}

// Get godoc
// @Summary 钱包详情
// @Tags wallet
// @Produce json
// @Param id path string true "钱包 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{id} [get]
func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.wallets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, w)
}

// Delete godoc
// @Summary 删除钱包 (密码门控)
// @Tags wallet
// @Accept json
// @Produce json
// @Param id path string true "钱包 ID"
// @Param request body request.PasswordRequest true "密码"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{id} [delete]
func (h *WalletHandler) Delete(c *gin.Context) {
	var req request.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	password := []byte(req.Password)
	defer crypto_util.Zero(password)

	if err := h.wallets.Delete(c.Request.Context(), c.Param("id"), password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Unlock godoc
// @Summary 解锁钱包
// @Description 密码校验通过后签发会话 token, token 不携带密钥材料
// @Tags wallet
// @Accept json
// @Produce json
// @Param id path string true "钱包 ID"
// @Param request body request.PasswordRequest true "密码"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{id}/unlock [post]
func (h *WalletHandler) Unlock(c *gin.Context) {
	var req request.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	password := []byte(req.Password)
	defer crypto_util.Zero(password)

	w, err := h.wallets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.wallets.VerifyPassword(w, password); err != nil {
		response.Error(c, err)
		return
	}
	token, ttl, err := h.sessions.Save(c.Request.Context(), w.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_in": int(ttl.Seconds()),
	})
}

// Lock godoc
// @Summary 注销解锁会话
// @Tags wallet
// @Param token path string true "会话 token"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/sessions/{token} [delete]
func (h *WalletHandler) Lock(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Balances godoc
// @Summary 链上余额
// @Tags wallet
// @Produce json
// @Param id path string true "钱包 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{id}/balances [get]
func (h *WalletHandler) Balances(c *gin.Context) {
	balances, err := h.wallets.Balances(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, balances)
}

// Transactions godoc
// @Summary 广播记录
// @Tags wallet
// @Produce json
// @Param id path string true "钱包 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{id}/transactions [get]
func (h *WalletHandler) Transactions(c *gin.Context) {
	records, err := h.wallets.Transactions(c.Request.Context(), c.Param("id"), 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}
