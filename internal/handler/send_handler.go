package handler

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"runewallet/internal/handler/request"
	"runewallet/internal/handler/response"
	"runewallet/internal/service/txwizard"
	"runewallet/pkg/asset"
	"runewallet/pkg/crypto_util"
	"runewallet/pkg/errno"
	"runewallet/pkg/validator"
)

// SendHandler 发送向导接口。
// 向导是会话态的: 每次打开对话框创建一个, 关闭即销毁。
type SendHandler struct {
	signer txwizard.Signer

	mu      sync.Mutex
	wizards map[string]*txwizard.Wizard
}

func NewSendHandler(signer txwizard.Signer) *SendHandler {
	return &SendHandler{
		signer:  signer,
		wizards: make(map[string]*txwizard.Wizard),
	}
}

func (h *SendHandler) get(id string) (*txwizard.Wizard, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.wizards[id]
	return w, ok
}

// Create godoc
// @Summary 打开发送向导
// @Tags send
// @Accept json
// @Produce json
// @Param request body request.CreateWizardRequest true "钱包"
// @Success 200 {object} response.Response
// @Router /api/v1/send/wizards [post]
func (h *SendHandler) Create(c *gin.Context) {
	var req request.CreateWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	w := txwizard.New(h.signer)
	w.Initialize(req.WalletID, nil, nil)
	id := uuid.NewString()

	h.mu.Lock()
	h.wizards[id] = w
	h.mu.Unlock()

	response.Success(c, gin.H{"wizard_id": id, "phase": w.Phase().String()})
}

// SubmitForm godoc
// @Summary 提交表单, 进入确认阶段
// @Tags send
// @Accept json
// @Produce json
// @Param id path string true "向导 ID"
// @Param request body request.SendFormRequest true "表单"
// @Success 200 {object} response.Response
// @Router /api/v1/send/wizards/{id}/form [post]
func (h *SendHandler) SubmitForm(c *gin.Context) {
	w, ok := h.get(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrWizardPhase)
		return
	}

	var req request.SendFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	a, err := asset.Parse(req.Asset)
	if err != nil {
		response.Error(c, errno.ErrMissingAsset)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, errno.ErrInvalidAmount)
		return
	}

	if err := w.SubmitForm(txwizard.Params{
		Asset:       a,
		Amount:      amount,
		Destination: req.Destination,
		Memo:        req.Memo,
		Deposit:     req.Deposit,
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"phase": w.Phase().String()})
}

// Back godoc
// @Summary 从确认阶段回到表单
// @Tags send
// @Produce json
// @Param id path string true "向导 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/send/wizards/{id}/back [post]
func (h *SendHandler) Back(c *gin.Context) {
	w, ok := h.get(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrWizardPhase)
		return
	}
	if err := w.Back(); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"phase": w.Phase().String()})
}

// Confirm godoc
// @Summary 密码确认并广播
// @Description 失败时停留在确认阶段, 需要重新输入密码后重试
// @Tags send
// @Accept json
// @Produce json
// @Param id path string true "向导 ID"
// @Param request body request.ConfirmRequest true "密码"
// @Success 200 {object} response.Response
// @Router /api/v1/send/wizards/{id}/confirm [post]
func (h *SendHandler) Confirm(c *gin.Context) {
	w, ok := h.get(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrWizardPhase)
		return
	}

	var req request.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	password := []byte(req.Password)
	defer crypto_util.Zero(password)

	if err := w.EnterPassword(password); err != nil {
		response.Error(c, err)
		return
	}
	txHash, err := w.Confirm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"phase": w.Phase().String(), "tx_hash": txHash})
}

// Status godoc
// @Summary 向导状态
// @Tags send
// @Produce json
// @Param id path string true "向导 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/send/wizards/{id} [get]
func (h *SendHandler) Status(c *gin.Context) {
	w, ok := h.get(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrWizardPhase)
		return
	}

	data := gin.H{"phase": w.Phase().String()}
	if txHash, ok := w.TxHash(); ok {
		data["tx_hash"] = txHash
	}
	if err := w.LastError(); err != nil {
		data["last_error"] = err.Error()
	}
	response.Success(c, data)
}

// Close godoc
// @Summary 关闭向导 (清理内存中的密码)
// @Tags send
// @Produce json
// @Param id path string true "向导 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/send/wizards/{id} [delete]
func (h *SendHandler) Close(c *gin.Context) {
	id := c.Param("id")

	h.mu.Lock()
	w, ok := h.wizards[id]
	if ok {
		delete(h.wizards, id)
	}
	h.mu.Unlock()

	if ok {
		w.Close()
	}
	response.Success(c, nil)
}
