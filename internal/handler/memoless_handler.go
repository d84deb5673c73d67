package handler

import (
	"github.com/gin-gonic/gin"

	"runewallet/internal/handler/request"
	"runewallet/internal/handler/response"
	"runewallet/internal/service/memoless"
	"runewallet/pkg/asset"
	"runewallet/pkg/crypto_util"
	"runewallet/pkg/errno"
	"runewallet/pkg/validator"
)

// MemolessHandler memoless 入金流程接口
type MemolessHandler struct {
	sessions *memoless.Manager
}

func NewMemolessHandler(sessions *memoless.Manager) *MemolessHandler {
	return &MemolessHandler{sessions: sessions}
}

func (h *MemolessHandler) get(c *gin.Context) (*memoless.Session, bool) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		response.Error(c, errno.ErrSessionNotFound)
		return nil, false
	}
	return s, true
}

// Create godoc
// @Summary 新建 memoless 会话
// @Tags memoless
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions [post]
func (h *MemolessHandler) Create(c *gin.Context) {
	s := h.sessions.Create()
	response.Success(c, s.State())
}

// State godoc
// @Summary 会话状态
// @Tags memoless
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id} [get]
func (h *MemolessHandler) State(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}
	response.Success(c, s.State())
}

// Setup godoc
// @Summary 第 1 步: 登记 memo 和入金资产
// @Tags memoless
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param request body request.MemolessSetupRequest true "参数"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/setup [post]
func (h *MemolessHandler) Setup(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}

	var req request.MemolessSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	a, err := asset.Parse(req.Asset)
	if err != nil {
		response.Error(c, errno.ErrNotGasAsset)
		return
	}
	if err := s.Setup(req.Memo, a); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.State())
}

// Register godoc
// @Summary 第 2 步: 广播零值注册交易
// @Tags memoless
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param request body request.MemolessRegisterRequest true "参数"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/register [post]
func (h *MemolessHandler) Register(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}

	var req request.MemolessRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	password := []byte(req.Password)
	defer crypto_util.Zero(password)

	txHash, err := s.Register(c.Request.Context(), req.WalletID, password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"tx_hash": txHash, "state": s.State()})
}

// FetchReference godoc
// @Summary 第 3 步: 查询 reference id
// @Tags memoless
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/reference [post]
func (h *MemolessHandler) FetchReference(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}
	if err := s.FetchReference(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.State())
}

// SetReference godoc
// @Summary 第 3 步兜底: 手动输入 reference id
// @Tags memoless
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param request body request.MemolessManualReferenceRequest true "参数"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/reference/manual [post]
func (h *MemolessHandler) SetReference(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}

	var req request.MemolessManualReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	if err := s.SetReferenceManually(c.Request.Context(), req.ReferenceID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.State())
}

// Calculate godoc
// @Summary 第 4 步: 金额编码并返回入金指引
// @Description 编码结果会独立校验, 校验不通过不返回地址和金额
// @Tags memoless
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param request body request.MemolessCalculateRequest true "参数"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/calculate [post]
func (h *MemolessHandler) Calculate(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}

	var req request.MemolessCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	instr, err := s.Calculate(c.Request.Context(), req.Amount, memoless.AmountUnit(req.Unit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, instr)
}

// Back godoc
// @Summary 回退一步
// @Tags memoless
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/back [post]
func (h *MemolessHandler) Back(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}
	if err := s.Back(); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.State())
}

// Reset godoc
// @Summary 清空会话回到第 1 步
// @Tags memoless
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id}/reset [post]
func (h *MemolessHandler) Reset(c *gin.Context) {
	s, ok := h.get(c)
	if !ok {
		return
	}
	s.Reset()
	response.Success(c, s.State())
}

// Close godoc
// @Summary 销毁会话
// @Tags memoless
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /api/v1/memoless/sessions/{id} [delete]
func (h *MemolessHandler) Close(c *gin.Context) {
	h.sessions.Close(c.Param("id"))
	response.Success(c, nil)
}
