package handler

import (
	"github.com/gin-gonic/gin"

	"runewallet/internal/handler/response"
	"runewallet/internal/service"
)

// ChainHandler 链节点查询的透传接口 (池子、入金地址、交易追踪)
type ChainHandler struct {
	backend service.ChainBackend
}

func NewChainHandler(backend service.ChainBackend) *ChainHandler {
	return &ChainHandler{backend: backend}
}

// Pools godoc
// @Summary 流动性池列表
// @Tags chain
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/chain/pools [get]
func (h *ChainHandler) Pools(c *gin.Context) {
	pools, err := h.backend.Pools(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pools)
}

// InboundAddresses godoc
// @Summary 各链入金地址与 dust 阈值
// @Tags chain
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/chain/inbound [get]
func (h *ChainHandler) InboundAddresses(c *gin.Context) {
	inbounds, err := h.backend.InboundAddresses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, inbounds)
}

// Network godoc
// @Summary 链网络概要
// @Tags chain
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/chain/network [get]
func (h *ChainHandler) Network(c *gin.Context) {
	info, err := h.backend.NetworkInfo(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, info)
}

// TrackTransaction godoc
// @Summary 交易确认状态
// @Tags chain
// @Produce json
// @Param hash path string true "交易哈希"
// @Success 200 {object} response.Response
// @Router /api/v1/chain/tx/{hash} [get]
func (h *ChainHandler) TrackTransaction(c *gin.Context) {
	status, err := h.backend.TrackTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}
