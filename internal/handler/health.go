package handler

import (
	"github.com/gin-gonic/gin"

	"runewallet/internal/handler/response"
)

// HealthCheck godoc
// @Summary 健康检查
// @Tags system
// @Produce json
// @Success 200 {object} response.Response
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "UP",
		"service": "runewallet",
	})
}
