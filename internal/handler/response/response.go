package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"runewallet/pkg/errno"
)

// Response 统一的 JSON 返回结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success 成功返回
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // 返回空对象而不是 null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error 错误返回
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}
