package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 通用API响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "操作成功", data)
}

// Respond 以指定状态码返回数据
func Respond(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Error 返回错误响应
func Error(c *gin.Context, code int, message string, err error) {
	Fail(c, code, message, nil, err)
}

// Fail 返回错误响应并附带数据（如失败的提交结果）
func Fail(c *gin.Context, code int, message string, data interface{}, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
		Error:   errMsg,
	})
}
