package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lc2gh/internal/backend"
	"lc2gh/internal/model"
	"lc2gh/internal/service"
	"lc2gh/pkg/api"
)

// statusFor 把服务层错误映射为 HTTP 状态码与提示
func statusFor(err error) (int, string) {
	var authErr *service.AuthError
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &authErr):
		switch authErr.Kind {
		case service.AuthRefreshRejected:
			return http.StatusUnauthorized, "凭证已失效，请重新关联"
		case service.AuthNotLinked:
			return http.StatusUnauthorized, "尚未关联账号"
		default:
			return http.StatusUnauthorized, "后端拒绝了访问令牌"
		}
	case backend.IsNetworkError(err):
		return http.StatusBadGateway, "无法连接后端"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "后端返回错误"
	case errors.Is(err, model.ErrMissingSlug),
		errors.Is(err, model.ErrMissingCode),
		errors.Is(err, service.ErrMissingRedirect),
		errors.Is(err, service.ErrCallbackMissingTokens),
		errors.Is(err, service.ErrNonceMismatch):
		return http.StatusBadRequest, "请求参数错误"
	default:
		return http.StatusInternalServerError, "内部错误"
	}
}

// writeError 输出错误响应
func writeError(c *gin.Context, err error, data interface{}) {
	code, message := statusFor(err)
	api.Fail(c, code, message, data, err)
}
