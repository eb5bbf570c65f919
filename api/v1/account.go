package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lc2gh/internal/service"
	"lc2gh/pkg/api"
)

// AccountHandler 账号关联处理器
type AccountHandler struct {
	linkService     service.LinkService
	defaultRedirect string
}

// NewAccountHandler 创建账号关联处理器实例
func NewAccountHandler(linkService service.LinkService, defaultRedirect string) *AccountHandler {
	return &AccountHandler{
		linkService:     linkService,
		defaultRedirect: defaultRedirect,
	}
}

// CompleteLinkRequest 完成关联请求
type CompleteLinkRequest struct {
	CallbackURL string `json:"callback_url" binding:"required"`
	Nonce       string `json:"nonce" binding:"required"`
}

// Register 注册路由
func (h *AccountHandler) Register(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.GET("/link/start", h.StartLink)
		auth.POST("/link/complete", h.CompleteLink)
		auth.POST("/logout", h.Logout)
	}
	r.GET("/account", h.Account)
}

// StartLink 生成关联地址
func (h *AccountHandler) StartLink(c *gin.Context) {
	redirect := c.DefaultQuery("redirect", h.defaultRedirect)

	start, err := h.linkService.Start(c.Request.Context(), redirect)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	api.Success(c, start)
}

// CompleteLink 保存回跳地址中的令牌
func (h *AccountHandler) CompleteLink(c *gin.Context) {
	var req CompleteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "请求参数错误", err)
		return
	}

	view, err := h.linkService.Complete(c.Request.Context(), req.CallbackURL, req.Nonce)
	if err != nil {
		writeError(c, err, view)
		return
	}
	api.Success(c, view)
}

// Account 当前连接状态
func (h *AccountHandler) Account(c *gin.Context) {
	view, err := h.linkService.Account(c.Request.Context())
	if err != nil {
		writeError(c, err, view)
		return
	}
	api.Success(c, view)
}

// Logout 清除本地凭证
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.linkService.Logout(c.Request.Context()); err != nil {
		writeError(c, err, nil)
		return
	}
	api.Success(c, nil)
}
