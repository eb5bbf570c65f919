package router

import (
	v1 "lc2gh/api/v1"
	"lc2gh/pkg/api"
	"lc2gh/pkg/middleware"
	"lc2gh/pkg/version"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器
type Router struct {
	engine         *gin.Engine
	relayHandler   *v1.RelayHandler
	accountHandler *v1.AccountHandler
	allowedOrigins []string
}

// NewRouter 创建路由管理器实例
func NewRouter(
	engine *gin.Engine,
	relayHandler *v1.RelayHandler,
	accountHandler *v1.AccountHandler,
	allowedOrigins []string,
) *Router {
	return &Router{
		engine:         engine,
		relayHandler:   relayHandler,
		accountHandler: accountHandler,
		allowedOrigins: allowedOrigins,
	}
}

// RegisterRoutes 注册所有路由
func (r *Router) RegisterRoutes() {
	// 预检请求没有对应路由，CORS 需要挂在引擎上
	r.engine.Use(middleware.RequestLogger(), middleware.CORS(r.allowedOrigins))

	// API v1
	apiGroup := r.engine.Group("/api/v1")
	{
		// 健康检查
		apiGroup.GET("/health", func(c *gin.Context) {
			api.Success(c, version.GetVersionInfo())
		})
		// 注册中继相关路由
		r.relayHandler.Register(apiGroup)
		// 注册账号关联相关路由
		r.accountHandler.Register(apiGroup)
	}
}
