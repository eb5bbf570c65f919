package boot

import (
	v1 "lc2gh/api/v1"
	"lc2gh/pkg/config"
	"lc2gh/pkg/router"

	"github.com/gin-gonic/gin"
)

// Handlers 包含所有HTTP处理器
type Handlers struct {
	RelayHandler   *v1.RelayHandler
	AccountHandler *v1.AccountHandler
}

// InitHandlers 初始化所有HTTP处理器
func InitHandlers(services *Services, cfg *config.Config) *Handlers {
	return &Handlers{
		RelayHandler: v1.NewRelayHandler(
			services.SubmissionService,
			services.StatusService,
			services.EventHub,
			cfg.Server.AllowedOrigins,
		),
		AccountHandler: v1.NewAccountHandler(services.LinkService, cfg.Auth.RedirectURL),
	}
}

// InitRouter 初始化路由
func InitRouter(engine *gin.Engine, handlers *Handlers, cfg *config.Config) *router.Router {
	r := router.NewRouter(engine, handlers.RelayHandler, handlers.AccountHandler, cfg.Server.AllowedOrigins)
	r.RegisterRoutes()
	return r
}
