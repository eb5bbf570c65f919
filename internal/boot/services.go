package boot

import (
	"time"

	"lc2gh/internal/backend"
	"lc2gh/internal/events"
	"lc2gh/internal/service"
	"lc2gh/pkg/config"
)

// Services 包含所有服务实例
type Services struct {
	TokenService      service.TokenManager
	StatusService     *service.StatusService
	SubmissionService service.SubmissionService
	LinkService       service.LinkService
	EventHub          *events.Hub
}

// InitServices 初始化所有服务实例
func InitServices(cfg *config.Config, repos *Repositories) *Services {
	client := backend.NewClient(cfg.API.Timeout)

	// 状态快照推送中心
	hub := events.NewHub(&events.Config{
		PingInterval:   time.Duration(cfg.Events.PingInterval) * time.Second,
		WriteWait:      time.Duration(cfg.Events.WriteWait) * time.Second,
		MaxMessageSize: int64(cfg.Events.MaxMessageSize),
	})

	// 令牌生命周期
	tokenService := service.NewTokenService(repos.SessionRepo, client, cfg.Auth.Leeway(), cfg.Auth.RefreshTimeout)

	// 状态机与提交编排
	statusService := service.NewStatusService(tokenService, client, hub, cfg.API.Timeout)
	submissionService := service.NewSubmissionService(tokenService, client, repos.DedupCache, statusService)

	linkService := service.NewLinkService(repos.SessionRepo, tokenService, client, cfg.API.Base)

	return &Services{
		TokenService:      tokenService,
		StatusService:     statusService,
		SubmissionService: submissionService,
		LinkService:       linkService,
		EventHub:          hub,
	}
}
