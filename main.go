package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lc2gh/internal/boot"
	"lc2gh/pkg/copyright"
	"lc2gh/pkg/logger"
	"lc2gh/pkg/version"

	"github.com/gin-gonic/gin"
)

// checkFatalErr 用于统一处理错误检查并中断流程。
func checkFatalErr(err error, message string) {
	if err != nil {
		logger.Fatal("%s: %v", message, err)
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 设置构建时间（Build Time）
	if version.BuildTime == "unknown" {
		version.BuildTime = time.Now().Format(time.RFC3339)
	}

	// 加载配置文件（Configuration）
	cfg, err := boot.InitConfig(*configPath)
	checkFatalErr(err, "Failed to load config")

	// 根据配置设置 Gin 的运行模式（Gin Mode）
	gin.SetMode(cfg.Server.Mode)

	// 初始化凭证存储（Storage）
	storage, err := boot.InitStorage(cfg)
	checkFatalErr(err, "Failed to init storage")
	defer storage.Close()

	// 初始化仓储层（Repositories）
	repos := boot.InitRepositories(cfg, storage)

	// 生成设备ID（Device ID）
	deviceID, err := repos.SessionRepo.EnsureDeviceID(context.Background())
	checkFatalErr(err, "Failed to ensure device id")

	// 初始化服务层（Services）
	services := boot.InitServices(cfg, repos)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 启动状态推送（Event Hub）
	go services.EventHub.Run(ctx)

	// 初始化 HTTP 处理器与路由（Handlers & Router）
	handlers := boot.InitHandlers(services, cfg)
	r := gin.New()
	r.Use(gin.Recovery())
	_ = boot.InitRouter(r, handlers, cfg)

	session, err := repos.SessionRepo.Load(context.Background())
	checkFatalErr(err, "Failed to load session")

	routes := make([]string, 0, len(r.Routes()))
	for _, route := range r.Routes() {
		routes = append(routes, fmt.Sprintf("%s %s", route.Method, route.Path))
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	apiBase := session.APIBase
	if apiBase == "" {
		apiBase = cfg.API.Base
	}

	// 显示版权信息（Copyright）
	copyright.PrintCopyright(copyright.SystemStatus{
		Listen:        addr,
		APIBase:       apiBase,
		StorageDriver: cfg.Storage.Driver,
		DedupBackend:  cfg.Dedup.Backend,
		Linked:        session.IsLinked(),
		DeviceID:      deviceID,
		Routes:        routes,
	})

	// 启动服务器（Server）
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting relay on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server: %v", err)
	}
}
