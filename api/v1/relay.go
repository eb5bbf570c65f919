package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lc2gh/internal/events"
	"lc2gh/internal/model"
	"lc2gh/internal/service"
	"lc2gh/pkg/api"
	"lc2gh/pkg/middleware"
)

// RelayHandler 采集端调用的中继接口
type RelayHandler struct {
	submissions service.SubmissionService
	status      *service.StatusService
	hub         *events.Hub
	upgrader    websocket.Upgrader
}

// NewRelayHandler 创建中继处理器实例
func NewRelayHandler(submissions service.SubmissionService, status *service.StatusService, hub *events.Hub, allowedOrigins []string) *RelayHandler {
	return &RelayHandler{
		submissions: submissions,
		status:      status,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// SubmitRequest 自动采集的提交请求
type SubmitRequest struct {
	Artifact *model.Artifact `json:"artifact" binding:"required"`
	Force    bool            `json:"force"`
}

// ManualRequest 手动提交/替换请求
type ManualRequest struct {
	Artifact *model.Artifact `json:"artifact" binding:"required"`
	model.ManualAction
}

// NavigateRequest 页面导航
type NavigateRequest struct {
	Slug string `json:"slug"`
}

// SignalRequest 页面通过信号，page_text 与显式字段二选一
type SignalRequest struct {
	Slug     string `json:"slug"`
	PageText string `json:"page_text"`
	model.PageSignal
}

// Register 注册路由
func (h *RelayHandler) Register(r *gin.RouterGroup) {
	relay := r.Group("/relay")
	{
		relay.POST("/submissions", h.Submit)
		relay.POST("/manual", h.Manual)
		relay.POST("/navigate", h.Navigate)
		relay.POST("/signal", h.Signal)
		relay.GET("/status", h.Status)
		relay.GET("/events", h.Events)
	}
}

// Submit 自动采集路径
func (h *RelayHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "请求参数错误", err)
		return
	}

	h.submit(c, req.Artifact, model.SubmitOptions{Force: req.Force})
}

// Manual 手动提交/替换，缺少确认时返回 409
func (h *RelayHandler) Manual(c *gin.Context) {
	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "请求参数错误", err)
		return
	}

	decision := h.status.DecideManual(req.ManualAction)
	if !decision.Proceed {
		api.Respond(c, http.StatusConflict, "需要确认", decision)
		return
	}

	h.submit(c, req.Artifact, decision.Options)
}

func (h *RelayHandler) submit(c *gin.Context, artifact *model.Artifact, opts model.SubmitOptions) {
	result, err := h.submissions.Submit(c.Request.Context(), artifact, opts)
	if err != nil {
		writeError(c, err, result)
		return
	}

	if result.Skipped() {
		api.Respond(c, http.StatusOK, "重复内容，已跳过", result)
		return
	}
	api.Success(c, result)
}

// Navigate 切换题目，状态查询在后台进行
func (h *RelayHandler) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "请求参数错误", err)
		return
	}

	h.status.Navigate(req.Slug)
	api.Respond(c, http.StatusAccepted, "状态查询中", h.status.Snapshot())
}

// Signal 记录页面通过信号
func (h *RelayHandler) Signal(c *gin.Context) {
	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Error(c, http.StatusBadRequest, "请求参数错误", err)
		return
	}

	signal := req.PageSignal
	if strings.TrimSpace(req.PageText) != "" {
		signal = service.DetectSignal(req.PageText)
	}
	api.Success(c, h.status.ObservePage(req.Slug, signal))
}

// Status 当前状态快照
func (h *RelayHandler) Status(c *gin.Context) {
	api.Success(c, h.status.Snapshot())
}

// Events WebSocket 推送状态快照
func (h *RelayHandler) Events(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写回了错误响应
		return
	}
	h.hub.AddClient(conn)
}
