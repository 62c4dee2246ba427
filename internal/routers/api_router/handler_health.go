package api_router

import (
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/app"
	"github.com/haierkeys/fast-note-image-uploader/internal/dto"
	pkgapp "github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"

	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

// Check 健康检查接口
// @Summary 健康检查
// @Description 检查上传记录数据库与对象存储配置
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.HealthResponse}
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	res := dto.HealthResponse{
		Status:           "healthy",
		Version:          h.App.Version().Version,
		Uptime:           time.Since(h.App.StartTime).Seconds(),
		Ledger:           "disabled",
		Storage:          "configured",
		PendingRefreshes: h.App.Reconciler.PendingRefreshes(),
		Clients:          h.App.WSHub.Count(),
	}

	if h.App.DB != nil {
		res.Ledger = "connected"
		if err := h.App.DB.WithContext(c.Request.Context()).Exec("SELECT 1").Error; err != nil {
			res.Status = "unhealthy"
			res.Ledger = "error"
		}
	}
	if err := h.App.Uploader.CheckConfig(); err != nil {
		res.Status = "unhealthy"
		res.Storage = "unconfigured"
	}

	if h.App.IsShuttingDown() {
		res.Status = "shutting_down"
	}

	if res.Status != "healthy" {
		pkgapp.NewResponse(c).ToResponse(code.ErrorServerInternal.Clone().WithData(res))
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.Clone().WithData(res))
}

// Version 服务端版本
// @Summary 获取服务端版本
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.VersionInfo}
// @Router /api/version [get]
func (h *HealthHandler) Version(c *gin.Context) {
	pkgapp.NewResponse(c).ToResponse(code.Success.Clone().WithData(h.App.Version()))
}
