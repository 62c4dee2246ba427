package routers

import (
	"net/http"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/app"
	"github.com/haierkeys/fast-note-image-uploader/internal/middleware"
	"github.com/haierkeys/fast-note-image-uploader/internal/routers/api_router"
	"github.com/haierkeys/fast-note-image-uploader/internal/routers/websocket_router"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {

	cfg := appContainer.Config()

	wss := appContainer.WSHub
	websocket_router.NewImageWSHandler(appContainer).Register(wss)

	var limiter *middleware.IPLimiter
	if cfg.Server.RequestLimit > 0 {
		limiter = middleware.NewIPLimiter(middleware.LimiterRule{
			FillInterval: time.Second,
			Capacity:     cfg.Server.RequestLimit,
			Quantum:      cfg.Server.RequestLimit,
		})
	}

	r := gin.New()
	r.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

	api := r.Group("/api")
	{
		api.Use(middleware.TraceMiddleware(cfg.Server.TraceHeader))
		api.Use(middleware.RateLimiter(limiter))
		api.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
		api.Use(middleware.LangWithTranslator(uni))
		api.Use(middleware.AccessLog(appContainer.Logger()))

		healthHandler := api_router.NewHealthHandler(appContainer)
		imageHandler := api_router.NewImageHandler(appContainer)
		storageHandler := api_router.NewStorageHandler(appContainer)

		api.GET("/health", healthHandler.Check)
		api.GET("/version", healthHandler.Version)
		// WebSocket 在连接后通过 "Authorization|token" 鉴权
		api.GET("/ws", wss.Run())

		auth := api.Group("", middleware.AuthToken(appContainer.TokenManager))
		auth.POST("/note/scan", imageHandler.Scan)
		auth.POST("/note/backup", imageHandler.Backup)
		auth.POST("/note/drop", imageHandler.Drop)
		auth.POST("/note/paste", imageHandler.Paste)
		auth.GET("/note/records", imageHandler.Records)
		auth.GET("/objects", storageHandler.List)
		auth.DELETE("/objects", storageHandler.Delete)
	}

	// 本地存储对象通过 /files/ 对外提供
	if cfg.Storage.Type == storage.LOCAL && cfg.Storage.SavePath != "" {
		r.StaticFS("/files", http.Dir(cfg.Storage.SavePath))
	}
	r.NoRoute(middleware.NoFound())

	return r
}
