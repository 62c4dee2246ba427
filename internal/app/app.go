// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/dao"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/internal/metrics"
	"github.com/haierkeys/fast-note-image-uploader/internal/service"
	"github.com/haierkeys/fast-note-image-uploader/internal/vault"
	pkgapp "github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage"
	"github.com/haierkeys/fast-note-image-uploader/pkg/workerpool"
	"github.com/haierkeys/fast-note-image-uploader/pkg/writequeue"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MetricsNamespace prometheus 指标命名空间
const MetricsNamespace = "image_uploader"

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager

	Vault    *vault.LocalVault
	Ledger   domain.UploadRecordRepository
	Metrics  metrics.Metrics
	Registry *prometheus.Registry

	// Service 层
	Uploader   *service.Uploader
	Resolver   *service.Resolver
	Backup     *service.BackupManager
	Reconciler *service.Reconciler
	Notifier   *service.MultiNotifier

	// 基础设施组件
	TokenManager pkgapp.TokenManager
	WSHub        *pkgapp.WebsocketServer

	StartTime time.Time

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// NewApp 创建应用容器实例
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		StartTime:  time.Now(),
		shutdownCh: make(chan struct{}),
	}

	v, err := vault.NewLocalVault(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	a.Vault = v

	// 上传记录数据库，路径为空时不记录
	if ledgerCfg := cfg.GetLedgerConfig(); ledgerCfg.Path != "" {
		db, err := dao.NewDBEngine(ledgerCfg)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		a.DB = db
		a.Dao = dao.New(db, logger)
		a.Ledger = dao.NewUploadRecordRepository(a.Dao)
	}

	a.Registry = prometheus.NewRegistry()
	a.Metrics = metrics.NewProm(MetricsNamespace, a.Registry)

	// 初始化 Worker Pool
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, logger)

	// 初始化 Write Queue Manager，按笔记路径串行化写操作
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, logger)

	uploadCfg, err := cfg.GetUploadConfig()
	if err != nil {
		return nil, err
	}
	// 存储客户端延迟创建，配置缺失时在第一次上传前报告
	factory := func() (domain.StorageClient, error) {
		sc, err := cfg.StorageClientConfig()
		if err != nil {
			return nil, err
		}
		return storage.NewClient(sc, logger)
	}
	a.Uploader = service.NewUploader(uploadCfg, factory, logger, a.Metrics)
	a.Resolver = service.NewResolver(v, logger, a.Metrics)
	a.Backup = service.NewBackupManager(v, a.Ledger, cfg.GetBackupConfig(), logger, a.Metrics)

	a.TokenManager = pkgapp.NewTokenManager(pkgapp.TokenConfig{
		SecretKey: cfg.Security.AuthTokenKey,
		Issuer:    pkgapp.DefaultTokenIssuer,
		Expiry:    cfg.GetTokenExpiry(),
	})
	a.WSHub = pkgapp.NewWebsocketServer(pkgapp.WebsocketServerConfig{
		Tokens: a.TokenManager,
		Logger: logger,
	})
	a.Notifier = service.NewMultiNotifier(service.NewLogNotifier(logger), a.WSHub)

	a.Reconciler = service.NewReconciler(service.ReconcilerDeps{
		Vault:    v,
		Resolver: a.Resolver,
		Uploader: a.Uploader,
		Backup:   a.Backup,
		Ledger:   a.Ledger,
		Locks:    a.writeQueueMgr,
		Pool:     a.workerPool,
		Notifier: a.Notifier,
		Logger:   logger,
		Metrics:  a.Metrics,
	}, cfg.GetReconcilerConfig())

	logger.Info("App container initialized",
		zap.String("vault", v.Root()),
		zap.String("storage", cfg.Storage.Type),
		zap.Bool("ledger", a.Ledger != nil),
		zap.Bool("auth", a.TokenManager.Enabled()))

	return a, nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{Version: Version, GitTag: GitTag, BuildTime: BuildTime}
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// NewWatcher 创建 vault 监听器
func (a *App) NewWatcher() *vault.Watcher {
	return vault.NewWatcher(a.Vault, a.config.GetWatchInterval(), a.logger)
}

// StartBackground 启动 vault 监听与定期备份刷新，阻塞直到 ctx 结束
func (a *App) StartBackground(ctx context.Context) error {
	if err := a.Backup.StartSweep(ctx, a.Reconciler.NotifyModified); err != nil {
		return err
	}
	if !a.config.Vault.Watch {
		<-ctx.Done()
		return nil
	}
	done := a.TrackOperation()
	defer done()
	return a.NewWatcher().Run(ctx, a.Reconciler.NotifyModified)
}

// Close 关闭数据库连接
func (a *App) Close() error {
	if a.Dao == nil {
		return nil
	}
	if err := a.Dao.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Reconciler -> 备份定时任务 -> WebSocket -> Worker Pool -> Write Queue Manager -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	select {
	case <-a.shutdownCh:
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 0. 停止待刷新的影子笔记计时器，不再接受新的刷新
	if a.Reconciler != nil {
		a.Reconciler.Shutdown()
	}
	if a.Backup != nil {
		a.Backup.Cleanup()
	}
	if a.WSHub != nil {
		a.WSHub.Close()
	}

	// 1. 关闭 Worker Pool（停止接受新任务，等待现有任务完成）
	if a.workerPool != nil {
		a.logger.Info("Shutting down worker pool...")
		if err := a.workerPool.Shutdown(ctx); err != nil {
			a.logger.Warn("Worker pool shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		}
	}

	// 2. 关闭 Write Queue Manager（排空所有队列）
	if a.writeQueueMgr != nil {
		a.logger.Info("Shutting down write queue manager...")
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		}
	}

	// 3. 等待所有后台操作完成
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("All background operations completed")
	case <-ctx.Done():
		a.logger.Warn("Shutdown timeout waiting for background operations")
		errs = append(errs, fmt.Errorf("background operations timeout: %w", ctx.Err()))
	}

	// 4. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// TrackOperation 跟踪后台操作（用于优雅关闭时等待）
func (a *App) TrackOperation() func() {
	a.wg.Add(1)
	return func() {
		a.wg.Done()
	}
}
