// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/haierkeys/fast-note-image-uploader/internal/dao"
	"github.com/haierkeys/fast-note-image-uploader/internal/service"
	"github.com/haierkeys/fast-note-image-uploader/pkg/logger"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage"
	"github.com/haierkeys/fast-note-image-uploader/pkg/util"
	"github.com/haierkeys/fast-note-image-uploader/pkg/workerpool"
	"github.com/haierkeys/fast-note-image-uploader/pkg/writequeue"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File     string         `yaml:"-"` // 配置文件路径，不序列化
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Vault    VaultConfig    `yaml:"vault"`
	Storage  StorageConfig  `yaml:"storage"`
	Upload   UploadConfig   `yaml:"upload"`
	Backup   BackupConfig   `yaml:"backup"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Security SecurityConfig `yaml:"security"`
	App      AppSettings    `yaml:"app"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，为空时只输出到 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"false"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 端口
	HttpPort string `yaml:"http-port" default:":9100"`
	// PrivateHttpListen metrics 与 pprof 监听地址，为空时不启动
	PrivateHttpListen string `yaml:"private-http-listen"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"120"`
	// MaxUploadSize 单次拖放或粘贴请求的最大字节数
	MaxUploadSize string `yaml:"max-upload-size" default:"64MB"`
	// RequestLimit 每个客户端 IP 每秒允许的请求数，0 表示不限
	RequestLimit int64 `yaml:"request-limit" default:"0"`
	// TraceHeader 请求追踪 ID 的请求头名称
	TraceHeader string `yaml:"trace-header" default:"X-Trace-ID"`
}

// VaultConfig vault 配置
type VaultConfig struct {
	// Path vault 根目录
	Path string `yaml:"path" default:"storage/vault"`
	// Watch 是否监听笔记修改并刷新备份
	Watch bool `yaml:"watch" default:"true"`
	// WatchInterval 轮询间隔，支持格式：500ms、2s
	WatchInterval string `yaml:"watch-interval" default:"1s"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	// Type oss / s3 / r2 / minio / webdav / localfs
	Type            string `yaml:"type" default:"oss"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	BucketName      string `yaml:"bucket-name"`
	AccessKeyID     string `yaml:"access-key-id"`
	AccessKeySecret string `yaml:"access-key-secret"`
	AccountID       string `yaml:"account-id"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Path            string `yaml:"path"`
	// SavePath localfs 对象保存目录
	SavePath string `yaml:"save-path" default:"storage/objects"`
	// PublicBaseURL localfs / webdav 对外访问地址
	PublicBaseURL string `yaml:"public-base-url"`
}

// UploadConfig 上传配置
type UploadConfig struct {
	// KeyPrefix 存储 key 前缀，不含首尾斜杠
	KeyPrefix string `yaml:"key-prefix" default:"images"`
	// Expires 签名链接有效期，支持格式：365d、3600（秒）
	Expires string `yaml:"expires" default:"31536000"`
	// RateLimit 上传带宽限制，例如 2MB 表示每秒 2MB，空表示不限
	RateLimit string `yaml:"rate-limit"`
}

// BackupConfig 备份配置
type BackupConfig struct {
	// Root 备份根目录（vault 相对路径），为空时使用笔记所在目录下的 folder-name
	Root string `yaml:"root"`
	// FolderName 默认备份目录名
	FolderName string `yaml:"folder-name" default:"备份"`
	// Debounce 笔记修改后刷新影子笔记前的静默时间
	Debounce string `yaml:"debounce" default:"3s"`
	// SweepCron 定期刷新全部影子笔记的 cron 表达式，为空时不启用
	SweepCron string `yaml:"sweep-cron"`
}

// LedgerConfig 上传记录数据库配置，Path 为空时不记录
type LedgerConfig struct {
	Path        string `yaml:"path" default:"storage/database/ledger.sqlite3"`
	TablePrefix string `yaml:"table-prefix"`
	AutoMigrate bool   `yaml:"auto-migrate" default:"true"`
	Debug       bool   `yaml:"debug"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// AuthTokenKey JWT 签名密钥，为空时 API 不需要鉴权
	AuthTokenKey string `yaml:"auth-token-key"`
	// TokenExpiry Token 过期时间，支持格式：7d（天）、24h（小时）、30m（分钟）
	TokenExpiry string `yaml:"token-expiry" default:"365d"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 默认上下文超时时间（秒）
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"120"`

	// Worker Pool 配置
	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"4"`
	WorkerPoolQueueSize  int `yaml:"worker-pool-queue-size" default:"256"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"64"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"60s"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"5m"`
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	if err := yaml.Unmarshal(file, c); err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "re-set default config failed")
	}

	return c, realpath, nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}
	return errors.Wrap(os.WriteFile(c.File, data, 0o644), "write config file failed")
}

// LoggerConfig 转换为 logger 配置
func (c *AppConfig) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, File: c.Log.File, Production: c.Log.Production}
}

// StorageClientConfig 将 storage 配置段映射为存储驱动配置
func (c *AppConfig) StorageClientConfig() (*storage.Config, error) {
	sc := new(storage.Config)
	if err := copier.Copy(sc, &c.Storage); err != nil {
		return nil, errors.Wrap(err, "copy storage config")
	}
	return sc, nil
}

// GetUploadConfig 获取上传配置
func (c *AppConfig) GetUploadConfig() (service.UploadConfig, error) {
	cfg := service.UploadConfig{KeyPrefix: c.Upload.KeyPrefix, Expires: service.DefaultLinkExpires}
	if c.Upload.Expires != "" {
		d, err := util.ParseDuration(c.Upload.Expires)
		if err != nil {
			return cfg, errors.Wrap(err, "upload.expires")
		}
		cfg.Expires = d
	}
	if c.Upload.RateLimit != "" {
		cfg.RateLimit = util.ParseSize(c.Upload.RateLimit, 0)
	}
	return cfg, nil
}

// GetBackupConfig 获取备份配置
func (c *AppConfig) GetBackupConfig() service.BackupConfig {
	return service.BackupConfig{
		Root:       c.Backup.Root,
		FolderName: c.Backup.FolderName,
		SweepCron:  c.Backup.SweepCron,
	}
}

// GetReconcilerConfig 获取编排器配置
func (c *AppConfig) GetReconcilerConfig() service.ReconcilerConfig {
	cfg := service.ReconcilerConfig{Debounce: service.DefaultRefreshDebounce}
	if d, err := util.ParseDuration(c.Backup.Debounce); err == nil && d > 0 {
		cfg.Debounce = d
	}
	return cfg
}

// GetLedgerConfig 获取上传记录数据库配置
func (c *AppConfig) GetLedgerConfig() dao.DatabaseConfig {
	return dao.DatabaseConfig{
		Path:        c.Ledger.Path,
		TablePrefix: c.Ledger.TablePrefix,
		AutoMigrate: c.Ledger.AutoMigrate,
		Debug:       c.Ledger.Debug,
	}
}

// GetWatchInterval 获取 vault 轮询间隔
func (c *AppConfig) GetWatchInterval() time.Duration {
	if d, err := util.ParseDuration(c.Vault.WatchInterval); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// GetMaxUploadSize 获取单次上传请求的最大字节数
func (c *AppConfig) GetMaxUploadSize() int64 {
	return util.ParseSize(c.Server.MaxUploadSize, 64<<20)
}

// GetContextTimeout 获取请求上下文超时时间
func (c *AppConfig) GetContextTimeout() time.Duration {
	if c.App.DefaultContextTimeout > 0 {
		return time.Duration(c.App.DefaultContextTimeout) * time.Second
	}
	return 120 * time.Second
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()
	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}
	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()
	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if c.App.WriteQueueIdleTime != "" {
		if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil {
			cfg.IdleTimeout = idleTime
		}
	}
	return cfg
}

// GetTokenExpiry 获取 Token 过期时间
func (c *AppConfig) GetTokenExpiry() time.Duration {
	if expiry, err := util.ParseDuration(c.Security.TokenExpiry); err == nil {
		return expiry
	}
	return 365 * 24 * time.Hour
}
