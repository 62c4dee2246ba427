package service

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/internal/metrics"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"
	"github.com/haierkeys/fast-note-image-uploader/pkg/fileurl"
	"github.com/haierkeys/fast-note-image-uploader/pkg/logger"
	"github.com/haierkeys/fast-note-image-uploader/pkg/util"
	"github.com/juju/ratelimit"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultLinkExpires one year
const DefaultLinkExpires = 365 * 24 * time.Hour

const (
	contentDispositionParam = "response-content-disposition"
	octetStream             = "application/octet-stream"
)

// UploadConfig 上传配置
type UploadConfig struct {
	// KeyPrefix storage key prefix without leading or trailing slash
	// KeyPrefix 存储 key 前缀，不含首尾斜杠
	KeyPrefix string
	// Expires signed link lifetime
	// Expires 签名链接有效期
	Expires time.Duration
	// RateLimit upload bytes per second, 0 means unlimited
	// RateLimit 上传带宽（字节/秒），0 表示不限
	RateLimit int64
}

// StorageFactory builds the storage client, failing when settings are incomplete
// StorageFactory 构建存储客户端，配置不完整时返回错误
type StorageFactory func() (domain.StorageClient, error)

// Uploader uploads image bytes and mints a signed link; it never touches note text
// Uploader 上传图片并生成签名链接，不修改笔记内容
type Uploader struct {
	cfg     UploadConfig
	factory StorageFactory
	logger  *zap.Logger
	metrics metrics.Metrics
	bucket  *ratelimit.Bucket

	mu        sync.Mutex
	client    domain.StorageClient
	clientErr error
	built     bool

	lastMillis atomic.Int64
	now        func() time.Time
}

func NewUploader(cfg UploadConfig, factory StorageFactory, lg *zap.Logger, m metrics.Metrics) *Uploader {
	if lg == nil {
		lg = zap.NewNop()
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if cfg.Expires <= 0 {
		cfg.Expires = DefaultLinkExpires
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")

	u := &Uploader{cfg: cfg, factory: factory, logger: lg, metrics: m, now: time.Now}
	if cfg.RateLimit > 0 {
		u.bucket = ratelimit.NewBucketWithRate(float64(cfg.RateLimit), cfg.RateLimit)
	}
	return u
}

// Client returns the storage client, or a configuration error when settings are incomplete
// Client 返回存储客户端，配置不完整时返回配置错误
func (u *Uploader) Client() (domain.StorageClient, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.built {
		if u.factory == nil {
			u.clientErr = apperrors.Configuration("storage", errors.New("no storage configured"))
		} else if u.client, u.clientErr = u.factory(); u.clientErr != nil {
			u.clientErr = apperrors.Configuration("storage", u.clientErr)
		}
		u.built = true
	}
	return u.client, u.clientErr
}

// CheckConfig 检查存储配置，不发起 I/O
func (u *Uploader) CheckConfig() error {
	_, err := u.Client()
	return err
}

// nextMillis returns the current unix milliseconds, strictly increasing within this process
// nextMillis 返回当前毫秒时间戳，进程内严格递增
func (u *Uploader) nextMillis() int64 {
	for {
		last := u.lastMillis.Load()
		now := u.now().UnixMilli()
		if now <= last {
			now = last + 1
		}
		if u.lastMillis.CompareAndSwap(last, now) {
			return now
		}
	}
}

// ObjectName "{unixMillis}-{name with whitespace runs as '-'}{.ext}"
func ObjectName(millis int64, originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	stem := strings.TrimSpace(strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = "image"
	}
	return strconv.FormatInt(millis, 10) + "-" + fileurl.SanitizeName(stem) + ext
}

// StorageKey 拼接前缀与对象名
func (u *Uploader) StorageKey(name string) string {
	if u.cfg.KeyPrefix == "" {
		return name
	}
	return u.cfg.KeyPrefix + "/" + name
}

// Upload stores data under a fresh key and returns the signed link
// Upload 以新生成的 key 上传数据并返回签名链接
func (u *Uploader) Upload(ctx context.Context, data []byte, originalName string) (*domain.UploadResult, error) {
	client, err := u.Client()
	if err != nil {
		return nil, err
	}

	start := u.now()
	name := ObjectName(u.nextMillis(), originalName)
	key := u.StorageKey(name)

	contentType := util.ImageContentType(originalName)
	if contentType == octetStream {
		contentType = mimetype.Detect(data).String()
	}

	var body io.Reader = bytes.NewReader(data)
	if u.bucket != nil {
		body = ratelimit.Reader(body, u.bucket)
	}

	if err := client.PutObject(ctx, key, body, contentType); err != nil {
		u.metrics.IncUpload("error")
		return nil, apperrors.Upload("putObject", originalName, err)
	}

	signed, err := client.SignedURL(ctx, key, u.cfg.Expires)
	if err != nil {
		u.metrics.IncUpload("error")
		return nil, apperrors.Upload("signedURL", originalName, err)
	}
	signed = withInlineDisposition(signed)

	u.metrics.IncUpload("ok")
	u.metrics.ObserveUploadDuration(time.Since(start).Seconds())
	u.logger.Info("image uploaded",
		zap.String(logger.FieldFileKey, key),
		zap.Int(logger.FieldSize, len(data)),
		zap.Duration(logger.FieldDuration, time.Since(start)))

	return &domain.UploadResult{
		StorageKey:         key,
		SignedURL:          signed,
		UploadedAtFileName: name,
	}, nil
}

// withInlineDisposition appends the inline hint unless the link already carries one
// withInlineDisposition 链接未包含 content-disposition 参数时追加 inline
func withInlineDisposition(link string) string {
	if strings.Contains(strings.ToLower(link), contentDispositionParam) {
		return link
	}
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + contentDispositionParam + "=" + url.QueryEscape("inline")
}
