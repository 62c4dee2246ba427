// Package aliyun_oss Aliyun OSS storage driver
// Package aliyun_oss 阿里云 OSS 存储驱动
package aliyun_oss

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint        string
	Region          string
	BucketName      string
	AccessKeyID     string
	AccessKeySecret string
}

type OSS struct {
	Client *oss.Client
	Bucket *oss.Bucket
	Config *Config
	logger *zap.Logger
}

// Option 配置选项函数类型
type Option func(*OSS)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(o *OSS) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// endpoint derives the public endpoint from an "oss-" region when none is configured
// endpoint 未配置 endpoint 时由 region 推导
func (c *Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	region := c.Region
	if !strings.HasPrefix(region, "oss-") {
		region = "oss-" + region
	}
	return "https://" + region + ".aliyuncs.com"
}

// NewClient 创建 OSS 存储实例，不发起网络请求
func NewClient(conf *Config, opts ...Option) (*OSS, error) {
	client, err := oss.New(conf.endpoint(), conf.AccessKeyID, conf.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}
	bucket, err := client.Bucket(conf.BucketName)
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}

	o := &OSS{
		Client: client,
		Bucket: bucket,
		Config: conf,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// PutObject 上传对象
func (p *OSS) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	options := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if err := p.Bucket.PutObject(key, body, options...); err != nil {
		return errors.Wrap(err, "aliyun_oss")
	}
	return nil
}

// SignedURL 生成带 inline content-disposition 的签名 GET 链接
func (p *OSS) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	signed, err := p.Bucket.SignURL(key, oss.HTTPGet, int64(expires.Seconds()),
		oss.ResponseContentDisposition("inline"))
	if err != nil {
		return "", errors.Wrap(err, "aliyun_oss")
	}
	return signed, nil
}

// ListObjects 列出对象
func (p *OSS) ListObjects(ctx context.Context, prefix, marker string, maxKeys int) (*domain.ListResult, error) {
	options := []oss.Option{oss.WithContext(ctx), oss.Prefix(prefix), oss.Marker(marker)}
	if maxKeys > 0 {
		options = append(options, oss.MaxKeys(maxKeys))
	}
	res, err := p.Bucket.ListObjects(options...)
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}

	out := &domain.ListResult{
		IsTruncated: res.IsTruncated,
		NextMarker:  res.NextMarker,
	}
	for _, obj := range res.Objects {
		out.Items = append(out.Items, domain.ObjectItem{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         strings.Trim(obj.ETag, `"`),
		})
	}
	return out, nil
}

// DeleteObject 删除对象
func (p *OSS) DeleteObject(ctx context.Context, key string) error {
	if err := p.Bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return errors.Wrap(err, "aliyun_oss")
	}
	return nil
}

// DeleteObjects 批量删除对象
func (p *OSS) DeleteObjects(ctx context.Context, keys []string) (*domain.DeleteResult, error) {
	res, err := p.Bucket.DeleteObjects(keys, oss.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "aliyun_oss")
	}

	out := &domain.DeleteResult{Deleted: res.DeletedObjects}
	deleted := make(map[string]bool, len(res.DeletedObjects))
	for _, k := range res.DeletedObjects {
		deleted[k] = true
	}
	for _, k := range keys {
		if !deleted[k] {
			out.Errors = append(out.Errors, domain.DeleteError{Key: k, Message: "not deleted"})
		}
	}
	return out, nil
}
