// Package storage builds the object storage client selected by configuration
// Package storage 根据配置构建对象存储客户端
package storage

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/aliyun_oss"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/aws_s3"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/cloudflare_r2"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/local_fs"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/minio"
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/webdav"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Type = string

const OSS Type = "oss"
const R2 Type = "r2"
const S3 Type = "s3"
const LOCAL Type = "localfs"
const MinIO Type = "minio"
const WebDAV Type = "webdav"

var StorageTypeMap = map[Type]bool{
	OSS:    true,
	R2:     true,
	S3:     true,
	LOCAL:  true,
	MinIO:  true,
	WebDAV: true,
}

// Config Unified storage configuration
// Config 统一存储配置
type Config struct {
	Type Type

	// Cloud Storage (OSS/S3/MinIO/R2)
	Endpoint        string
	Region          string
	BucketName      string
	AccessKeyID     string
	AccessKeySecret string
	AccountID       string

	// WebDAV
	User     string
	Password string
	Path     string

	// Local FS
	SavePath string

	// PublicBaseURL link base for webdav and localfs
	// PublicBaseURL webdav 与 localfs 生成链接使用的地址
	PublicBaseURL string
}

// credentials fields every cloud driver needs before the first request
// credentials 云存储驱动发起请求前必须具备的字段
type credentials struct {
	AccessKeyID     string `validate:"required"`
	AccessKeySecret string `validate:"required"`
	BucketName      string `validate:"required"`
	Region          string `validate:"required"`
}

type webdavRequired struct {
	Endpoint string `validate:"required,url"`
}

type localRequired struct {
	SavePath      string `validate:"required"`
	PublicBaseURL string `validate:"required,url"`
}

var validate = validator.New()

// Validate reports the missing settings of the selected driver without any I/O
// Validate 检查所选驱动缺少的配置项，不发起任何 I/O
func (c *Config) Validate() error {
	if c == nil || !StorageTypeMap[c.Type] {
		return code.ErrorInvalidStorageType
	}

	var target any
	switch c.Type {
	case OSS, S3, MinIO:
		cred := &credentials{}
		if err := copier.Copy(cred, c); err != nil {
			return err
		}
		if c.Type == MinIO && cred.Region == "" {
			cred.Region = "us-east-1"
		}
		target = cred
	case R2:
		cred := &credentials{}
		if err := copier.Copy(cred, c); err != nil {
			return err
		}
		// R2 以 account id 代替 region
		cred.Region = c.AccountID
		target = cred
	case WebDAV:
		target = &webdavRequired{Endpoint: c.Endpoint}
	case LOCAL:
		target = &localRequired{SavePath: c.SavePath, PublicBaseURL: c.PublicBaseURL}
	}

	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return errors.Errorf("storage %s: invalid or missing %s", c.Type, strings.Join(missing, ", "))
		}
		return err
	}
	return nil
}

// NewClient 创建存储客户端
func NewClient(cfg *Config, logger *zap.Logger) (domain.StorageClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case LOCAL:
		c := &local_fs.Config{}
		if err := copier.Copy(c, cfg); err != nil {
			return nil, err
		}
		return local_fs.NewClient(c)
	case OSS:
		c := &aliyun_oss.Config{}
		if err := copier.Copy(c, cfg); err != nil {
			return nil, err
		}
		return aliyun_oss.NewClient(c, aliyun_oss.WithLogger(logger))
	case R2:
		c := &cloudflare_r2.Config{}
		if err := copier.Copy(c, cfg); err != nil {
			return nil, err
		}
		return cloudflare_r2.NewClient(c, logger)
	case S3:
		c := &aws_s3.Config{}
		if err := copier.Copy(c, cfg); err != nil {
			return nil, err
		}
		return aws_s3.NewClient(c, aws_s3.WithLogger(logger))
	case MinIO:
		c := &minio.Config{}
		if err := copier.Copy(c, cfg); err != nil {
			return nil, err
		}
		return minio.NewClient(c, logger)
	case WebDAV:
		c := &webdav.Config{}
		if err := copier.Copy(c, cfg); err != nil {
			return nil, err
		}
		return webdav.NewClient(c)
	}
	return nil, code.ErrorInvalidStorageType
}
