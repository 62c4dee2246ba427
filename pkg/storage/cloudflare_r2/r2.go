// Package cloudflare_r2 Cloudflare R2 configuration on top of the S3 driver
// Package cloudflare_r2 基于 S3 驱动的 Cloudflare R2 配置
package cloudflare_r2

import (
	"fmt"

	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/aws_s3"
	"go.uber.org/zap"
)

type Config struct {
	AccountID       string
	BucketName      string
	AccessKeyID     string
	AccessKeySecret string
}

// Endpoint R2 S3 API endpoint for the account
// Endpoint 账户对应的 R2 S3 API 地址
func (c *Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// NewClient 创建 R2 存储实例
func NewClient(conf *Config, logger *zap.Logger) (*aws_s3.S3, error) {
	return aws_s3.NewClient(&aws_s3.Config{
		Endpoint:        conf.Endpoint(),
		Region:          "auto",
		BucketName:      conf.BucketName,
		AccessKeyID:     conf.AccessKeyID,
		AccessKeySecret: conf.AccessKeySecret,
	}, aws_s3.WithLogger(logger))
}
