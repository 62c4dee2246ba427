// Package minio MinIO configuration on top of the S3 driver
// Package minio 基于 S3 驱动的 MinIO 配置
package minio

import (
	"github.com/haierkeys/fast-note-image-uploader/pkg/storage/aws_s3"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint        string
	Region          string
	BucketName      string
	AccessKeyID     string
	AccessKeySecret string
}

// NewClient 创建 MinIO 存储实例，使用 path-style 寻址
func NewClient(conf *Config, logger *zap.Logger) (*aws_s3.S3, error) {
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	return aws_s3.NewClient(&aws_s3.Config{
		Endpoint:        conf.Endpoint,
		Region:          region,
		BucketName:      conf.BucketName,
		AccessKeyID:     conf.AccessKeyID,
		AccessKeySecret: conf.AccessKeySecret,
		UsePathStyle:    true,
	}, aws_s3.WithLogger(logger))
}
