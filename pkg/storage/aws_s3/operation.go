package aws_s3

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PutObject 上传对象
func (p *S3) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &transfermanager.UploadObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := p.TransferManager.UploadObject(ctx, input); err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			p.logger.Error("bucket does not exist", zap.String("bucket", p.Config.BucketName))
		}
		return errors.Wrap(err, "aws_s3")
	}
	return nil
}

// SignedURL 生成预签名 GET 链接，响应头 content-disposition 为 inline
func (p *S3) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := p.PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(p.Config.BucketName),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("inline"),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", errors.Wrap(err, "aws_s3")
	}
	return req.URL, nil
}

// ListObjects 列出对象，marker 对应 continuation token
func (p *S3) ListObjects(ctx context.Context, prefix, marker string, maxKeys int) (*domain.ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(p.Config.BucketName),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if marker != "" {
		input.ContinuationToken = aws.String(marker)
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(maxKeys))
	}

	out, err := p.S3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	res := &domain.ListResult{
		IsTruncated: aws.ToBool(out.IsTruncated),
		NextMarker:  aws.ToString(out.NextContinuationToken),
	}
	for _, obj := range out.Contents {
		res.Items = append(res.Items, domain.ObjectItem{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
		})
	}
	return res, nil
}

// DeleteObject 删除对象
func (p *S3) DeleteObject(ctx context.Context, key string) error {
	_, err := p.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(key),
	})
	return errors.Wrap(err, "aws_s3")
}

// DeleteObjects 批量删除对象
func (p *S3) DeleteObjects(ctx context.Context, keys []string) (*domain.DeleteResult, error) {
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := p.S3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(p.Config.BucketName),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(false)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	res := &domain.DeleteResult{}
	for _, d := range out.Deleted {
		res.Deleted = append(res.Deleted, aws.ToString(d.Key))
	}
	for _, e := range out.Errors {
		res.Errors = append(res.Errors, domain.DeleteError{Key: aws.ToString(e.Key), Message: aws.ToString(e.Message)})
	}
	return res, nil
}
