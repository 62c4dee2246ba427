package domain

import (
	"context"
	"io"
	"time"
)

// ObjectItem 对象存储中的一个对象
type ObjectItem struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag,omitempty"`
}

// ListResult 分页列举结果
type ListResult struct {
	Items       []ObjectItem `json:"items"`
	IsTruncated bool         `json:"isTruncated"`
	NextMarker  string       `json:"nextMarker,omitempty"`
}

// DeleteError 批量删除中单个 key 的失败原因
type DeleteError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// DeleteResult 批量删除结果
type DeleteResult struct {
	Deleted []string      `json:"deleted"`
	Errors  []DeleteError `json:"errors,omitempty"`
}

// StorageClient 对象存储客户端
// Bucket and region are bound at construction time.
type StorageClient interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
	ListObjects(ctx context.Context, prefix, marker string, maxKeys int) (*ListResult, error)
	DeleteObject(ctx context.Context, key string) error
	DeleteObjects(ctx context.Context, keys []string) (*DeleteResult, error)
}
