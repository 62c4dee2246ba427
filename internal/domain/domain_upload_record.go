package domain

import (
	"context"
	"time"
)

// UploadRecord 上传记录，关联存储 key、笔记与备份文件
type UploadRecord struct {
	ID           int64
	StorageKey   string
	BaseURL      string // 去掉查询参数的 URL
	NotePath     string
	OriginalName string
	BackupName   string
	Size         int64
	CreatedAt    time.Time
}

// UploadRecordRepository 上传记录仓储接口
type UploadRecordRepository interface {
	// Save 保存上传记录
	Save(ctx context.Context, r *UploadRecord) error

	// GetByBaseURL 根据去掉查询参数的 URL 获取记录
	GetByBaseURL(ctx context.Context, baseURL string) (*UploadRecord, error)

	// ListByNote 列出某笔记的上传记录
	ListByNote(ctx context.Context, notePath string) ([]*UploadRecord, error)
}
