package dao

import (
	"context"
	"errors"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// uploadRecordRepository 实现 domain.UploadRecordRepository 接口
type uploadRecordRepository struct {
	dao *Dao
}

// NewUploadRecordRepository 创建 UploadRecordRepository 实例
func NewUploadRecordRepository(dao *Dao) domain.UploadRecordRepository {
	return &uploadRecordRepository{dao: dao}
}

func (r *uploadRecordRepository) toDomain(m *model.UploadRecord) *domain.UploadRecord {
	if m == nil {
		return nil
	}
	return &domain.UploadRecord{
		ID:           m.ID,
		StorageKey:   m.StorageKey,
		BaseURL:      m.BaseURL,
		NotePath:     m.NotePath,
		OriginalName: m.OriginalName,
		BackupName:   m.BackupName,
		Size:         m.Size,
		CreatedAt:    m.CreatedAt,
	}
}

// Save 保存上传记录，相同 storage key 覆盖旧记录
func (r *uploadRecordRepository) Save(ctx context.Context, rec *domain.UploadRecord) error {
	m := &model.UploadRecord{
		StorageKey:   rec.StorageKey,
		BaseURL:      rec.BaseURL,
		NotePath:     rec.NotePath,
		OriginalName: rec.OriginalName,
		BackupName:   rec.BackupName,
		Size:         rec.Size,
	}
	err := r.dao.Db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_url", "note_path", "original_name", "backup_name", "size"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	rec.ID = m.ID
	rec.CreatedAt = m.CreatedAt
	return nil
}

// GetByBaseURL 根据去掉查询参数的 URL 获取最新记录，不存在时返回 nil, nil
func (r *uploadRecordRepository) GetByBaseURL(ctx context.Context, baseURL string) (*domain.UploadRecord, error) {
	var m model.UploadRecord
	err := r.dao.Db.WithContext(ctx).
		Where("base_url = ?", baseURL).
		Order("id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// ListByNote 列出某笔记的上传记录，按上传顺序
func (r *uploadRecordRepository) ListByNote(ctx context.Context, notePath string) ([]*domain.UploadRecord, error) {
	var ms []*model.UploadRecord
	err := r.dao.Db.WithContext(ctx).
		Where("note_path = ?", notePath).
		Order("id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.UploadRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.toDomain(m))
	}
	return out, nil
}
