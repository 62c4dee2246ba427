package model

import "time"

const TableNameUploadRecord = "upload_record"

// UploadRecord mapped from table <upload_record>
type UploadRecord struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id" form:"id"`
	StorageKey   string    `gorm:"column:storage_key;not null;uniqueIndex:idx_storage_key" json:"storageKey" form:"storageKey"`
	BaseURL      string    `gorm:"column:base_url;not null;index:idx_base_url" json:"baseUrl" form:"baseUrl"`
	NotePath     string    `gorm:"column:note_path;not null;index:idx_note_path" json:"notePath" form:"notePath"`
	OriginalName string    `gorm:"column:original_name" json:"originalName" form:"originalName"`
	BackupName   string    `gorm:"column:backup_name" json:"backupName" form:"backupName"`
	Size         int64     `gorm:"column:size;default:0" json:"size" form:"size"`
	CreatedAt    time.Time `gorm:"column:created_at;type:datetime;autoCreateTime" json:"createdAt" form:"createdAt"`
}

// TableName UploadRecord's table name
func (*UploadRecord) TableName() string {
	return TableNameUploadRecord
}
