// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

// NoteScanRequest 扫描笔记中的本地图片并上传
type NoteScanRequest struct {
	Note       string `json:"note" form:"note" binding:"required"`
	TrashLocal bool   `json:"trashLocal" form:"trashLocal"`
}

// NoteBackupRequest 立即刷新笔记的影子副本
type NoteBackupRequest struct {
	Note string `json:"note" form:"note" binding:"required"`
}

// ImageInsertRequest 拖放或粘贴的公共表单字段
// Cursor 为插入位置的字节偏移，-1 表示追加到末尾
type ImageInsertRequest struct {
	Note   string `form:"note" binding:"required"`
	Cursor int    `form:"cursor,default=-1"`
	// LocalPath 编辑器已在 vault 中创建的图片路径，仅粘贴时使用
	LocalPath string `form:"localPath"`
}

// ObjectListRequest 列举存储对象
type ObjectListRequest struct {
	Prefix  string `json:"prefix" form:"prefix"`
	Marker  string `json:"marker" form:"marker"`
	MaxKeys int    `json:"maxKeys" form:"maxKeys,default=100" binding:"omitempty,min=1,max=1000"`
}

// ObjectDeleteRequest 批量删除存储对象
type ObjectDeleteRequest struct {
	Keys []string `json:"keys" form:"keys" binding:"required,min=1,max=1000,dive,required"`
}

// UploadRecordRequest 查询笔记的上传记录
type UploadRecordRequest struct {
	Note string `json:"note" form:"note" binding:"required"`
}

// UploadRecordDTO 一条上传记录
type UploadRecordDTO struct {
	StorageKey   string `json:"storageKey"`
	URL          string `json:"url"`
	NotePath     string `json:"notePath"`
	OriginalName string `json:"originalName"`
	BackupName   string `json:"backupName"`
	Size         int64  `json:"size"`
	CreatedAt    string `json:"createdAt"`
}
