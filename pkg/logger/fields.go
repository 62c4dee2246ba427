package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldNote 笔记路径字段
	FieldNote = "note"

	// FieldPath 文件路径字段
	FieldPath = "path"

	// FieldVault 仓库根目录字段
	FieldVault = "vault"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldSize 文件大小字段
	FieldSize = "size"

	// FieldBucket 存储桶名称字段
	FieldBucket = "bucket"

	// FieldFileKey 对象存储 key 字段
	FieldFileKey = "fileKey"

	// FieldStrategy 路径解析策略字段
	FieldStrategy = "strategy"

	// FieldCount 数量字段
	FieldCount = "count"

	// FieldKind 错误类别字段
	FieldKind = "kind"
)
