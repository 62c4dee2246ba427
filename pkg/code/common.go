package code

var (
	Success          = NewSuss(1, lang{en: "Success", zh_cn: "成功"})
	SuccessUpload    = NewSuss(2, lang{en: "Image uploaded", zh_cn: "图片上传成功"})
	SuccessLinks     = NewSuss(3, lang{en: "All links updated", zh_cn: "所有链接已更新"})
	SuccessBackup    = NewSuss(4, lang{en: "Backup updated", zh_cn: "备份已更新"})
	SuccessNoLocal   = NewSuss(5, lang{en: "No local images found", zh_cn: "未找到本地图片"})
	SuccessDeleted   = NewSuss(6, lang{en: "Objects deleted", zh_cn: "对象已删除"})
	SuccessListed    = NewSuss(7, lang{en: "Objects listed", zh_cn: "对象列表"})
	SuccessScanDone  = NewSuss(8, lang{en: "Upload finished", zh_cn: "上传完成"})
	SuccessTrashed   = NewSuss(9, lang{en: "Local image moved to trash", zh_cn: "本地图片已移入回收站"})
	SuccessPing      = NewSuss(10, lang{en: "pong", zh_cn: "pong"})
	SuccessNothingUp = NewSuss(11, lang{en: "No image in selection", zh_cn: "所选内容中没有图片"})

	ErrorServerInternal     = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorNotFound           = NewError(404, lang{en: "Resource not found", zh_cn: "资源不存在"})
	ErrorInvalidParams      = NewError(400, lang{en: "Invalid params", zh_cn: "入参错误"})
	ErrorUnauthorized       = NewError(401, lang{en: "Unauthorized, token missing or invalid", zh_cn: "未授权，缺少令牌或令牌无效"})
	ErrorConfiguration      = NewError(1001, lang{en: "Storage is not configured (credentials, bucket or region missing)", zh_cn: "存储未配置（缺少凭据、bucket 或 region）"})
	ErrorResolution         = NewError(1002, lang{en: "Image file not found in vault", zh_cn: "vault 中未找到图片文件"})
	ErrorUpload             = NewError(1003, lang{en: "Image upload failed", zh_cn: "图片上传失败"})
	ErrorBackup             = NewError(1004, lang{en: "Backup failed", zh_cn: "备份失败"})
	ErrorWriteConflict      = NewError(1005, lang{en: "Note changed while uploading, links not updated", zh_cn: "上传期间笔记已被修改，链接未更新"})
	ErrorNoteNotFound       = NewError(1006, lang{en: "Note not found", zh_cn: "笔记不存在"})
	ErrorInvalidStorageType = NewError(1007, lang{en: "Invalid storage type", zh_cn: "无效的存储类型"})
	ErrorStorageList        = NewError(1008, lang{en: "Failed to list objects", zh_cn: "列举对象失败"})
	ErrorStorageDelete      = NewError(1009, lang{en: "Failed to delete objects", zh_cn: "删除对象失败"})
	ErrorNoteWrite          = NewError(1010, lang{en: "Failed to update note", zh_cn: "更新笔记失败"})
	ErrorFileRead           = NewError(1011, lang{en: "Failed to read image file", zh_cn: "读取图片文件失败"})
	ErrorTokenGenerate      = NewError(1012, lang{en: "Failed to generate token", zh_cn: "生成令牌失败"})
	ErrorTooManyRequests    = NewError(1013, lang{en: "Too many requests", zh_cn: "请求过于频繁"})
	ErrorRequestTimeout     = NewError(1014, lang{en: "Request timed out", zh_cn: "请求超时"})
)
