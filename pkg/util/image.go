package util

import (
	"path"
	"strings"
)

// imageExts known image extensions, lower case
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
}

// IsImageFile reports whether the name carries a known image extension (case-insensitive)
// IsImageFile 判断文件名是否为已知图片扩展名（不区分大小写）
func IsImageFile(name string) bool {
	return imageExts[strings.ToLower(path.Ext(name))]
}

// ImageContentType maps an image extension to its MIME type
// ImageContentType 根据扩展名返回图片 MIME 类型
func ImageContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

// ImageExtByContentType maps an image MIME type to an extension
// ImageExtByContentType 根据图片 MIME 类型返回扩展名
func ImageExtByContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	case "image/webp":
		return ".webp"
	}
	return ""
}
