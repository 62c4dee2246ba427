// Package fileurl holds file name and path helpers shared by upload and backup
// Package fileurl 上传与备份共用的文件名、路径工具
package fileurl

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// pastedDefaultNames names that clipboard sources give every image
// pastedDefaultNames 剪贴板来源给所有图片的默认名称
var pastedDefaultNames = map[string]bool{
	"":          true,
	"image.png": true,
	"blob":      true,
}

var timestampPrefix = regexp.MustCompile(`^\d{10,}-`)

// GetFileExt gets file extension, including the dot
// GetFileExt 获取文件后缀（含点）
func GetFileExt(name string) string {
	return path.Ext(name)
}

// GetFileNameOrRandom gives clipboard images a unique name
// GetFileNameOrRandom 剪贴板图片使用随机名称
func GetFileNameOrRandom(fileName, ext string) string {
	if pastedDefaultNames[fileName] {
		if ext == "" {
			ext = ".png"
		}
		return "Pasted-image-" + uuid.New().String() + ext
	}
	return fileName
}

// SanitizeName replaces every whitespace run with a single '-'
// SanitizeName 将连续空白替换为单个 '-'
func SanitizeName(name string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName NFC form used for every name comparison
// NormalizeName 名称比较统一使用 NFC 形式
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// SameName compares two names after sanitizing and NFC normalization
// SameName 经过空白替换与 NFC 规范化后比较两个名称
func SameName(a, b string) bool {
	return NormalizeName(SanitizeName(a)) == NormalizeName(SanitizeName(b))
}

// DedupName returns "name(n).ext" for n > 0
// DedupName 生成去重文件名 "name(n).ext"
func DedupName(name string, n int) string {
	if n <= 0 {
		return name
	}
	ext := GetFileExt(name)
	return fmt.Sprintf("%s(%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

// StripTimestampPrefix removes the "{ms}-" prefix added at upload time
// StripTimestampPrefix 去掉上传时添加的毫秒时间戳前缀
func StripTimestampPrefix(name string) string {
	return timestampPrefix.ReplaceAllString(name, "")
}

// NameFromURL last path segment of u with escapes decoded
// NameFromURL 取 URL 路径的最后一段并解码
func NameFromURL(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	seg := path.Base(p)
	if seg == "." || seg == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return seg
}

// StripQuery URL without query string or fragment
// StripQuery 去掉 URL 的查询串与片段
func StripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// EscapeSpaces encodes spaces as %20 so a relative link stays one token
// EscapeSpaces 将空格编码为 %20
func EscapeSpaces(p string) string {
	return strings.ReplaceAll(p, " ", "%20")
}

// IsAbsPath determines if it is an absolute path
// IsAbsPath 判断是否为绝对路径
func IsAbsPath(p string) bool {
	return filepath.IsAbs(p) || filepath.VolumeName(p) != ""
}

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	return err == nil || os.IsExist(err)
}

// GetExePath directory of the running executable
// GetExePath 获取当前执行文件所在目录
func GetExePath() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
