package domain

import (
	"context"
	"errors"
	"time"
)

// ErrFileNotFound vault 中不存在该文件
var ErrFileNotFound = errors.New("file not found")

// ErrAlreadyExists 创建文件或目录时目标已存在
var ErrAlreadyExists = errors.New("already exists")

// File vault 中文件的只读描述
// The vault owns the file; holders keep only the path.
type File struct {
	Path    string // vault 相对路径，使用 "/" 分隔
	Name    string // 文件名（含扩展名）
	Ext     string // 扩展名（含 "."）
	Size    int64
	ModTime time.Time
}

// Vault 宿主 vault 的文件操作接口
type Vault interface {
	// Root 返回 vault 根目录
	Root() string

	// Stat 根据路径获取文件，不存在时返回 ErrFileNotFound
	Stat(ctx context.Context, path string) (File, error)

	// ReadText 读取笔记文本
	ReadText(ctx context.Context, path string) (string, error)

	// ReadBinary 读取二进制文件
	ReadBinary(ctx context.Context, path string) ([]byte, error)

	// WriteText 写入或替换笔记文本
	WriteText(ctx context.Context, path string, text string) error

	// CreateBinary 创建二进制文件，目标已存在时返回 ErrAlreadyExists
	CreateBinary(ctx context.Context, path string, data []byte) error

	// CreateFolder 创建目录，目标已存在时返回 ErrAlreadyExists
	CreateFolder(ctx context.Context, path string) error

	// ListFiles 列出 vault 中所有文件，按路径排序
	ListFiles(ctx context.Context) ([]File, error)

	// ListFolder 列出目录下的直接子文件
	ListFolder(ctx context.Context, path string) ([]File, error)

	// Trash 将文件移入回收站
	Trash(ctx context.Context, path string) error
}
