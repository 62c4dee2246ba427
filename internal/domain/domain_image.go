package domain

// LinkSyntax 图片引用的语法类型
type LinkSyntax int

const (
	// SyntaxEmbedBracket ![[name]] / ![[name|hint]]
	SyntaxEmbedBracket LinkSyntax = iota + 1
	// SyntaxInlineLink ![alt](target)
	SyntaxInlineLink
)

func (s LinkSyntax) String() string {
	switch s {
	case SyntaxEmbedBracket:
		return "embed"
	case SyntaxInlineLink:
		return "inline"
	}
	return "unknown"
}

// ImageReference 笔记文本中的一个图片引用
// Produced per scan, never persisted.
type ImageReference struct {
	RawMatch  string     // 原始匹配文本
	PathOrURL string     // 路径或 URL
	Syntax    LinkSyntax // 语法类型
	IsRemote  bool       // 是否为 http(s) 远程链接
	Offset    int        // RawMatch 在文本中的字节偏移
}

// ResolvedImage 已解析到 vault 文件的图片引用
type ResolvedImage struct {
	Reference ImageReference
	File      File
	FileName  string
}

// UploadResult 上传结果
type UploadResult struct {
	StorageKey         string
	SignedURL          string
	UploadedAtFileName string
}

// UploadedImage pairs a freshly uploaded URL with the backup copy made for it.
// UploadedImage 刚上传的图片 URL 与其备份文件名
type UploadedImage struct {
	URL        string
	StorageKey string
	BackupName string
}
