// Package util provides common utility functions
// Package util 提供通用工具函数
package util

import (
	"regexp"
	"strings"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
)

// imageLinkRegex matches both image syntaxes in one left-to-right pass
// Group 1: embed path // 嵌入路径
// Group 2: optional embed display hint // 可选显示提示
// Group 3: inline alt text // 行内 alt 文本
// Group 4: inline target, optionally wrapped in <> // 行内目标，可被 <> 包裹
// imageLinkRegex 在一次扫描中按从左到右顺序匹配两种图片语法
var imageLinkRegex = regexp.MustCompile(
	`!\[\[([^\]|\n]+)(?:\|([^\]\n]*))?\]\]` +
		`|!\[([^\]\n]*)\]\((<[^>\n]+>|[^)\s]+)(?:\s+"[^"\n]*")?\)`)

// remoteInlineRegex matches inline images whose target is an http(s) URL
// remoteInlineRegex 匹配目标为 http(s) URL 的行内图片
var remoteInlineRegex = regexp.MustCompile(`!\[([^\]\n]*)\]\((https?://[^)\s]+)\)`)

// ParseImageLinks extracts ![[embed]], ![[embed|hint]] and ![alt](target) references
// Every occurrence is returned in order of appearance; malformed syntax produces no entry
// ParseImageLinks 提取 ![[embed]]、![[embed|hint]] 与 ![alt](target) 引用
// 按出现顺序返回所有匹配，格式错误的语法不会产生结果
func ParseImageLinks(content string) []domain.ImageReference {
	if content == "" {
		return nil
	}

	matches := imageLinkRegex.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]domain.ImageReference, 0, len(matches))
	for _, m := range matches {
		ref := domain.ImageReference{
			RawMatch: content[m[0]:m[1]],
			Offset:   m[0],
		}
		if m[2] >= 0 {
			ref.Syntax = domain.SyntaxEmbedBracket
			ref.PathOrURL = strings.TrimSpace(content[m[2]:m[3]])
		} else {
			ref.Syntax = domain.SyntaxInlineLink
			target := content[m[8]:m[9]]
			if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
				target = target[1 : len(target)-1]
			}
			ref.PathOrURL = target
		}
		if ref.PathOrURL == "" {
			continue
		}
		ref.IsRemote = IsRemoteURL(ref.PathOrURL)
		refs = append(refs, ref)
	}

	return refs
}

// LocalImageLinks returns only the references that point at local files
// LocalImageLinks 只返回指向本地文件的引用
func LocalImageLinks(content string) []domain.ImageReference {
	var local []domain.ImageReference
	for _, ref := range ParseImageLinks(content) {
		if !ref.IsRemote {
			local = append(local, ref)
		}
	}
	return local
}

// RemoteInlineImage is a ![alt](https://...) occurrence
// RemoteInlineImage 表示一个 ![alt](https://...) 片段
type RemoteInlineImage struct {
	RawMatch string
	Alt      string
	URL      string
}

// ParseRemoteInlineImages extracts inline images with http(s) targets
// ParseRemoteInlineImages 提取目标为 http(s) 的行内图片
func ParseRemoteInlineImages(content string) []RemoteInlineImage {
	var out []RemoteInlineImage
	for _, m := range remoteInlineRegex.FindAllStringSubmatch(content, -1) {
		out = append(out, RemoteInlineImage{RawMatch: m[0], Alt: m[1], URL: m[2]})
	}
	return out
}

// IsRemoteURL reports whether the target uses the http or https scheme
// IsRemoteURL 判断目标是否为 http/https 链接
func IsRemoteURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// FormatInlineImage renders ![alt](target)
// FormatInlineImage 生成 ![alt](target)
func FormatInlineImage(alt, target string) string {
	alt = strings.NewReplacer("[", "", "]", "").Replace(alt)
	return "![" + alt + "](" + target + ")"
}
