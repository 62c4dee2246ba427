package code

import (
	"errors"
)

// lang stores English and Chinese text
// lang 存储中英文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

const (
	LangEN = "en"
	LangZH = "zh_cn"
)

// FALLBACK_LNG fallback language // 回退语言
const FALLBACK_LNG = LangEN

// Default language is English // 默认语言为英文
var lng = FALLBACK_LNG

// GetMessage returns the message of the current global language, falling back to English
// GetMessage 返回当前全局语言的消息，缺失时回退到英文
func (l lang) GetMessage() string {
	if lng == LangZH && l.zh_cn != "" {
		return l.zh_cn
	}
	return l.en
}

// GetSupportedLanguages returns all supported languages
// GetSupportedLanguages 返回支持的语言
func GetSupportedLanguages() []string {
	return []string{LangEN, LangZH}
}

// SetGlobalDefaultLang sets the global default language
// SetGlobalDefaultLang 设置全局默认语言
func SetGlobalDefaultLang(language string) error {
	switch language {
	case LangEN, LangZH:
		lng = language
		return nil
	case "zh", "zh-CN", "zh_CN":
		lng = LangZH
		return nil
	}
	lng = FALLBACK_LNG
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the global default language
// GetGlobalDefaultLang 获取全局默认语言
func GetGlobalDefaultLang() string {
	return lng
}
