package domain

import "time"

// NoticeLevel 通知级别
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice 面向用户的提示消息
type Notice struct {
	Level    NoticeLevel `json:"level"`
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	NotePath string      `json:"notePath,omitempty"`
	File     string      `json:"file,omitempty"`
	Time     time.Time   `json:"time"`
}

// Notifier 用户可见通知的出口
type Notifier interface {
	Notify(n Notice)
}
