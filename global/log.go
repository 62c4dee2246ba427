// Package global 进程级共享对象
package global

import (
	"go.uber.org/zap"
)

// Logger 服务启动后设置的进程日志器
var Logger *zap.Logger

// Log 返回进程日志器，未初始化时返回 nop 日志器
func Log() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}
