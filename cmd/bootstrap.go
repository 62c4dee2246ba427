package cmd

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bootstrapLogger 读取配置文件之前使用的控制台日志器
// 配置查找、默认配置写出与配置文件监听都通过它输出
var bootstrapLogger = newBootstrapLogger(zapcore.Lock(os.Stderr), os.Getenv("DEBUG") != "")

// newBootstrapLogger 彩色控制台输出，debug 为 true 时输出 Debug 级别
func newBootstrapLogger(w zapcore.WriteSyncer, debug bool) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, level), zap.AddCaller()).
		Named("bootstrap")
}
