package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/haierkeys/fast-note-image-uploader/global"
	"github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger 捕获 handler 中的 panic，记录日志并返回统一错误响应
func RecoveryWithLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = global.Log()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		defer func() {
			if err := recover(); err != nil {
				var errorMsg string
				fields := []zap.Field{
					zap.Int("status", c.Writer.Status()),
					zap.String("router", path),
					zap.String("method", c.Request.Method),
					zap.String("query", query),
					zap.String("ip", c.ClientIP()),
					zap.String("user-agent", c.Request.UserAgent()),
					zap.String("stack", string(debug.Stack())),
				}
				switch v := err.(type) {
				case error:
					errorMsg = v.Error()
					logger.Error("Recovered from panic", append(fields, zap.Error(v))...)
				case string:
					errorMsg = v
					logger.Error("Recovered from panic", append(fields, zap.String("panic_value", v))...)
				default:
					errorMsg = fmt.Sprintf("%v", v)
					logger.Error("Recovered from unknown panic", append(fields, zap.String("panic_value", errorMsg))...)
				}

				app.NewResponse(c).ToResponse(code.ErrorServerInternal.Clone().WithDetails(errorMsg))
				c.Abort()
			}
		}()

		c.Next()
	}
}
