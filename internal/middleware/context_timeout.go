package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"

	"github.com/gin-gonic/gin"
)

// ContextTimeout 为请求上下文设置截止时间，timeout <= 0 时不限制
// 处理函数超时且尚未写出响应时返回 ErrorRequestTimeout
func ContextTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			app.NewResponse(c).ToResponse(code.ErrorRequestTimeout.Clone().WithDetails(c.Request.URL.Path))
			c.Abort()
		}
	}
}
