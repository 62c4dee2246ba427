package middleware

import (
	"strings"

	"github.com/haierkeys/fast-note-image-uploader/pkg/app"
	"github.com/haierkeys/fast-note-image-uploader/pkg/code"

	"github.com/gin-gonic/gin"
)

// AuthToken 校验客户端令牌，未配置密钥时直接放行
func AuthToken(tm app.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tm == nil || !tm.Enabled() {
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			app.NewResponse(c).ToResponse(code.ErrorUnauthorized)
			c.Abort()
			return
		}

		entity, err := tm.Parse(token)
		if err != nil {
			app.NewResponse(c).ToResponse(code.ErrorUnauthorized.Clone().WithDetails(err.Error()))
			c.Abort()
			return
		}
		app.SetClientToContext(c, entity)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	var token string
	if s, exist := c.GetQuery("authorization"); exist {
		token = s
	} else if s := c.GetHeader("Authorization"); len(s) != 0 {
		token = s
	} else if s, exist := c.GetQuery("token"); exist {
		token = s
	} else if s := c.GetHeader("Token"); len(s) != 0 {
		token = s
	}
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
