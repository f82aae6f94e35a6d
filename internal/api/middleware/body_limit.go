package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"remidi/backend/pkg/response"
)

// codeBodyTooLarge 请求体超限
const codeBodyTooLarge = 10005

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（如 1<<20 = 1MB）
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, ginErr := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(ginErr.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
				return
			}
		}
	}
}
