package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// SecurityHeaders 安全 HTTP 头中间件
// 防止点击劫持、MIME 嗅探；isDev 为 true 时跳过 HSTS 等仅对 HTTPS 生效的头
func SecurityHeaders(isDev bool) gin.HandlerFunc {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		IsDevelopment:         isDev,
	})

	return func(c *gin.Context) {
		if err := sec.Process(c.Writer, c.Request); err != nil {
			// Process 已写入响应
			c.Abort()
			return
		}
		c.Next()
	}
}
