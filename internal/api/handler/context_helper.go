package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"remidi/backend/internal/api/middleware"
	"remidi/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return "", false
	}
	return s, true
}

// tokenMeta 当前 access token 的 jti 与过期时间，用于登出吊销
func tokenMeta(c *gin.Context) (jti string, exp time.Time) {
	jti = c.GetString(middleware.ContextTokenJTI)
	if v, ok := c.Get(middleware.ContextTokenExp); ok {
		exp, _ = v.(time.Time)
	}
	return jti, exp
}
