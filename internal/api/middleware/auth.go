package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"remidi/backend/pkg/jwt"
	"remidi/backend/pkg/response"
)

// 注入到 gin.Context 的认证信息键
const (
	ContextUserID   = "user_id"
	ContextEmail    = "email"
	ContextTokenJTI = "token_jti"
	ContextTokenExp = "token_exp"
)

// TokenBlacklist 已吊销 token 的查询
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SessionToucher 携带有效 token 的请求刷新调度会话
type SessionToucher interface {
	Begin(userID string)
}

// Authenticator 校验 access token 并注入用户信息
// blacklist、sessions 均可为 nil
type Authenticator struct {
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	sessions  SessionToucher
	logger    *zap.Logger
}

// NewAuthenticator 创建认证器
func NewAuthenticator(jwtMgr *jwt.Manager, blacklist TokenBlacklist, sessions SessionToucher, logger *zap.Logger) *Authenticator {
	return &Authenticator{jwtMgr: jwtMgr, blacklist: blacklist, sessions: sessions, logger: logger}
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
func (a *Authenticator) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, response.CodeUnauthenticated, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, response.CodeUnauthenticated, "认证头格式无效")
			c.Abort()
			return
		}

		if !a.authenticate(c, parts[1]) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// QueryTokenAuth 从 ?token= 读取 access token
// 浏览器原生 WebSocket 无法设置请求头，/ws 使用该方式
func (a *Authenticator) QueryTokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, response.CodeUnauthenticated, "缺少 token")
			c.Abort()
			return
		}
		if !a.authenticate(c, token) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// authenticate 校验通过返回 true；失败时已写入 401 响应
func (a *Authenticator) authenticate(c *gin.Context, raw string) bool {
	claims, err := a.jwtMgr.ParseToken(raw)
	if err != nil {
		response.Unauthorized(c, response.CodeUnauthenticated, "Token 无效或已过期")
		return false
	}

	if claims.TokenType != jwt.TokenTypeAccess {
		response.Unauthorized(c, response.CodeUnauthenticated, "Token 类型无效")
		return false
	}

	if a.blacklist != nil && claims.ID != "" {
		revoked, err := a.blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
		if err != nil {
			// Redis 出错时降级放行
			a.logger.Warn("检查 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			response.Unauthorized(c, response.CodeUnauthenticated, "Token 已吊销")
			return false
		}
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextTokenJTI, claims.ID)
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	c.Set(ContextTokenExp, exp)

	if a.sessions != nil {
		a.sessions.Begin(claims.UserID)
	}
	return true
}
