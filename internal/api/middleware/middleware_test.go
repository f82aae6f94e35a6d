package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remidi/backend/config"
	"remidi/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testUserID = "11111111-1111-1111-1111-111111111111"

type memoryBlacklist struct {
	revoked map[string]bool
	err     error
}

func (m *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return m.revoked[jti], m.err
}

type touchRecorder struct{ users []string }

func (r *touchRecorder) Begin(userID string) { r.users = append(r.users, userID) }

type fixedLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fixedLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-0123",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func protectedEngine(auth gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/p", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID), "jti": c.GetString(ContextTokenJTI)})
	})
	return r
}

func doGet(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	mgr := newJWT()
	access, err := mgr.GenerateAccessToken(testUserID, "a@example.com")
	require.NoError(t, err)
	refresh, err := mgr.GenerateRefreshToken(testUserID, "a@example.com")
	require.NoError(t, err)

	sessions := &touchRecorder{}
	a := NewAuthenticator(mgr, nil, sessions, zap.NewNop())
	r := protectedEngine(a.JWTAuth())

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/p", "").Code, "缺少认证头")
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/p", "garbage").Code, "无效 token")
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/p", refresh).Code, "refresh token 不能访问接口")

	w := doGet(r, "/p", access)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testUserID)
	assert.Equal(t, []string{testUserID}, sessions.users, "有效请求应刷新调度会话")
}

func TestJWTAuth_Blacklist(t *testing.T) {
	mgr := newJWT()
	access, err := mgr.GenerateAccessToken(testUserID, "a@example.com")
	require.NoError(t, err)
	claims, err := mgr.ParseToken(access)
	require.NoError(t, err)

	bl := &memoryBlacklist{revoked: map[string]bool{claims.ID: true}}
	r := protectedEngine(NewAuthenticator(mgr, bl, nil, zap.NewNop()).JWTAuth())
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/p", access).Code)

	// 黑名单查询出错时降级放行
	bl = &memoryBlacklist{err: errors.New("redis down")}
	r = protectedEngine(NewAuthenticator(mgr, bl, nil, zap.NewNop()).JWTAuth())
	assert.Equal(t, http.StatusOK, doGet(r, "/p", access).Code)
}

func TestQueryTokenAuth(t *testing.T) {
	mgr := newJWT()
	access, err := mgr.GenerateAccessToken(testUserID, "a@example.com")
	require.NoError(t, err)

	r := protectedEngine(NewAuthenticator(mgr, nil, nil, zap.NewNop()).QueryTokenAuth())
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/p", "").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/p?token="+access, "").Code)
}

func TestRateLimit(t *testing.T) {
	limiter := &fixedLimiter{allowed: false}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 5, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Contains(t, limiter.keys[0], "/login")

	limiter.err = errors.New("redis down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code, "限流器出错时应放行")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36, "缺省时生成 UUID")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
